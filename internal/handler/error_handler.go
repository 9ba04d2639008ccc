package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	apperrors "storefront/internal/errors"
)

// ErrorHandler returns an echo.HTTPErrorHandler that renders errors in the API envelope.
// Internal failures are logged and answered with a generic message.
func ErrorHandler(logger *logrus.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := toHTTPError(err)
		entry := logger.WithFields(logrus.Fields{
			"method": c.Request().Method,
			"uri":    c.Request().RequestURI,
			"status": httpErr.StatusCode,
		})
		if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
			entry = entry.WithField("request_id", id)
		}
		if httpErr.StatusCode >= http.StatusInternalServerError {
			entry.WithError(err).Error("request failed")
		} else {
			entry.WithField("reason", httpErr.Message).Debug("request rejected")
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.StatusCode)
		} else {
			err = c.JSON(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		if err != nil {
			logger.WithError(err).Error("write error response")
		}
	}
}

func toHTTPError(err error) *apperrors.HTTPError {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return apperrors.MapErrorToHTTP(appErr)
	}

	var he *echo.HTTPError
	if !errors.As(err, &he) {
		return apperrors.MapErrorToHTTP(err)
	}

	switch he.Code {
	case http.StatusNotFound:
		return apperrors.NewHTTPError(http.StatusNotFound, "Not found API", "NOT_FOUND")
	case http.StatusBadRequest:
		return apperrors.NewHTTPError(http.StatusBadRequest, "Invalid request", "VALIDATION_ERROR")
	case http.StatusUnauthorized:
		return apperrors.NewHTTPError(http.StatusUnauthorized, httpMessage(he), "UNAUTHORIZED")
	case http.StatusMethodNotAllowed:
		return apperrors.NewHTTPError(he.Code, httpMessage(he), "METHOD_NOT_ALLOWED")
	case http.StatusRequestEntityTooLarge:
		return apperrors.NewHTTPError(he.Code, httpMessage(he), "PAYLOAD_TOO_LARGE")
	case http.StatusTooManyRequests:
		return apperrors.NewHTTPError(he.Code, "Too many requests, please try again later", "RATE_LIMITED")
	}
	if he.Code >= http.StatusInternalServerError {
		return apperrors.MapErrorToHTTP(err)
	}
	return apperrors.NewHTTPError(he.Code, httpMessage(he), "HTTP_ERROR")
}

func httpMessage(he *echo.HTTPError) string {
	if msg, ok := he.Message.(string); ok {
		return msg
	}
	if he.Message == nil {
		return http.StatusText(he.Code)
	}
	return fmt.Sprint(he.Message)
}
