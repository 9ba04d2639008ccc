package router

import (
	"math"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/model"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	logger *logrus.Logger,
	m *metrics.Metrics,
	authn *middleware.Authenticator,
	authHandler *handler.AuthHandler,
	productHandler *handler.ProductHandler,
	healthHandler *handler.HealthHandler,
) {
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler(logger)

	e.Use(echomw.RequestID())
	e.Use(requestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if m != nil {
		e.Use(m.Middleware())
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	e.Static(model.UploadsPath, cfg.UploadDir)
	e.GET("/healthz", healthHandler.Check)
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Auth routes
	limiter := authRateLimiter(cfg.AuthRateLimit)
	api.POST("/auth/register", authHandler.Register, limiter)
	api.POST("/auth/login", authHandler.Login, limiter)
	api.GET("/auth/verify", authHandler.Verify, authn.Authenticate)
	api.GET("/auth/profile", authHandler.GetProfile, authn.Authenticate)
	api.PUT("/auth/profile", authHandler.UpdateProfile, authn.Authenticate)
	api.POST("/auth/logout", authHandler.Logout, authn.Authenticate)

	// Product routes, writes restricted to admins
	admin := []echo.MiddlewareFunc{authn.Authenticate, middleware.RequireAdmin(), productHandler.LimitBody()}
	api.GET("/products", productHandler.ListProducts)
	api.GET("/products/:id", productHandler.GetProduct)
	api.POST("/products", productHandler.CreateProduct, admin...)
	api.PUT("/products/:id", productHandler.UpdateProduct, admin...)
	api.DELETE("/products/:id", productHandler.DeleteProduct, admin...)
}

// authRateLimiter limits login and registration attempts per client IP.
func authRateLimiter(perSecond float64) echo.MiddlewareFunc {
	if perSecond <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(perSecond),
		Burst:     int(math.Ceil(perSecond)),
		ExpiresIn: 3 * time.Minute,
	})
	return echomw.RateLimiter(store)
}

func requestLogger(logger *logrus.Logger) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := logger.WithFields(logrus.Fields{
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency_ms": v.Latency.Milliseconds(),
				"remote_ip":  v.RemoteIP,
				"request_id": v.RequestID,
			})
			switch {
			case v.Status >= 500:
				entry.Error("request")
			case v.Status >= 400:
				entry.Warn("request")
			default:
				entry.Info("request")
			}
			return nil
		},
	})
}
