package middleware

import (
	"errors"
	"fmt"
	"strings"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/service"
)

const (
	claimsKey   = "claims"
	identityKey = "identity"
	profileKey  = "profile"
)

// Authenticator guards routes that need a signed-in user.
type Authenticator struct {
	authService service.AuthService
	logger      *logrus.Logger
	verify      echo.MiddlewareFunc
}

// NewAuthenticator builds the bearer token middleware chain.
func NewAuthenticator(authService service.AuthService, logger *logrus.Logger) *Authenticator {
	a := &Authenticator{authService: authService, logger: logger}
	a.verify = echojwt.WithConfig(echojwt.Config{
		ContextKey: claimsKey,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return a.authService.VerifyToken(c.Request().Context(), token)
		},
		ErrorHandler: a.tokenError,
	})
	return a
}

// Authenticate verifies the bearer token and loads the user it names.
func (a *Authenticator) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return a.verify(a.LoadUser(next))
}

// LoadUser resolves the verified claims to a live user and attaches its identity.
func (a *Authenticator) LoadUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, ok := ClaimsFrom(c)
		if !ok {
			return apperrors.ErrAuthenticationRequired
		}

		profile, err := a.authService.GetProfile(c.Request().Context(), claims.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrUserNotFound) {
				return apperrors.ErrTokenUserNotFound
			}
			a.logger.WithError(err).WithField("user_id", claims.UserID).Error("load authenticated user")
			return err
		}

		identity := &model.Identity{
			ID:       profile.ID,
			Role:     profile.Role,
			Email:    profile.Email,
			Username: profile.Username,
		}
		c.Set(identityKey, identity)
		c.Set(profileKey, profile)
		c.SetRequest(c.Request().WithContext(model.WithIdentity(c.Request().Context(), identity)))

		return next(c)
	}
}

// tokenError maps echo-jwt failures onto the API's authentication errors.
func (a *Authenticator) tokenError(c echo.Context, err error) error {
	var parseErr *echojwt.TokenParsingError
	if errors.As(err, &parseErr) {
		var appErr *apperrors.AppError
		if errors.As(parseErr.Err, &appErr) {
			if apperrors.Is(appErr, apperrors.KindInternal) {
				a.logger.WithError(appErr).Error("verify token")
			}
			return appErr
		}
		a.logger.WithError(parseErr.Err).Error("verify token")
		return parseErr.Err
	}

	if strings.TrimSpace(c.Request().Header.Get(echo.HeaderAuthorization)) == "" {
		return apperrors.ErrAuthHeaderRequired
	}
	return apperrors.ErrBearerTokenRequired
}

// RequireRole admits only identities holding one of roles. It must run after Authenticate.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	return requireRole(roleDenied(roles), roles...)
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc {
	return requireRole(apperrors.ErrAdminRequired, model.RoleAdmin)
}

func requireRole(denied error, roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			identity, ok := IdentityFrom(c)
			if !ok {
				return apperrors.ErrAuthenticationRequired
			}
			if !identity.HasRole(roles...) {
				return denied
			}
			return next(c)
		}
	}
}

func roleDenied(roles []model.Role) error {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return apperrors.Forbidden(fmt.Sprintf("Requires role: %s", strings.Join(names, " or ")))
}

// ClaimsFrom returns the verified token claims of the request.
func ClaimsFrom(c echo.Context) (*auth.Claims, bool) {
	claims, ok := c.Get(claimsKey).(*auth.Claims)
	return claims, ok && claims != nil
}

// IdentityFrom returns the authenticated caller of the request.
func IdentityFrom(c echo.Context) (*model.Identity, bool) {
	identity, ok := c.Get(identityKey).(*model.Identity)
	return identity, ok && identity != nil
}

// ProfileFrom returns the user record loaded by Authenticate.
func ProfileFrom(c echo.Context) (*model.UserView, bool) {
	profile, ok := c.Get(profileKey).(*model.UserView)
	return profile, ok && profile != nil
}
