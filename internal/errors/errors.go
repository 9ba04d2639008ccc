package errors

import (
	"errors"
	"net/http"
)

// Kind classifies an application error for translation at the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// AppError is a domain error carrying its kind and a message safe to show clients.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Validation builds a bad-input error.
func Validation(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

// Unauthorized builds a missing or invalid credentials error.
func Unauthorized(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

// Forbidden builds an insufficient-role error.
func Forbidden(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

// NotFound builds an absent-entity error.
func NotFound(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

// Internal wraps an unexpected failure. The message is logged, never returned to clients.
func Internal(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

var (
	// ErrInvalidCredentials is returned for any failed login, whichever factor failed.
	ErrInvalidCredentials = Unauthorized("Invalid credentials")
	// ErrUserAlreadyExists is returned when the email or username is taken.
	ErrUserAlreadyExists = Validation("User with this email or username already exists")
	// ErrUserConflict is returned when a profile update collides with another user.
	ErrUserConflict = Validation("Email or username already in use")
	// ErrUserNotFound is returned when the profile owner no longer exists.
	ErrUserNotFound = Validation("User not found")
	// ErrProductNotFound is returned when a product id does not exist.
	ErrProductNotFound = NotFound("Product not found")
	// ErrProductImageRequired is returned when a product is created without an image.
	ErrProductImageRequired = Validation("Product image is required")
	// ErrInvalidPrice is returned for negative prices.
	ErrInvalidPrice = Validation("Price must be greater than or equal to 0")
	// ErrPriceTooLarge is returned for prices the price column cannot store.
	ErrPriceTooLarge = Validation("Price must be less than or equal to 99999999.99")

	// ErrAuthHeaderRequired is returned when the Authorization header is absent.
	ErrAuthHeaderRequired = Unauthorized("Authorization header is required")
	// ErrBearerTokenRequired is returned when the header carries no bearer token.
	ErrBearerTokenRequired = Unauthorized("Bearer token is required")
	// ErrInvalidToken is returned for malformed or badly signed tokens.
	ErrInvalidToken = Unauthorized("Invalid token")
	// ErrTokenExpired is returned once the expiry claim has passed.
	ErrTokenExpired = Unauthorized("Token has expired")
	// ErrTokenRevoked is returned for tokens revoked by logout.
	ErrTokenRevoked = Unauthorized("Token has been revoked")
	// ErrTokenUserNotFound is returned when a valid token names a deleted user.
	ErrTokenUserNotFound = Unauthorized("User not found")
	// ErrAuthenticationRequired is returned when a role check runs without an identity.
	ErrAuthenticationRequired = Unauthorized("Authentication required")
	// ErrAdminRequired is returned when an authenticated caller is not an admin.
	ErrAdminRequired = Forbidden("Admin access required")

	// ErrSecretNotConfigured is a server misconfiguration surfaced as a generic failure.
	ErrSecretNotConfigured = Internal("JWT secret is not configured", nil)
)

// KindOf returns the kind of the first AppError in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Status  string `json:"status" example:"error"`
	Message string `json:"message" example:"Invalid credentials"`
	Code    string `json:"code,omitempty" example:"UNAUTHORIZED"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Status:  "error",
		Message: e.Message,
		Code:    e.Code,
	}
}

// MapErrorToHTTP maps domain errors to HTTP errors.
func MapErrorToHTTP(err error) *HTTPError {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return NewHTTPError(http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}

	switch appErr.Kind {
	case KindValidation:
		return NewHTTPError(http.StatusBadRequest, appErr.Message, "VALIDATION_ERROR")
	case KindUnauthorized:
		return NewHTTPError(http.StatusUnauthorized, appErr.Message, "UNAUTHORIZED")
	case KindForbidden:
		return NewHTTPError(http.StatusForbidden, appErr.Message, "FORBIDDEN")
	case KindNotFound:
		return NewHTTPError(http.StatusNotFound, appErr.Message, "NOT_FOUND")
	default:
		return NewHTTPError(http.StatusInternalServerError, "Internal server error", "INTERNAL_ERROR")
	}
}
