package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/auth"
	apperrors "storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/notify"
	"storefront/internal/repository"
)

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *model.UserView `json:"user"`
}

// ProfileUpdate holds the optional fields of a profile change. Nil means unchanged.
type ProfileUpdate struct {
	Username *string
	Email    *string
	Password *string
}

// AuthService handles authentication operations.
type AuthService interface {
	Register(ctx context.Context, username, email, password string) (*model.UserView, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	VerifyToken(ctx context.Context, token string) (*auth.Claims, error)
	GetProfile(ctx context.Context, id uuid.UUID) (*model.UserView, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.UserView, error)
	Logout(ctx context.Context, claims *auth.Claims) error
}

type authService struct {
	userRepo   repository.UserRepository
	hasher     auth.PasswordHasher
	jwtService *auth.JWTService
	tokenStore auth.TokenStoreInterface
	notifier   notify.Notifier
	logger     *logrus.Logger
	metrics    *metrics.Metrics
}

// NewAuthService creates a new authentication service. m may be nil.
func NewAuthService(
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	jwtService *auth.JWTService,
	tokenStore auth.TokenStoreInterface,
	notifier notify.Notifier,
	logger *logrus.Logger,
	m *metrics.Metrics,
) AuthService {
	return &authService{
		userRepo:   userRepo,
		hasher:     hasher,
		jwtService: jwtService,
		tokenStore: tokenStore,
		notifier:   notifier,
		logger:     logger,
		metrics:    m,
	}
}

// Register creates a new user with a hashed password.
func (s *authService) Register(ctx context.Context, username, email, password string) (*model.UserView, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, apperrors.Validation("All fields are required")
	}
	if err := checkUsername(username); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.FindByEmailOrUsername(ctx, email, username)
	if err == nil && existing != nil {
		s.metrics.AuthEvent("register", "conflict")
		return nil, apperrors.ErrUserAlreadyExists
	}
	// If error is not "record not found", return it (could be a database error)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hashedPassword, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	view := user.View()
	s.logger.WithField("user_id", user.ID).Info("user registered")
	s.metrics.AuthEvent("register", "success")

	if err := s.notifier.SendWelcome(ctx, view); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("welcome notification failed")
	}

	return view, nil
}

// Login checks credentials and issues a token. Every credential failure yields the same error.
func (s *authService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if password == "" {
		return nil, apperrors.Validation("Password is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, apperrors.Validation("Email is required")
	}

	user, err := s.userRepo.FindByEmailWithPassword(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.loginFailed("unknown_user", uuid.Nil)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if user.PasswordHash == "" {
		s.loginFailed("password_not_set", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, user.PasswordHash) {
		s.loginFailed("password_mismatch", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresAt, err := s.jwtService.Issue(user.ID, user.Role)
	if err != nil {
		s.logger.WithError(err).Error("issue token")
		return nil, err
	}

	s.logger.WithField("user_id", user.ID).Info("login successful")
	s.metrics.AuthEvent("login", "success")

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.View(),
	}, nil
}

func (s *authService) loginFailed(reason string, userID uuid.UUID) {
	entry := s.logger.WithField("reason", reason)
	if userID != uuid.Nil {
		entry = entry.WithField("user_id", userID)
	}
	entry.Warn("login failed")
	s.metrics.AuthEvent("login", "failure")
}

// VerifyToken validates the token and rejects revoked ones.
func (s *authService) VerifyToken(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := s.tokenStore.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token revocation: %w", err)
	}
	if revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	return claims, nil
}

// GetProfile returns the public view of a user.
func (s *authService) GetProfile(ctx context.Context, id uuid.UUID) (*model.UserView, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user.View(), nil
}

// UpdateProfile applies a partial profile change. A new password is hashed here.
func (s *authService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.UserView, error) {
	user, err := s.userRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	columns := make(map[string]interface{}, 3)
	var newEmail, newUsername string
	if update.Username != nil {
		if v := strings.TrimSpace(*update.Username); v != "" && v != user.Username {
			if err := checkUsername(v); err != nil {
				return nil, err
			}
			newUsername = v
			columns["username"] = v
		}
	}
	if update.Email != nil {
		if v := strings.TrimSpace(*update.Email); v != "" && v != user.Email {
			newEmail = v
			columns["email"] = v
		}
	}

	if newEmail != "" || newUsername != "" {
		taken, err := s.userRepo.ExistsOther(ctx, id, newEmail, newUsername)
		if err != nil {
			return nil, fmt.Errorf("check user conflict: %w", err)
		}
		if taken {
			return nil, apperrors.ErrUserConflict
		}
	}

	if update.Password != nil && *update.Password != "" {
		hashed, err := s.hasher.Hash(*update.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		columns["password"] = hashed
	}

	if len(columns) == 0 {
		return user.View(), nil
	}

	if err := s.userRepo.Update(ctx, id, columns); err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return nil, apperrors.ErrUserNotFound
		case errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, apperrors.ErrUserConflict
		default:
			return nil, fmt.Errorf("update user: %w", err)
		}
	}

	s.logger.WithField("user_id", id).Info("profile updated")
	return s.GetProfile(ctx, id)
}

// Logout revokes the presented token until it would have expired.
func (s *authService) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil {
		return apperrors.ErrAuthenticationRequired
	}
	if err := s.tokenStore.RevokeToken(ctx, claims.ID, s.jwtService.RemainingLifetime(claims)); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.logger.WithField("user_id", claims.UserID).Info("logout")
	s.metrics.AuthEvent("logout", "success")
	return nil
}

// Username bounds match the users.username column.
const (
	minUsernameLength = 3
	maxUsernameLength = 30
)

func checkUsername(username string) error {
	switch n := utf8.RuneCountInString(username); {
	case n < minUsernameLength:
		return apperrors.Validation(fmt.Sprintf(`"username" length must be at least %d characters long`, minUsernameLength))
	case n > maxUsernameLength:
		return apperrors.Validation(fmt.Sprintf(`"username" length must be less than or equal to %d characters long`, maxUsernameLength))
	}
	return nil
}
