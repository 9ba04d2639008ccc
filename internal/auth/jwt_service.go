package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	apperrors "storefront/internal/errors"
	"storefront/internal/model"
)

// TokenLifetime is the duration for which access tokens are valid.
const TokenLifetime = 24 * time.Hour

// Claims represents JWT claims.
type Claims struct {
	UserID uuid.UUID  `json:"id"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
	now    func() time.Time
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// WithClock returns a copy of the service that reads time from now.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	return &JWTService{secret: s.secret, now: now}
}

// Issue signs a token for the user that expires TokenLifetime from now.
func (s *JWTService) Issue(userID uuid.UUID, role model.Role) (string, time.Time, error) {
	if len(s.secret) == 0 {
		return "", time.Time{}, apperrors.ErrSecretNotConfigured
	}

	now := s.now()
	expiresAt := now.Add(TokenLifetime)
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, apperrors.Internal("sign token", err)
	}
	return token, expiresAt, nil
}

// Verify validates a JWT token and returns the claims.
func (s *JWTService) Verify(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, apperrors.ErrSecretNotConfigured
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}
	if !token.Valid || claims.UserID == uuid.Nil {
		return nil, apperrors.ErrInvalidToken
	}

	// The parser checks expiry against the wall clock; the service clock may differ.
	if claims.ExpiresAt == nil || !s.now().Before(claims.ExpiresAt.Time) {
		return nil, apperrors.ErrTokenExpired
	}

	return claims, nil
}

// RemainingLifetime reports how long the token stays valid, never negative.
func (s *JWTService) RemainingLifetime(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining < 0 {
		return 0
	}
	return remaining
}
