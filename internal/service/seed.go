package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// AdminAccount describes the administrator the seeder guarantees.
type AdminAccount struct {
	Username string
	Email    string
	Password string
}

// SeedResult reports what SeedAdmin did.
type SeedResult string

const (
	SeedCreated  SeedResult = "created"
	SeedPromoted SeedResult = "promoted"
)

// SeedAdmin creates the admin account, or promotes and resets the user already holding its
// email or username. Running it twice leaves one admin.
func SeedAdmin(
	ctx context.Context,
	userRepo repository.UserRepository,
	hasher auth.PasswordHasher,
	admin AdminAccount,
	logger *logrus.Logger,
) (SeedResult, error) {
	admin.Username = strings.TrimSpace(admin.Username)
	admin.Email = strings.TrimSpace(admin.Email)
	if admin.Username == "" || admin.Email == "" || admin.Password == "" {
		return "", errors.New("admin username, email and password are required")
	}

	hash, err := hasher.Hash(admin.Password)
	if err != nil {
		return "", fmt.Errorf("hash admin password: %w", err)
	}

	existing, err := userRepo.FindByEmailOrUsername(ctx, admin.Email, admin.Username)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user := &model.User{
			Username:     admin.Username,
			Email:        admin.Email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			return "", fmt.Errorf("create admin: %w", err)
		}
		logger.WithField("user_id", user.ID).Info("admin user created")
		return SeedCreated, nil
	case err != nil:
		return "", fmt.Errorf("find admin: %w", err)
	}

	if err := userRepo.Update(ctx, existing.ID, map[string]interface{}{
		"role":     model.RoleAdmin,
		"password": hash,
	}); err != nil {
		return "", fmt.Errorf("promote admin: %w", err)
	}
	logger.WithField("user_id", existing.ID).Info("existing user promoted to admin")
	return SeedPromoted, nil
}
