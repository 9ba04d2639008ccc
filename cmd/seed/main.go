package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/logger"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// Seeds the administrator account from ADMIN_USERNAME, ADMIN_EMAIL and ADMIN_PASSWORD.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		log.WithError(err).Fatal("database init")
	}
	defer func() { _ = db.Close(gormDB) }()

	if err := db.Migrate(gormDB); err != nil {
		log.WithError(err).Error("auto-migrate")
		os.Exit(1)
	}

	result, err := service.SeedAdmin(ctx,
		repository.NewUserRepository(gormDB),
		auth.NewBcryptHasher(auth.DefaultBcryptCost),
		service.AdminAccount{
			Username: cfg.AdminUsername,
			Email:    cfg.AdminEmail,
			Password: cfg.AdminPassword,
		},
		log,
	)
	if err != nil {
		log.WithError(err).Error("seed admin")
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"username": cfg.AdminUsername,
		"result":   result,
	}).Info("seeding completed")
}
