package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"storefront/docs"
	"storefront/internal/auth"
	"storefront/internal/cache"
	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/handler"
	"storefront/internal/logger"
	"storefront/internal/metrics"
	"storefront/internal/middleware"
	"storefront/internal/notify"
	"storefront/internal/repository"
	"storefront/internal/router"
	"storefront/internal/service"
	"storefront/internal/upload"
)

const shutdownTimeout = 10 * time.Second

// @title Storefront API
// @version 1.0
// @description E-commerce backend with user accounts, JWT authentication and an image-backed product catalog.
// @host localhost:5000
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logrus.Logger) error {
	if cfg.JWTSecret == "" {
		log.Warn("JWT_SECRET is not set, every token operation will fail")
	}
	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, log)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close(gormDB) }()
	log.WithField("driver", cfg.DBDriver).Info("database connected")

	if cfg.DBAutoMigrate {
		if err := db.Migrate(gormDB); err != nil {
			return err
		}
		log.Info("database schema migrated")
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if cacheClient.Enabled() {
		if err := cacheClient.Ping(ctx); err != nil {
			log.WithError(err).Warn("redis unreachable, continuing without cache and token revocation")
		}
	}

	images, err := upload.NewStore(cfg.UploadDir, cfg.UploadMaxBytes, cfg.UploadMaxImageWidth, log)
	if err != nil {
		return err
	}

	m := metrics.New()
	mailer := notify.NewAsync(notify.New(cfg.SMTP, log), log)
	defer mailer.Wait()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	productRepo := repository.NewProductRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)
	hasher := auth.NewBcryptHasher(auth.DefaultBcryptCost)

	// Initialize services
	authService := service.NewAuthService(userRepo, hasher, jwtService, tokenStore, mailer, log, m)
	productService := service.NewProductService(productRepo, cacheClient, images, cfg.BaseURL, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	router.Register(
		e,
		cfg,
		log,
		m,
		middleware.NewAuthenticator(authService, log),
		handler.NewAuthHandler(authService),
		handler.NewProductHandler(productService, images, log),
		handler.NewHealthHandler(gormDB, cacheClient, log),
	)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.ServerPort
		log.WithFields(logrus.Fields{
			"addr":    addr,
			"swagger": cfg.BaseURL + "/swagger/index.html",
		}).Info("server listening")
		errCh <- e.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
