package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"storefront/internal/cache"
)

const healthTimeout = 2 * time.Second

// HealthHandler reports whether the service's backing stores answer.
type HealthHandler struct {
	db     *gorm.DB
	cache  *cache.Client
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(db *gorm.DB, cache *cache.Client, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, logger: logger}
}

// HealthResponse describes the state of each dependency.
type HealthResponse struct {
	Status   string `json:"status" example:"ok"`
	Database string `json:"database" example:"up"`
	Cache    string `json:"cache" example:"disabled"`
}

// Check godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", Database: "up", Cache: "up"}
	code := http.StatusOK

	if err := h.pingDB(ctx); err != nil {
		h.logger.WithError(err).Error("health check: database unreachable")
		resp.Status = "unavailable"
		resp.Database = "down"
		code = http.StatusServiceUnavailable
	}

	// Redis is optional, so its state never fails the check.
	if err := h.cache.Ping(ctx); err != nil {
		if errors.Is(err, cache.ErrUnavailable) {
			resp.Cache = "disabled"
		} else {
			h.logger.WithError(err).Warn("health check: redis unreachable")
			resp.Cache = "down"
		}
	}

	return c.JSON(code, resp)
}

func (h *HealthHandler) pingDB(ctx context.Context) error {
	sqlDB, err := h.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
