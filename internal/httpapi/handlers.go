// Package httpapi serves the dashboard over HTTP/JSON.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lucaslnrr/v0-response-monitor/internal/models"
	"github.com/lucaslnrr/v0-response-monitor/internal/readthrough"
	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
)

const defaultRequestTimeout = 10 * time.Second

type DashboardService interface {
	GetDashboard(ctx context.Context, token string) (service.Dashboard, error)
}

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	dashboards DashboardService
	cache      *readthrough.Group
	logger     *zap.Logger
	health     HealthCheck
	timeout    time.Duration
}

type Option func(*Handlers)

func WithHealthCheck(fn HealthCheck) Option {
	return func(h *Handlers) { h.health = fn }
}

func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handlers) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// NewHandlers builds the HTTP handlers. A nil cache group fetches on every request.
func NewHandlers(dashboards DashboardService, cache *readthrough.Group, logger *zap.Logger, opts ...Option) *Handlers {
	if dashboards == nil {
		panic("nil DashboardService provided to NewHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = readthrough.NewGroup(nil, 0, logger)
	}
	h := &Handlers{
		dashboards: dashboards,
		cache:      cache,
		logger:     logger.Named("http-handler"),
		timeout:    defaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) getDashboard(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, errorResponse{Error: "token is required"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	d, err := readthrough.FindAndCache(ctx, h.cache, service.CacheKey(token), func(fetchCtx context.Context) (service.Dashboard, error) {
		return h.dashboards.GetDashboard(fetchCtx, token)
	})
	if err != nil {
		code, msg := h.statusFor(ctx, models.HashToken(token), err)
		c.JSON(code, errorResponse{Error: msg})
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, d)
}

func (h *Handlers) statusFor(ctx context.Context, tokenHash string, err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		return http.StatusBadRequest, "token is required"
	case errors.Is(err, service.ErrMonitorNotFound):
		h.logger.Info("monitor not found", zap.String("token_hash", tokenHash))
		return http.StatusNotFound, "monitor not found"
	case errors.Is(err, service.ErrMonitorExpired):
		h.logger.Info("monitor expired", zap.String("token_hash", tokenHash))
		return http.StatusGone, "monitor link expired"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		h.logger.Warn("request timeout", zap.String("token_hash", tokenHash))
		return http.StatusGatewayTimeout, "monitor source timed out"
	case errors.Is(err, service.ErrSourceFailure):
		h.logger.Error("source failure", zap.String("token_hash", tokenHash), zap.Error(err))
		return http.StatusBadGateway, "monitor source unavailable"
	default:
		h.logger.Error("unexpected error", zap.String("token_hash", tokenHash), zap.Error(err))
		return http.StatusInternalServerError, "internal error"
	}
}

func (h *Handlers) getLegend(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tables": scoring.Legend()})
}

func (h *Handlers) healthz(c *gin.Context) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			h.logger.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
