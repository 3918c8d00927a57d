// Package handlers contains HTTP handler functions for the API.
//
// Go Pattern: Handlers in Gin receive a *gin.Context which provides:
// - Request data (params, query, body, headers)
// - Response methods (JSON, String, Status)
// - Middleware data (c.Get/c.Set)
//
// Handlers only translate between HTTP and the services. Domain rules and
// authorization live in the services so they can be tested without HTTP.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/logger"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/contentrequest"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/services/video"
)

// Version is reported by the health check.
const Version = "1.0.0"

// UserStore is the account persistence used by the auth endpoints.
type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
}

// WebhookStore is the persistence used by the webhook endpoints.
type WebhookStore interface {
	CreateWebhook(ctx context.Context, w *models.Webhook) error
	GetWebhook(ctx context.Context, id int64) (*models.Webhook, error)
	ListWebhooks(ctx context.Context, userID int64) ([]models.Webhook, error)
	UpdateWebhook(ctx context.Context, w *models.Webhook) error
	DeleteWebhook(ctx context.Context, id int64) error
	ListWebhookDeliveries(ctx context.Context, userID int64, limit int) ([]models.WebhookDelivery, error)
}

// HealthChecker reports whether the database is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// QueueStats exposes worker pool sizing for the health check.
type QueueStats interface {
	WorkerCount() int
	QueueSize() int
}

// Deps holds everything the handlers need.
// Go Pattern: Dependency injection via struct fields. Instead of global
// variables or service locators, we pass dependencies explicitly.
// This makes testing easy: build a Deps with in-memory stores.
type Deps struct {
	Users    UserStore
	Webhooks WebhookStore
	Health   HealthChecker
	Queue    QueueStats
	Requests *contentrequest.Service
	Videos   *video.Service

	JWTSecret string
	JWTTTL    time.Duration
}

// Handler holds shared dependencies for all HTTP handlers.
type Handler struct {
	Deps
	log *logrus.Entry
}

// NewHandler creates a new handler with all dependencies.
func NewHandler(deps Deps) *Handler {
	registerValidators()
	if deps.JWTTTL <= 0 {
		deps.JWTTTL = 72 * time.Hour
	}
	return &Handler{Deps: deps, log: logger.WithComponent("api")}
}

// HealthCheck returns the API health status.
// GET /api/health
func (h *Handler) HealthCheck(c *gin.Context) {
	resp := models.HealthResponse{
		Status:    "ok",
		Service:   "ugc-platform-api",
		Version:   Version,
		Database:  "healthy",
		Timestamp: time.Now().UTC(),
	}
	if h.Queue != nil {
		resp.Workers = h.Queue.WorkerCount()
		resp.QueueSize = h.Queue.QueueSize()
	}

	status := http.StatusOK
	if err := h.Health.HealthCheck(c.Request.Context()); err != nil {
		h.log.WithError(err).Error("❌ Database health check failed")
		resp.Status = "degraded"
		resp.Database = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, models.Response{Success: status == http.StatusOK, Data: resp})
}
