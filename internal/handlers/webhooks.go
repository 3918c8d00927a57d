// webhooks.go handles webhook management HTTP endpoints.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Shimizu-Technology/ugc-platform-api/internal/apperr"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/middleware"
	"github.com/Shimizu-Technology/ugc-platform-api/internal/models"
	webhookservice "github.com/Shimizu-Technology/ugc-platform-api/internal/services/webhook"
)

// CreateWebhook registers a new webhook endpoint.
// POST /api/webhooks
func (h *Handler) CreateWebhook(c *gin.Context) {
	var req models.CreateWebhookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	secret, err := webhookservice.GenerateSecret()
	if err != nil {
		h.fail(c, err)
		return
	}

	wh := &models.Webhook{
		UserID: middleware.GetUserID(c),
		URL:    req.URL,
		Events: req.Events,
		Secret: secret,
		Active: true,
	}
	if err := h.Webhooks.CreateWebhook(c.Request.Context(), wh); err != nil {
		h.fail(c, err)
		return
	}

	h.log.WithField("webhook_id", wh.ID).Info("🔔 Webhook registered")
	// The secret is only shown once, for signature verification setup
	respond(c, http.StatusCreated, "Webhook created", wh)
}

// ListWebhooks returns the caller's webhooks without their secrets.
// GET /api/webhooks
func (h *Handler) ListWebhooks(c *gin.Context) {
	webhooks, err := h.Webhooks.ListWebhooks(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	if webhooks == nil {
		webhooks = []models.Webhook{}
	}
	for i := range webhooks {
		webhooks[i].Secret = ""
	}
	respond(c, http.StatusOK, "", webhooks)
}

// ownWebhook loads a webhook that belongs to the caller.
func (h *Handler) ownWebhook(c *gin.Context) (*models.Webhook, bool) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return nil, false
	}
	wh, err := h.Webhooks.GetWebhook(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return nil, false
	}
	if wh.UserID != middleware.GetUserID(c) {
		h.fail(c, apperr.Forbidden("You do not have access to this webhook"))
		return nil, false
	}
	return wh, true
}

// UpdateWebhook changes the URL, events or active state.
// PATCH /api/webhooks/:id
func (h *Handler) UpdateWebhook(c *gin.Context) {
	wh, ok := h.ownWebhook(c)
	if !ok {
		return
	}
	var req models.UpdateWebhookRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if req.URL != nil {
		wh.URL = *req.URL
	}
	if req.Events != nil {
		wh.Events = req.Events
	}
	if req.Active != nil {
		wh.Active = *req.Active
	}
	if err := h.Webhooks.UpdateWebhook(c.Request.Context(), wh); err != nil {
		h.fail(c, err)
		return
	}

	wh.Secret = ""
	respond(c, http.StatusOK, "Webhook updated", wh)
}

// DeleteWebhook removes a webhook and its delivery log.
// DELETE /api/webhooks/:id
func (h *Handler) DeleteWebhook(c *gin.Context) {
	wh, ok := h.ownWebhook(c)
	if !ok {
		return
	}
	if err := h.Webhooks.DeleteWebhook(c.Request.Context(), wh.ID); err != nil {
		h.fail(c, err)
		return
	}
	respond(c, http.StatusOK, "Webhook deleted", nil)
}

// ListWebhookDeliveries returns recent delivery attempts across the caller's webhooks.
// GET /api/webhooks/deliveries
func (h *Handler) ListWebhookDeliveries(c *gin.Context) {
	deliveries, err := h.Webhooks.ListWebhookDeliveries(c.Request.Context(), middleware.GetUserID(c), 50)
	if err != nil {
		h.fail(c, err)
		return
	}
	if deliveries == nil {
		deliveries = []models.WebhookDelivery{}
	}
	respond(c, http.StatusOK, "", deliveries)
}
