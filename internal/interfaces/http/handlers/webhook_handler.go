// Package handlers contains the gin HTTP handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphbind/graphbind/internal/application/service"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/logger"
)

// WebhookHandler serves the Graph change-notification endpoint: the
// subscription validation handshake and notification delivery.
type WebhookHandler struct {
	notifications service.NotificationAppService
	log           logger.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(notifications service.NotificationAppService, log logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		notifications: notifications,
		log:           log.WithComponent("webhook_handler"),
	}
}

// Handle answers both entry points on the webhook endpoint. A request with a
// validationToken query parameter is a subscription verification handshake
// and gets the token echoed back as plain text. Anything else is a
// notification batch: Graph enforces a short response SLA and resends on
// timeout, so the response is sent as soon as parsing succeeds and the
// dispatch work runs detached.
func (h *WebhookHandler) Handle(c *gin.Context) {
	if token, ok := c.GetQuery(constants.QueryValidationToken); ok {
		c.String(http.StatusOK, "%s", token)
		return
	}

	var batch models.NotificationBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		h.log.Warn(c.Request.Context(), "malformed notification batch", logger.Fields{"error": err.Error()})
		c.Status(http.StatusBadRequest)
		return
	}

	h.notifications.ProcessBatchAsync(c.Request.Context(), batch)
	c.Status(http.StatusOK)
}
