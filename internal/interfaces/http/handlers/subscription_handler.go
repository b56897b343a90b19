package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/graphbind/graphbind/internal/application/dto"
	"github.com/graphbind/graphbind/internal/application/service"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/errors"
)

// SubscriptionHandler exposes subscription lifecycle actions over HTTP. The
// caller's own bearer token identifies the subscription owner.
type SubscriptionHandler struct {
	subscriptions service.SubscriptionAppService
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(subscriptions service.SubscriptionAppService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptions: subscriptions}
}

// Execute performs one subscription action for the authenticated caller.
func (h *SubscriptionHandler) Execute(c *gin.Context) {
	var req dto.SubscriptionActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.SendError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}
	if req.Action == "" {
		dto.SendError(c, errors.ErrInvalidRequest.WithMessage("action is required"))
		return
	}

	descriptor := models.UserFromRequest(c.Request)
	result, err := h.subscriptions.Execute(c.Request.Context(), descriptor, req)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	if result == nil {
		result = &dto.SubscriptionActionResult{}
	}
	dto.SendSuccess(c, http.StatusOK, result)
}
