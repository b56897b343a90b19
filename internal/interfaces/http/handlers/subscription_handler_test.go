package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbind/graphbind/internal/application/dto"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
)

// fakeSubscriptionService scripts one Execute outcome.
type fakeSubscriptionService struct {
	result     *dto.SubscriptionActionResult
	err        error
	descriptor models.IdentityDescriptor
}

func (f *fakeSubscriptionService) Execute(ctx context.Context, d models.IdentityDescriptor, req dto.SubscriptionActionRequest) (*dto.SubscriptionActionResult, error) {
	f.descriptor = d
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeSubscriptionService) RefreshAll(ctx context.Context) error { return nil }

func newSubscriptionRouter(svc *fakeSubscriptionService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.POST("/api/v1/subscriptions", NewSubscriptionHandler(svc).Execute)
	return engine
}

func TestSubscriptionHandlerExecutesAction(t *testing.T) {
	svc := &fakeSubscriptionService{result: &dto.SubscriptionActionResult{
		Subscriptions: []dto.SubscriptionSummary{{ID: "sub-1", Resource: "me/messages"}},
	}}
	engine := newSubscriptionRouter(svc)

	body := `{"action":"create","resource":"me/messages"}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer caller-token")
	engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var result dto.SubscriptionActionResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result.Subscriptions, 1)
	assert.Equal(t, "sub-1", result.Subscriptions[0].ID)

	assert.Equal(t, constants.ModeUserFromRequest, svc.descriptor.Mode, "the caller's own request identifies them")
}

func TestSubscriptionHandlerRequiresAction(t *testing.T) {
	engine := newSubscriptionRouter(&fakeSubscriptionService{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(`{"resource":"me/messages"}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionHandlerMapsServiceErrors(t *testing.T) {
	svc := &fakeSubscriptionService{err: errors.ErrMissingCredential.WithMessage("no token")}
	engine := newSubscriptionRouter(svc)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions", strings.NewReader(`{"action":"delete","subscriptionIds":["sub-1"]}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	var resp dto.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(errors.CodeMissingCredential), resp.Error)
}
