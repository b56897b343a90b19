package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/internal/infrastructure/persistence/file"
	"github.com/graphbind/graphbind/internal/trigger"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/logger"
)

type capturedDispatches struct {
	mu       sync.Mutex
	payloads []models.DispatchPayload
}

func (c *capturedDispatches) handler() trigger.Handler {
	return func(ctx context.Context, payload models.DispatchPayload) error {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.payloads = append(c.payloads, payload)
		return nil
	}
}

func (c *capturedDispatches) all() []models.DispatchPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.DispatchPayload(nil), c.payloads...)
}

func newNotificationFixture(t *testing.T, api *fakeGraphAPI, registry *trigger.Registry) (NotificationAppService, *fakeClientCache, func(models.SubscriptionEntry)) {
	t.Helper()
	cache := &fakeClientCache{api: api}
	store := file.NewSubscriptionStore(t.TempDir(), logger.NewNoopLogger())
	svc := NewNotificationAppService(store, cache, registry,
		monitoring.NewMetrics(prometheus.NewRegistry()), logger.NewNoopLogger())

	seed := func(entry models.SubscriptionEntry) {
		require.NoError(t, store.Save(context.Background(), entry))
	}
	return svc, cache, seed
}

func messageNotification(subscriptionID, clientState string) models.Notification {
	return models.Notification{
		SubscriptionID: subscriptionID,
		ClientState:    clientState,
		Resource:       "me/messages/abc",
		ResourceData:   &models.ResourceData{ID: "abc", ODataType: "#Microsoft.Graph.Message"},
	}
}

func TestProcessBatchDispatchesValidEntries(t *testing.T) {
	captured := &capturedDispatches{}
	registry := trigger.NewRegistry(logger.NewNoopLogger())
	require.NoError(t, registry.Register("#Microsoft.Graph.Message", captured.handler()))

	api := &fakeGraphAPI{resourceData: json.RawMessage(`{"id":"abc","subject":"hello"}`)}
	svc, _, seed := newNotificationFixture(t, api, registry)

	seed(models.SubscriptionEntry{
		Subscription: models.Subscription{ID: "sub-1", ClientState: "secret"},
		UserID:       "user-1",
	})

	svc.ProcessBatch(context.Background(), models.NotificationBatch{Value: []models.Notification{
		messageNotification("sub-1", "secret"),
		// Sibling referencing an unknown subscription must not poison the batch.
		messageNotification("sub-unknown", "whatever"),
	}})

	payloads := captured.all()
	require.Len(t, payloads, 1)
	assert.Equal(t, "sub-1", payloads[0].SubscriptionID)
	assert.Equal(t, "user-1", payloads[0].UserID)
	assert.Equal(t, "#Microsoft.Graph.Message", payloads[0].ResourceType)
	assert.JSONEq(t, `{"id":"abc","subject":"hello"}`, string(payloads[0].Data))

	assert.Equal(t, []string{"me/messages/abc"}, api.getPaths, "the changed resource is fetched for dispatch")
}

func TestProcessBatchRejectsClientStateMismatch(t *testing.T) {
	captured := &capturedDispatches{}
	registry := trigger.NewRegistry(logger.NewNoopLogger())
	require.NoError(t, registry.Register("", captured.handler()))

	api := &fakeGraphAPI{resourceData: json.RawMessage(`{}`)}
	svc, cache, seed := newNotificationFixture(t, api, registry)

	seed(models.SubscriptionEntry{
		Subscription: models.Subscription{ID: "sub-1", ClientState: "secret"},
		UserID:       "user-1",
	})

	svc.ProcessBatch(context.Background(), models.NotificationBatch{Value: []models.Notification{
		messageNotification("sub-1", "forged"),
	}})

	assert.Empty(t, captured.all(), "a forged client state must never reach a trigger")
	assert.Zero(t, cache.calls(), "rejected entries must not consume a client")
}

func TestProcessBatchIsolatesFetchFailures(t *testing.T) {
	captured := &capturedDispatches{}
	registry := trigger.NewRegistry(logger.NewNoopLogger())
	require.NoError(t, registry.Register("", captured.handler()))

	api := &fakeGraphAPI{getErr: context.DeadlineExceeded}
	svc, _, seed := newNotificationFixture(t, api, registry)

	seed(models.SubscriptionEntry{
		Subscription: models.Subscription{ID: "sub-1", ClientState: "secret"},
		UserID:       "user-1",
	})

	svc.ProcessBatch(context.Background(), models.NotificationBatch{Value: []models.Notification{
		messageNotification("sub-1", "secret"),
	}})

	assert.Empty(t, captured.all())
}

func TestProcessBatchAsyncCompletesBeforeWaitReturns(t *testing.T) {
	captured := &capturedDispatches{}
	registry := trigger.NewRegistry(logger.NewNoopLogger())
	require.NoError(t, registry.Register("", captured.handler()))

	api := &fakeGraphAPI{resourceData: json.RawMessage(`{"id":"abc"}`)}
	svc, _, seed := newNotificationFixture(t, api, registry)

	seed(models.SubscriptionEntry{
		Subscription: models.Subscription{ID: "sub-1", ClientState: "secret"},
		UserID:       "user-1",
	})

	// A canceled request context must not cancel the detached dispatch.
	ctx, cancel := context.WithCancel(context.Background())
	svc.ProcessBatchAsync(ctx, models.NotificationBatch{Value: []models.Notification{
		messageNotification("sub-1", "secret"),
	}})
	cancel()
	svc.Wait()

	require.Len(t, captured.all(), 1)
}

func TestProcessBatchSecurityAlertFallbackType(t *testing.T) {
	captured := &capturedDispatches{}
	registry := trigger.NewRegistry(logger.NewNoopLogger())
	require.NoError(t, registry.Register(constants.ResourceTypeSecurityAlert, captured.handler()))

	api := &fakeGraphAPI{resourceData: json.RawMessage(`{"id":"alert-1"}`)}
	svc, _, seed := newNotificationFixture(t, api, registry)

	seed(models.SubscriptionEntry{
		Subscription: models.Subscription{ID: "sub-1", ClientState: "secret"},
		UserID:       "user-1",
	})

	svc.ProcessBatch(context.Background(), models.NotificationBatch{Value: []models.Notification{
		{
			SubscriptionID: "sub-1",
			ClientState:    "secret",
			Resource:       "security/alerts/alert-1",
		},
	}})

	payloads := captured.all()
	require.Len(t, payloads, 1)
	assert.Equal(t, constants.ResourceTypeSecurityAlert, payloads[0].ResourceType)
}
