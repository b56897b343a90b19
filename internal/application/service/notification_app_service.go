package service

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graphbind/graphbind/internal/domain/models"
	domainservice "github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/internal/trigger"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/logger"
)

// NotificationAppService validates inbound notification batches, fetches the
// changed resources and dispatches them to registered triggers. The HTTP
// handler responds 200 before this work runs; everything here is best-effort
// from the sender's point of view and per-entry failures never fail siblings.
type NotificationAppService interface {
	// ProcessBatch validates each entry, fetches its resource and dispatches
	// the results concurrently, returning when all dispatches finish.
	ProcessBatch(ctx context.Context, batch models.NotificationBatch)

	// ProcessBatchAsync runs ProcessBatch on a detached context in the
	// background. Wait blocks until in-flight background work completes.
	ProcessBatchAsync(ctx context.Context, batch models.NotificationBatch)
	Wait()
}

type notificationAppService struct {
	store    domainservice.SubscriptionStore
	cache    domainservice.ClientCache
	registry *trigger.Registry
	metrics  *monitoring.Metrics
	log      logger.Logger

	background sync.WaitGroup
}

// NewNotificationAppService creates the notification dispatcher.
func NewNotificationAppService(
	store domainservice.SubscriptionStore,
	cache domainservice.ClientCache,
	registry *trigger.Registry,
	metrics *monitoring.Metrics,
	log logger.Logger,
) NotificationAppService {
	return &notificationAppService{
		store:    store,
		cache:    cache,
		registry: registry,
		metrics:  metrics,
		log:      log.WithComponent("notification_service"),
	}
}

func (s *notificationAppService) ProcessBatchAsync(ctx context.Context, batch models.NotificationBatch) {
	// The HTTP response has already been sent; detach from the request's
	// cancellation but keep its values for log correlation.
	detached := context.WithoutCancel(ctx)
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.ProcessBatch(detached, batch)
	}()
}

func (s *notificationAppService) Wait() {
	s.background.Wait()
}

func (s *notificationAppService) ProcessBatch(ctx context.Context, batch models.NotificationBatch) {
	payloads := make([]models.DispatchPayload, 0, len(batch.Value))
	for _, notification := range batch.Value {
		payload, ok := s.resolve(ctx, notification)
		if !ok {
			continue
		}
		payloads = append(payloads, payload)
	}

	if len(payloads) == 0 {
		return
	}

	var g errgroup.Group
	for _, payload := range payloads {
		payload := payload
		g.Go(func() error {
			start := time.Now()
			if err := s.registry.Dispatch(ctx, payload); err != nil {
				s.metrics.RecordNotification("dispatch_error")
				s.log.Error(ctx, "trigger dispatch failed", err, logger.Fields{
					"subscription_id": payload.SubscriptionID,
					"resource_type":   payload.ResourceType,
				})
				return nil
			}
			s.metrics.RecordDispatch(payload.ResourceType, time.Since(start))
			s.metrics.RecordNotification("dispatched")
			return nil
		})
	}
	// Dispatch errors are logged per payload; Wait only synchronizes.
	_ = g.Wait()
}

// resolve validates one notification entry and fetches its resource. A false
// return means the entry was skipped; the reason has already been logged.
func (s *notificationAppService) resolve(ctx context.Context, n models.Notification) (models.DispatchPayload, bool) {
	entry, err := s.store.Get(ctx, n.SubscriptionID)
	if err != nil {
		s.metrics.RecordNotification("unknown_subscription")
		s.log.Warn(ctx, "notification references unknown subscription", logger.Fields{
			"subscription_id": n.SubscriptionID,
		})
		return models.DispatchPayload{}, false
	}

	// Client state is the sole authentication of inbound notifications; a
	// mismatch means the sender does not hold our secret.
	if entry.Subscription.ClientState != n.ClientState {
		s.metrics.RecordNotification("client_state_mismatch")
		s.log.Warn(ctx, "notification client state mismatch", logger.Fields{
			"subscription_id": n.SubscriptionID,
		})
		return models.DispatchPayload{}, false
	}

	client, err := s.cache.GetClient(ctx, models.UserFromID(entry.UserID, constants.ProviderAAD))
	if err != nil {
		s.metrics.RecordNotification("client_error")
		s.log.Error(ctx, "failed to resolve client for notification owner", err, logger.Fields{
			"subscription_id": n.SubscriptionID,
			"user_id":         entry.UserID,
		})
		return models.DispatchPayload{}, false
	}

	data, err := client.GetResource(ctx, n.Resource)
	if err != nil {
		s.metrics.RecordNotification("fetch_error")
		s.log.Error(ctx, "failed to fetch changed resource", err, logger.Fields{
			"subscription_id": n.SubscriptionID,
			"resource":        n.Resource,
		})
		return models.DispatchPayload{}, false
	}

	return models.DispatchPayload{
		SubscriptionID: n.SubscriptionID,
		UserID:         entry.UserID,
		ResourceType:   n.ResourceType(),
		Resource:       n.Resource,
		Data:           data,
	}, true
}
