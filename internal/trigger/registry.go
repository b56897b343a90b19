// Package trigger implements the registry mapping resource types to the
// consumers interested in their change notifications.
package trigger

import (
	"context"
	"sync"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

// Handler is a consumer callback invoked with a dispatch-ready payload.
type Handler func(ctx context.Context, payload models.DispatchPayload) error

// Registry routes dispatch payloads to registered handlers. At most one
// handler may be registered per concrete resource type, plus one wildcard.
// Registration happens at wiring time; dispatch is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byType   map[string]Handler
	wildcard Handler
	log      logger.Logger
}

// NewRegistry creates an empty Registry.
func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		byType: make(map[string]Handler),
		log:    log.WithComponent("trigger_registry"),
	}
}

// Register binds handler to resourceType. An empty resourceType registers the
// wildcard handler, which receives payloads no concrete registration matches.
// A second registration for the same key is a configuration error.
func (r *Registry) Register(resourceType string, handler Handler) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if resourceType == "" {
		if r.wildcard != nil {
			return errors.ErrDuplicateRegistration.WithMessage("a wildcard trigger is already registered")
		}
		r.wildcard = handler
		return nil
	}

	if _, exists := r.byType[resourceType]; exists {
		return errors.ErrDuplicateRegistration.WithMessage("a trigger is already registered for resource type %q", resourceType)
	}
	r.byType[resourceType] = handler
	return nil
}

// Dispatch routes payload to the handler registered for its resource type,
// falling back to the wildcard. A payload no handler wants is dropped.
func (r *Registry) Dispatch(ctx context.Context, payload models.DispatchPayload) error {
	r.mu.RLock()
	handler, ok := r.byType[payload.ResourceType]
	if !ok {
		handler = r.wildcard
	}
	r.mu.RUnlock()

	if handler == nil {
		r.log.Debug(ctx, "no trigger registered, dropping payload", logger.Fields{
			"resource_type":   payload.ResourceType,
			"subscription_id": payload.SubscriptionID,
		})
		return nil
	}
	return handler(ctx, payload)
}
