// Package service defines the domain-level contracts between graphbind's
// components. Implementations live under internal/infrastructure.
package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/constants"
)

// TokenProvider produces a raw bearer token for an identity descriptor.
type TokenProvider interface {
	// Acquire validates the descriptor and obtains a token via the
	// mode-appropriate identity back-end.
	Acquire(ctx context.Context, descriptor models.IdentityDescriptor) (string, error)
}

// TokenStore is the durable per-user token store consulted by the
// user-from-id identity mode.
type TokenStore interface {
	// GetToken returns the stored token for (provider, userID), or
	// ErrMissingCredential when none exists.
	GetToken(ctx context.Context, provider constants.IdentityProvider, userID string) (*models.StoredToken, error)

	// Refresh asks the token-store backend to refresh the stored token.
	// Only refreshable providers support this.
	Refresh(ctx context.Context, provider constants.IdentityProvider, userID string) error
}

// GraphAPI is an authenticated handle onto the remote resource API. The
// bearer credential behind a handle can be swapped in place, so holders
// observe refreshed credentials on their next call.
type GraphAPI interface {
	// GetResource fetches an arbitrary resource path relative to the API root.
	GetResource(ctx context.Context, resourcePath string) (json.RawMessage, error)

	// CreateSubscription registers a change-notification subscription and
	// returns it with the remotely assigned id.
	CreateSubscription(ctx context.Context, sub models.Subscription) (*models.Subscription, error)

	// DeleteSubscription removes a subscription by id.
	DeleteSubscription(ctx context.Context, id string) error

	// RenewSubscription extends a subscription's expiration.
	RenewSubscription(ctx context.Context, id string, expiresAt time.Time) (*models.Subscription, error)
}

// ClientCache resolves identity descriptors to cached Graph client handles,
// refreshing credentials in place on expiry.
type ClientCache interface {
	GetClient(ctx context.Context, descriptor models.IdentityDescriptor) (GraphAPI, error)
}

// SubscriptionStore persists subscription-to-user mappings, one record per
// subscription id.
type SubscriptionStore interface {
	// Save writes the entry, overwriting any existing record for its id.
	Save(ctx context.Context, entry models.SubscriptionEntry) error

	// Get reads a single entry, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.SubscriptionEntry, error)

	// GetAll lists every readable entry. Records that fail to deserialize
	// are skipped rather than aborting the listing.
	GetAll(ctx context.Context) ([]models.SubscriptionEntry, error)

	// Delete removes the entry if present; absence is not an error.
	Delete(ctx context.Context, id string) error
}
