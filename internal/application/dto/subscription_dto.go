// Package dto defines the request and response shapes exchanged with the
// binding layer and HTTP handlers.
package dto

import (
	"time"

	"github.com/graphbind/graphbind/pkg/constants"
)

// SubscriptionActionRequest describes one lifecycle action. Exactly one
// action is performed per invocation; the manager validates that only the
// fields meaningful for that action are populated.
type SubscriptionActionRequest struct {
	Action constants.SubscriptionAction `json:"action"`

	// Resource is the target resource path. Create only.
	Resource string `json:"resource,omitempty"`

	// ChangeTypes is the set of change types to subscribe to. Create only;
	// defaults to created+updated+deleted when empty.
	ChangeTypes []constants.ChangeType `json:"changeTypes,omitempty"`

	// ClientStates holds one opaque secret per desired subscription. When
	// empty, Create generates a single random secret.
	ClientStates []string `json:"clientStates,omitempty"`

	// SubscriptionIDs names the subscriptions to delete or refresh.
	SubscriptionIDs []string `json:"subscriptionIds,omitempty"`

	// Expiration requests a specific expiration; capped at the remote API's
	// maximum lifetime. Zero means "as long as allowed".
	Expiration time.Time `json:"expiration,omitempty"`
}

// SubscriptionActionResult reports the outcome of a Create action. Items
// that failed simply do not appear among the returned subscriptions.
type SubscriptionActionResult struct {
	Subscriptions []SubscriptionSummary `json:"subscriptions,omitempty"`
}

// SubscriptionSummary is the caller-visible view of a created subscription.
type SubscriptionSummary struct {
	ID                 string    `json:"id"`
	Resource           string    `json:"resource"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}
