package models

import (
	"strings"
	"time"

	"github.com/graphbind/graphbind/pkg/constants"
)

// Subscription mirrors the Graph change-notification subscription resource.
// The id is authoritative and assigned by the remote API on creation.
type Subscription struct {
	ID                 string    `json:"id,omitempty"`
	Resource           string    `json:"resource"`
	ChangeType         string    `json:"changeType"`
	NotificationURL    string    `json:"notificationUrl"`
	ClientState        string    `json:"clientState"`
	ExpirationDateTime time.Time `json:"expirationDateTime"`
}

// SubscriptionEntry is the persisted record mapping a subscription to the
// user it was created for. One file per entry under the store root.
type SubscriptionEntry struct {
	Subscription Subscription `json:"subscription"`
	UserID       string       `json:"userId"`
}

// JoinChangeTypes renders a change-type set in Graph wire format:
// comma-joined lowercase names. Falls back to the default set when empty.
func JoinChangeTypes(changeTypes []constants.ChangeType) string {
	if len(changeTypes) == 0 {
		changeTypes = constants.DefaultChangeTypes
	}
	names := make([]string, len(changeTypes))
	for i, ct := range changeTypes {
		names[i] = strings.ToLower(string(ct))
	}
	return strings.Join(names, ",")
}

// CapExpiration clamps a requested expiration to Graph's maximum allowed
// subscription lifetime, measured from now.
func CapExpiration(requested time.Time, now time.Time) time.Time {
	max := now.Add(constants.GraphSubscriptionMaxLifetime)
	if requested.IsZero() || requested.After(max) {
		return max
	}
	return requested
}
