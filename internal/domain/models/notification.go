package models

import (
	"encoding/json"
	"strings"

	"github.com/graphbind/graphbind/pkg/constants"
)

// ResourceData is the typed reference embedded in a notification entry.
type ResourceData struct {
	ID        string `json:"id"`
	ODataType string `json:"@odata.type"`
}

// Notification is a single entry in an inbound change-notification batch.
// It references a changed resource; it does not carry the resource payload.
type Notification struct {
	SubscriptionID                 string        `json:"subscriptionId"`
	ClientState                    string        `json:"clientState"`
	Resource                       string        `json:"resource"`
	ResourceData                   *ResourceData `json:"resourceData,omitempty"`
	SubscriptionExpirationDateTime string        `json:"subscriptionExpirationDateTime,omitempty"`
	ChangeType                     string        `json:"changeType,omitempty"`
}

// NotificationBatch is one inbound HTTP delivery.
type NotificationBatch struct {
	Value []Notification `json:"value"`
}

// ResourceType infers the type tag used for trigger routing. Notifications
// for the security/alerts family omit the resourceData type field, so the
// resource path decides there.
func (n Notification) ResourceType() string {
	if n.ResourceData != nil && n.ResourceData.ODataType != "" {
		return n.ResourceData.ODataType
	}
	if strings.HasPrefix(strings.ToLower(n.Resource), "security/alerts") {
		return constants.ResourceTypeSecurityAlert
	}
	return ""
}

// DispatchPayload is a fetched, dispatch-ready resource tagged with its type.
type DispatchPayload struct {
	SubscriptionID string
	UserID         string
	ResourceType   string
	Resource       string
	Data           json.RawMessage
}
