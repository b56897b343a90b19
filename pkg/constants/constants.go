// Package constants defines system-wide constants for the graphbind service.
package constants

import "time"

// ================================================================================
// Identity Mode Constants
// ================================================================================

// IdentityMode selects how a Graph access token is obtained.
type IdentityMode string

const (
	// ModeUserFromRequest reads the bearer token from the inbound HTTP request.
	ModeUserFromRequest IdentityMode = "user_from_request"

	// ModeUserFromToken exchanges a caller-supplied user token on-behalf-of.
	ModeUserFromToken IdentityMode = "user_from_token"

	// ModeUserFromID looks up a stored token for a user id from the token store.
	ModeUserFromID IdentityMode = "user_from_id"

	// ModeClientCredentials uses the application credential, no user context.
	ModeClientCredentials IdentityMode = "client_credentials"
)

// ================================================================================
// Identity Provider Constants
// ================================================================================

// IdentityProvider names a token-store identity provider.
type IdentityProvider string

const (
	// ProviderAAD is the Azure Active Directory provider. It is the only
	// provider whose stored tokens can be refreshed through the auth host.
	ProviderAAD IdentityProvider = "aad"

	// ProviderFacebook and friends are lookup-only: an expired stored token
	// for these providers cannot be recovered server-side.
	ProviderFacebook IdentityProvider = "facebook"
	ProviderGoogle   IdentityProvider = "google"
	ProviderTwitter  IdentityProvider = "twitter"
)

// Refreshable reports whether the auth host can refresh tokens for p.
func (p IdentityProvider) Refreshable() bool {
	return p == ProviderAAD
}

// ================================================================================
// Change Type Constants
// ================================================================================

// ChangeType is a Graph subscription change type.
type ChangeType string

const (
	ChangeTypeCreated ChangeType = "created"
	ChangeTypeUpdated ChangeType = "updated"
	ChangeTypeDeleted ChangeType = "deleted"
)

// DefaultChangeTypes is the change-type set used when a subscription request
// does not name any.
var DefaultChangeTypes = []ChangeType{ChangeTypeCreated, ChangeTypeUpdated, ChangeTypeDeleted}

// ================================================================================
// Subscription Action Constants
// ================================================================================

// SubscriptionAction is a lifecycle action against the remote subscription API.
type SubscriptionAction string

const (
	ActionCreate  SubscriptionAction = "create"
	ActionDelete  SubscriptionAction = "delete"
	ActionRefresh SubscriptionAction = "refresh"
)

// ================================================================================
// Token Lifetime Constants
// ================================================================================

const (
	// TokenExpiryBuffer is subtracted from a token's expiry when deciding
	// whether it is still usable, so a token is refreshed before it can
	// expire mid-call.
	TokenExpiryBuffer = 5 * time.Minute

	// ClientCacheDefaultTTL bounds how long an idle cached Graph client
	// survives before the janitor sweeps it.
	ClientCacheDefaultTTL = 1 * time.Hour

	// ClientCacheSweepInterval is the go-cache janitor interval.
	ClientCacheSweepInterval = 10 * time.Minute
)

// ================================================================================
// Graph Subscription Constants
// ================================================================================

const (
	// GraphSubscriptionMaxLifetime is the longest expiration Graph accepts
	// for a mail/contacts/events subscription (4230 minutes).
	GraphSubscriptionMaxLifetime = 4230 * time.Minute

	// GraphBaseURL is the default Microsoft Graph endpoint.
	GraphBaseURL = "https://graph.microsoft.com/v1.0"

	// GraphResource is the default audience requested for Graph tokens.
	GraphResource = "https://graph.microsoft.com"
)

// ================================================================================
// HTTP Header and Query Constants
// ================================================================================

const (
	// HeaderAuthorization is the standard bearer-token header.
	HeaderAuthorization = "Authorization"

	// HeaderAADIDToken is the auth-host header carrying the AAD id token when
	// the Authorization header is consumed upstream.
	HeaderAADIDToken = "X-MS-TOKEN-AAD-ID-TOKEN"

	// QueryValidationToken marks a subscription validation handshake.
	QueryValidationToken = "validationToken"
)

// ResourceTypeSecurityAlert is the type tag assigned to notifications for the
// security/alerts resource family, which omits the resourceData type field.
const ResourceTypeSecurityAlert = "#Microsoft.Graph.Alert"

// ================================================================================
// Context Keys
// ================================================================================

// ContextKey is the type used for values stored on a request context.
type ContextKey string

const (
	// ContextKeyRequestID carries the per-request correlation id.
	ContextKeyRequestID ContextKey = "request_id"
)
