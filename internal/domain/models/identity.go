package models

import (
	"net/http"

	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
)

// IdentityDescriptor is an immutable description of how to obtain a Graph
// access token. Exactly the fields required by Mode must be populated;
// Validate enforces this before any network call is made.
type IdentityDescriptor struct {
	Mode constants.IdentityMode

	// UserToken is a pre-existing user token. Required for ModeUserFromToken.
	UserToken string

	// UserID is the target user's id in the token store. Required for
	// ModeUserFromID.
	UserID string

	// Provider is the token-store identity provider for ModeUserFromID.
	// Defaults to AAD when empty.
	Provider constants.IdentityProvider

	// Request is the inbound HTTP request whose Authorization header carries
	// the token. Required for ModeUserFromRequest.
	Request *http.Request

	// Resource is the target audience for the issued token. Defaults to the
	// Graph resource when empty.
	Resource string
}

// UserFromRequest describes token extraction from an inbound HTTP request.
func UserFromRequest(req *http.Request) IdentityDescriptor {
	return IdentityDescriptor{Mode: constants.ModeUserFromRequest, Request: req}
}

// UserFromToken describes an on-behalf-of exchange of an existing user token.
func UserFromToken(token string) IdentityDescriptor {
	return IdentityDescriptor{Mode: constants.ModeUserFromToken, UserToken: token}
}

// UserFromID describes a token-store lookup for a stored user token.
func UserFromID(userID string, provider constants.IdentityProvider) IdentityDescriptor {
	return IdentityDescriptor{Mode: constants.ModeUserFromID, UserID: userID, Provider: provider}
}

// ClientCredentials describes an application-level token request.
func ClientCredentials() IdentityDescriptor {
	return IdentityDescriptor{Mode: constants.ModeClientCredentials}
}

// TargetResource returns the descriptor's resource, defaulting to Graph.
func (d IdentityDescriptor) TargetResource() string {
	if d.Resource != "" {
		return d.Resource
	}
	return constants.GraphResource
}

// TokenStoreProvider returns the descriptor's provider, defaulting to AAD.
func (d IdentityDescriptor) TokenStoreProvider() constants.IdentityProvider {
	if d.Provider != "" {
		return d.Provider
	}
	return constants.ProviderAAD
}

// Validate checks that the fields required by Mode are present.
func (d IdentityDescriptor) Validate() error {
	switch d.Mode {
	case constants.ModeClientCredentials:
		return nil
	case constants.ModeUserFromToken:
		if d.UserToken == "" {
			return errors.ErrAuthConfiguration.WithMessage("mode %s requires a user token", d.Mode)
		}
		return nil
	case constants.ModeUserFromID:
		if d.UserID == "" {
			return errors.ErrAuthConfiguration.WithMessage("mode %s requires a user id", d.Mode)
		}
		return nil
	case constants.ModeUserFromRequest:
		if d.Request == nil {
			return errors.ErrAuthConfiguration.WithMessage("mode %s requires an HTTP-triggered context", d.Mode)
		}
		return nil
	default:
		return errors.ErrAuthConfiguration.WithMessage("unknown identity mode %q", d.Mode)
	}
}
