package auth

import (
	"context"
	"strings"
	"time"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
	"github.com/graphbind/graphbind/pkg/utils"
)

// tokenProvider resolves identity descriptors to raw bearer tokens.
type tokenProvider struct {
	aad     AADClient
	store   service.TokenStore
	metrics *monitoring.Metrics
	log     logger.Logger
	now     func() time.Time
}

// NewTokenProvider creates the mode-dispatching TokenProvider.
func NewTokenProvider(aad AADClient, store service.TokenStore, metrics *monitoring.Metrics, log logger.Logger) service.TokenProvider {
	return &tokenProvider{
		aad:     aad,
		store:   store,
		metrics: metrics,
		log:     log.WithComponent("token_provider"),
		now:     time.Now,
	}
}

func (p *tokenProvider) Acquire(ctx context.Context, d models.IdentityDescriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}

	token, err := p.acquire(ctx, d)
	result := "success"
	if err != nil {
		result = "failure"
	}
	p.metrics.RecordTokenAcquisition(string(d.Mode), result)
	return token, err
}

func (p *tokenProvider) acquire(ctx context.Context, d models.IdentityDescriptor) (string, error) {
	switch d.Mode {
	case constants.ModeClientCredentials:
		return p.aad.ClientCredentialsToken(ctx, d.TargetResource())
	case constants.ModeUserFromToken:
		return p.fromUserToken(ctx, d)
	case constants.ModeUserFromID:
		return p.fromUserID(ctx, d)
	case constants.ModeUserFromRequest:
		return p.fromRequest(d)
	default:
		return "", errors.ErrAuthConfiguration.WithMessage("unknown identity mode %q", d.Mode)
	}
}

// fromUserToken performs an on-behalf-of exchange unless the supplied token
// already targets the requested resource. AAD rejects self-audience exchanges
// with AADSTS50013, so that case returns the token unchanged.
func (p *tokenProvider) fromUserToken(ctx context.Context, d models.IdentityDescriptor) (string, error) {
	claims, err := utils.DecodeTokenClaims(d.UserToken)
	if err != nil {
		return "", err
	}
	if claims.Audience == d.TargetResource() {
		return d.UserToken, nil
	}
	return p.aad.OnBehalfOfToken(ctx, d.UserToken, d.TargetResource())
}

// fromUserID looks up the stored token and retries once after a refresh when
// the record is expired or malformed, provided the provider is refreshable.
func (p *tokenProvider) fromUserID(ctx context.Context, d models.IdentityDescriptor) (string, error) {
	provider := d.TokenStoreProvider()

	stored, err := p.store.GetToken(ctx, provider, d.UserID)
	if err != nil {
		return "", err
	}

	if p.usable(stored) {
		return stored.AccessToken, nil
	}

	if !provider.Refreshable() {
		return "", errors.ErrTokenExpired.WithMessage("stored token for user %s has expired and provider %s is not refreshable", d.UserID, provider)
	}

	p.log.Info(ctx, "stored token expired, refreshing", logger.Fields{
		"user_id":  d.UserID,
		"provider": string(provider),
	})
	if err := p.store.Refresh(ctx, provider, d.UserID); err != nil {
		return "", err
	}

	stored, err = p.store.GetToken(ctx, provider, d.UserID)
	if err != nil {
		return "", err
	}
	if !p.usable(stored) {
		return "", errors.ErrTokenExpired.WithMessage("stored token for user %s is still expired after refresh", d.UserID)
	}
	return stored.AccessToken, nil
}

// fromRequest reads the bearer token from the Authorization header, falling
// back to the auth-host id-token header.
func (p *tokenProvider) fromRequest(d models.IdentityDescriptor) (string, error) {
	if authz := d.Request.Header.Get(constants.HeaderAuthorization); authz != "" {
		token := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
		if token != "" {
			return token, nil
		}
	}
	if token := d.Request.Header.Get(constants.HeaderAADIDToken); token != "" {
		return token, nil
	}
	return "", errors.ErrMissingCredential.WithMessage("request carries no bearer token")
}

// usable reports whether a stored token parses as a JWT and is outside the
// proactive refresh buffer.
func (p *tokenProvider) usable(stored *models.StoredToken) bool {
	if stored.AccessToken == "" || !utils.IsWellFormedToken(stored.AccessToken) {
		return false
	}
	expiresOn := stored.ExpiresOn
	if expiresOn.IsZero() {
		if claims, err := utils.DecodeTokenClaims(stored.AccessToken); err == nil {
			expiresOn = claims.ExpiresAt
		}
	}
	return !utils.ExpiresWithinBuffer(expiresOn, p.now())
}
