package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"

	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

const tokenKeyPrefix = "token_store:"

// redisTokenStore is a redis-backed implementation of the per-user token
// store. Refresh calls the auth host, which re-acquires the provider token
// and returns the updated record; the store then persists it.
type redisTokenStore struct {
	client     *redis.Client
	cfg        *config.TokenStoreConfig
	httpClient *http.Client
	log        logger.Logger
}

// NewRedisTokenStore creates a TokenStore backed by redis.
func NewRedisTokenStore(client *redis.Client, cfg *config.TokenStoreConfig, httpClient *http.Client, log logger.Logger) service.TokenStore {
	return &redisTokenStore{
		client:     client,
		cfg:        cfg,
		httpClient: httpClient,
		log:        log.WithComponent("token_store"),
	}
}

func tokenKey(provider constants.IdentityProvider, userID string) string {
	return fmt.Sprintf("%s%s:%s", tokenKeyPrefix, provider, userID)
}

func (s *redisTokenStore) GetToken(ctx context.Context, provider constants.IdentityProvider, userID string) (*models.StoredToken, error) {
	data, err := s.client.Get(ctx, tokenKey(provider, userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errors.ErrMissingCredential.WithMessage("no stored token for user %s with provider %s", userID, provider)
		}
		return nil, errors.ErrInternal.WithMessage("token store read failed").WithError(err)
	}

	var token models.StoredToken
	if err := json.Unmarshal([]byte(data), &token); err != nil {
		return nil, errors.ErrMissingCredential.WithMessage("stored token for user %s is malformed", userID).WithError(err)
	}
	return &token, nil
}

// Refresh asks the auth host to refresh the user's provider token, then
// persists the refreshed record. The request authenticates with a short-lived
// assertion signed by the website signing key.
func (s *redisTokenStore) Refresh(ctx context.Context, provider constants.IdentityProvider, userID string) error {
	if !provider.Refreshable() {
		return errors.ErrTokenExpired.WithMessage("provider %s does not support refresh", provider)
	}

	assertion, err := s.signRefreshAssertion(userID)
	if err != nil {
		return errors.ErrInternal.WithMessage("failed to sign refresh assertion").WithError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.RefreshEndpoint(), nil)
	if err != nil {
		return errors.ErrInternal.WithError(err)
	}
	req.Header.Set("X-ZUMO-AUTH", assertion)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return errors.ErrUpstreamAuth.WithMessage("token refresh endpoint unreachable").WithError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.ErrUpstreamAuth.WithMessage("token refresh returned %d", resp.StatusCode)
	}

	var refreshed []models.StoredToken
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return errors.ErrUpstreamAuth.WithMessage("malformed refresh response").WithError(err)
	}

	for _, token := range refreshed {
		if token.Provider != provider {
			continue
		}
		token.UserID = userID
		if err := s.save(ctx, &token); err != nil {
			return err
		}
		s.log.Info(ctx, "refreshed stored token", logger.Fields{
			"provider": string(provider),
			"user_id":  userID,
		})
		return nil
	}

	return errors.ErrUpstreamAuth.WithMessage("refresh response carried no token for provider %s", provider)
}

func (s *redisTokenStore) save(ctx context.Context, token *models.StoredToken) error {
	data, err := json.Marshal(token)
	if err != nil {
		return errors.ErrInternal.WithError(err)
	}
	if err := s.client.Set(ctx, tokenKey(token.Provider, token.UserID), data, 0).Err(); err != nil {
		return errors.ErrInternal.WithMessage("token store write failed").WithError(err)
	}
	return nil
}

func (s *redisTokenStore) signRefreshAssertion(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.cfg.AuthHostname,
		Audience:  jwt.ClaimStrings{s.cfg.AuthHostname},
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.SigningKey))
}
