package auth

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/domain/service"
	"github.com/graphbind/graphbind/internal/infrastructure/graph"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
	"github.com/graphbind/graphbind/pkg/utils"
)

// cacheEntry pairs a client handle with its credential expiry. The mutex
// guards both fields together: a reader never observes a refreshed credential
// with a stale expiry or vice versa.
type cacheEntry struct {
	mu        sync.RWMutex
	client    *graph.Client
	expiresAt time.Time
}

// clientCache caches authenticated Graph client handles keyed by principal
// and scope set. Entries are TTL-swept by the go-cache janitor, bounding the
// cache without an explicit eviction policy.
type clientCache struct {
	provider   service.TokenProvider
	httpClient *http.Client
	baseURL    string
	metrics    *monitoring.Metrics
	log        logger.Logger
	now        func() time.Time

	entries  *gocache.Cache
	createMu sync.Mutex
	sf       singleflight.Group
}

// NewClientCache creates the ClientCache. httpClient is the single shared
// HTTP client injected at startup; every handle the cache constructs uses it.
func NewClientCache(provider service.TokenProvider, httpClient *http.Client, graphBaseURL string, metrics *monitoring.Metrics, log logger.Logger) service.ClientCache {
	return &clientCache{
		provider:   provider,
		httpClient: httpClient,
		baseURL:    graphBaseURL,
		metrics:    metrics,
		log:        log.WithComponent("client_cache"),
		now:        time.Now,
		entries:    gocache.New(constants.ClientCacheDefaultTTL, constants.ClientCacheSweepInterval),
	}
}

func (c *clientCache) GetClient(ctx context.Context, d models.IdentityDescriptor) (service.GraphAPI, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	key, err := c.cacheKey(d)
	if err != nil {
		return nil, err
	}

	entry := c.entry(key)

	// Fast path: cached handle with a credential outside the expiry buffer.
	entry.mu.RLock()
	if entry.client != nil && !utils.ExpiresWithinBuffer(entry.expiresAt, c.now()) {
		client := entry.client
		entry.mu.RUnlock()
		c.metrics.RecordCacheEvent("hit")
		return client, nil
	}
	entry.mu.RUnlock()

	// Populate or refresh. singleflight collapses concurrent callers for the
	// same key onto one token acquisition; the entry lock is held only for
	// the local credential+expiry swap, never across network I/O.
	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		entry.mu.RLock()
		if entry.client != nil && !utils.ExpiresWithinBuffer(entry.expiresAt, c.now()) {
			client := entry.client
			entry.mu.RUnlock()
			return client, nil
		}
		entry.mu.RUnlock()

		token, err := c.provider.Acquire(ctx, d)
		if err != nil {
			return nil, err
		}

		expiresAt := c.now().Add(constants.ClientCacheDefaultTTL)
		if claims, err := utils.DecodeTokenClaims(token); err == nil && !claims.ExpiresAt.IsZero() {
			expiresAt = claims.ExpiresAt
		}

		entry.mu.Lock()
		if entry.client == nil {
			entry.client = graph.NewClient(c.baseURL, c.httpClient, token)
			c.metrics.RecordCacheEvent("miss")
		} else {
			entry.client.SetBearerToken(token)
			c.metrics.RecordCacheEvent("refresh")
			c.log.Debug(ctx, "refreshed cached client credential", logger.Fields{"key": key})
		}
		entry.expiresAt = expiresAt
		client := entry.client
		entry.mu.Unlock()

		c.entries.Set(key, entry, gocache.DefaultExpiration)
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*graph.Client), nil
}

// entry returns the live cacheEntry for key, creating it when absent.
func (c *clientCache) entry(key string) *cacheEntry {
	if v, ok := c.entries.Get(key); ok {
		return v.(*cacheEntry)
	}
	c.createMu.Lock()
	defer c.createMu.Unlock()
	if v, ok := c.entries.Get(key); ok {
		return v.(*cacheEntry)
	}
	entry := &cacheEntry{}
	c.entries.Set(key, entry, gocache.DefaultExpiration)
	return entry
}

// cacheKey derives the cache key without calling the identity back-end, so a
// warm cache serves repeat calls with zero acquisitions. Token-carrying modes
// key on the decoded subject and sorted scopes; the remaining modes know
// their principal up front.
func (c *clientCache) cacheKey(d models.IdentityDescriptor) (string, error) {
	switch d.Mode {
	case constants.ModeUserFromToken:
		return tokenCacheKey(d.UserToken)
	case constants.ModeUserFromRequest:
		token := requestBearerToken(d.Request)
		if token == "" {
			return "", errors.ErrMissingCredential.WithMessage("request carries no bearer token")
		}
		return tokenCacheKey(token)
	case constants.ModeUserFromID:
		return string(d.TokenStoreProvider()) + ":" + d.UserID, nil
	case constants.ModeClientCredentials:
		return "app:" + d.TargetResource(), nil
	default:
		return "", errors.ErrAuthConfiguration.WithMessage("unknown identity mode %q", d.Mode)
	}
}

func tokenCacheKey(token string) (string, error) {
	claims, err := utils.DecodeTokenClaims(token)
	if err != nil {
		return "", err
	}
	return utils.ClientCacheKey(claims), nil
}

func requestBearerToken(req *http.Request) string {
	if authz := req.Header.Get(constants.HeaderAuthorization); authz != "" {
		return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
	}
	return req.Header.Get(constants.HeaderAADIDToken)
}
