package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/constants"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

const testSigningKey = "store-signing-key"

func newStoreFixture(t *testing.T, authHost string, httpClient *http.Client) (*redisTokenStore, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	cfg := &config.TokenStoreConfig{
		RedisAddress: mr.Addr(),
		AuthHostname: authHost,
		SigningKey:   testSigningKey,
	}
	store := NewRedisTokenStore(client, cfg, httpClient, logger.NewNoopLogger()).(*redisTokenStore)
	return store, client
}

func seedToken(t *testing.T, client *redis.Client, token models.StoredToken) {
	t.Helper()
	data, err := json.Marshal(token)
	require.NoError(t, err)
	key := tokenKey(token.Provider, token.UserID)
	require.NoError(t, client.Set(context.Background(), key, data, 0).Err())
}

func TestGetToken_Missing(t *testing.T) {
	store, _ := newStoreFixture(t, "auth.example.test", http.DefaultClient)

	_, err := store.GetToken(context.Background(), constants.ProviderAAD, "nobody")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingCredential))
}

func TestGetToken_RoundTrip(t *testing.T) {
	store, client := newStoreFixture(t, "auth.example.test", http.DefaultClient)

	seeded := models.StoredToken{
		Provider:    constants.ProviderAAD,
		UserID:      "user-1",
		AccessToken: "stored-access-token",
		ExpiresOn:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}
	seedToken(t, client, seeded)

	got, err := store.GetToken(context.Background(), constants.ProviderAAD, "user-1")
	require.NoError(t, err)
	assert.Equal(t, seeded.AccessToken, got.AccessToken)
	assert.True(t, seeded.ExpiresOn.Equal(got.ExpiresOn))
}

func TestGetToken_MalformedRecord(t *testing.T) {
	store, client := newStoreFixture(t, "auth.example.test", http.DefaultClient)
	require.NoError(t, client.Set(context.Background(),
		tokenKey(constants.ProviderAAD, "user-1"), "not-json", 0).Err())

	_, err := store.GetToken(context.Background(), constants.ProviderAAD, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrMissingCredential))
}

func TestRefresh_NonRefreshableProvider(t *testing.T) {
	store, _ := newStoreFixture(t, "auth.example.test", http.DefaultClient)

	err := store.Refresh(context.Background(), constants.ProviderFacebook, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTokenExpired))
}

func TestRefresh_PersistsRefreshedToken(t *testing.T) {
	refreshed := models.StoredToken{
		Provider:    constants.ProviderAAD,
		AccessToken: "fresh-access-token",
		ExpiresOn:   time.Now().Add(time.Hour).UTC().Truncate(time.Second),
	}

	var gotAssertion string
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.Equal(t, "/.auth/refresh", r.URL.Path) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		gotAssertion = r.Header.Get("X-ZUMO-AUTH")
		// The refresh endpoint returns the full provider token list.
		_ = json.NewEncoder(w).Encode([]models.StoredToken{
			{Provider: constants.ProviderGoogle, AccessToken: "other"},
			refreshed,
		})
	}))
	defer ts.Close()

	authHost := strings.TrimPrefix(ts.URL, "https://")
	store, _ := newStoreFixture(t, authHost, ts.Client())

	err := store.Refresh(context.Background(), constants.ProviderAAD, "user-1")
	require.NoError(t, err)

	// The request must authenticate with an assertion signed by our key,
	// naming the user as subject.
	require.NotEmpty(t, gotAssertion)
	claims := jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(gotAssertion, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSigningKey), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)

	got, err := store.GetToken(context.Background(), constants.ProviderAAD, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "fresh-access-token", got.AccessToken)
	assert.Equal(t, "user-1", got.UserID, "user id is stamped onto the persisted record")
}

func TestRefresh_NoTokenForProvider(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode([]models.StoredToken{
			{Provider: constants.ProviderGoogle, AccessToken: "other"},
		})
	}))
	defer ts.Close()

	store, _ := newStoreFixture(t, strings.TrimPrefix(ts.URL, "https://"), ts.Client())

	err := store.Refresh(context.Background(), constants.ProviderAAD, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstreamAuth))
}

func TestRefresh_UpstreamFailure(t *testing.T) {
	ts := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	store, _ := newStoreFixture(t, strings.TrimPrefix(ts.URL, "https://"), ts.Client())

	err := store.Refresh(context.Background(), constants.ProviderAAD, "user-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstreamAuth))
}
