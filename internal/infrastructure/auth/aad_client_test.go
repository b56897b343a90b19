package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

func newAADFixture(t *testing.T, handler http.HandlerFunc) AADClient {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	cfg := &config.AuthConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		TenantURL:    ts.URL,
	}
	return NewAADClient(cfg, ts.Client(), logger.NewNoopLogger())
}

func TestClientCredentialsToken(t *testing.T) {
	client := newAADFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "/oauth2/token", r.URL.Path)
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "client-secret", r.PostForm.Get("client_secret"))
		assert.Equal(t, "https://graph.microsoft.com", r.PostForm.Get("resource"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"app-token","expires_in":"3599"}`))
	})

	token, err := client.ClientCredentialsToken(context.Background(), "https://graph.microsoft.com")
	require.NoError(t, err)
	assert.Equal(t, "app-token", token)
}

func TestOnBehalfOfToken(t *testing.T) {
	client := newAADFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, oboGrantType, r.PostForm.Get("grant_type"))
		assert.Equal(t, "user-assertion", r.PostForm.Get("assertion"))
		assert.Equal(t, "on_behalf_of", r.PostForm.Get("requested_token_use"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"obo-token"}`))
	})

	token, err := client.OnBehalfOfToken(context.Background(), "user-assertion", "https://graph.microsoft.com")
	require.NoError(t, err)
	assert.Equal(t, "obo-token", token)
}

func TestRequestTokenRejection(t *testing.T) {
	client := newAADFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"AADSTS50013"}`))
	})

	_, err := client.OnBehalfOfToken(context.Background(), "bad-assertion", "https://graph.microsoft.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstreamAuth))
	assert.ErrorContains(t, err, "400")
}

func TestRequestTokenEmptyResponse(t *testing.T) {
	client := newAADFixture(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.ClientCredentialsToken(context.Background(), "https://graph.microsoft.com")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUpstreamAuth))
}
