package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/pkg/errors"
)

func newGraphFixture(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return NewClient(ts.URL, ts.Client(), "initial-token")
}

func TestGetResourceSendsBearer(t *testing.T) {
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/messages/abc", r.URL.Path)
		assert.Equal(t, "Bearer initial-token", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"id":"abc"}`))
	})

	body, err := client.GetResource(context.Background(), "me/messages/abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"abc"}`, string(body))
}

func TestSetBearerTokenSwapsCredentialInPlace(t *testing.T) {
	var seen []string
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := client.GetResource(context.Background(), "me")
	require.NoError(t, err)

	client.SetBearerToken("refreshed-token")
	_, err = client.GetResource(context.Background(), "me")
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer initial-token", "Bearer refreshed-token"}, seen)
}

func TestGetResourceNotFound(t *testing.T) {
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetResource(context.Background(), "me/messages/gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCreateSubscription(t *testing.T) {
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/subscriptions", r.URL.Path)

		var sub models.Subscription
		require.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		sub.ID = "sub-1"
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(sub)
	})

	created, err := client.CreateSubscription(context.Background(), models.Subscription{
		Resource:   "me/messages",
		ChangeType: "created",
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-1", created.ID)
	assert.Equal(t, "me/messages", created.Resource)
}

func TestCreateSubscriptionWithoutIDFails(t *testing.T) {
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"resource":"me/messages"}`))
	})

	_, err := client.CreateSubscription(context.Background(), models.Subscription{Resource: "me/messages"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrSubscriptionAction))
}

func TestDeleteSubscriptionPassesNotFoundThrough(t *testing.T) {
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.DeleteSubscription(context.Background(), "sub-gone")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound), "a vanished subscription is reported as not found, not as a rejection")
}

func TestRenewSubscription(t *testing.T) {
	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	client := newGraphFixture(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/subscriptions/sub-1", r.URL.Path)

		var patch struct {
			ExpirationDateTime time.Time `json:"expirationDateTime"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
		_ = json.NewEncoder(w).Encode(models.Subscription{ID: "sub-1", ExpirationDateTime: patch.ExpirationDateTime})
	})

	renewed, err := client.RenewSubscription(context.Background(), "sub-1", expiry)
	require.NoError(t, err)
	assert.True(t, expiry.Equal(renewed.ExpirationDateTime))
}
