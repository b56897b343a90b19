// Package graph implements the authenticated Microsoft Graph REST client
// handle and its subscription API operations.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/graphbind/graphbind/pkg/errors"
)

// Client is an authenticated handle onto the Graph REST API. The bearer
// credential is guarded by a lock so the client cache can swap it in place;
// existing holders observe the refreshed credential on their next call.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu     sync.RWMutex
	bearer string
}

// NewClient creates a Graph client carrying bearer as its credential.
// httpClient is shared and injected; the handle never owns it.
func NewClient(baseURL string, httpClient *http.Client, bearer string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		bearer:     bearer,
	}
}

// SetBearerToken replaces the credential inside the handle.
func (c *Client) SetBearerToken(bearer string) {
	c.mu.Lock()
	c.bearer = bearer
	c.mu.Unlock()
}

// BearerToken returns the current credential.
func (c *Client) BearerToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer
}

// GetResource fetches an arbitrary resource path relative to the API root.
func (c *Client) GetResource(ctx context.Context, resourcePath string) (json.RawMessage, error) {
	body, _, err := c.do(ctx, http.MethodGet, resourcePath, nil)
	return body, err
}

func (c *Client) do(ctx context.Context, method, resourcePath string, payload interface{}) (json.RawMessage, int, error) {
	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, errors.ErrInternal.WithError(err)
		}
		reqBody = strings.NewReader(string(data))
	}

	url := c.baseURL + "/" + strings.TrimLeft(resourcePath, "/")
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, 0, errors.ErrInternal.WithError(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.BearerToken())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, errors.ErrInternal.WithMessage("graph request failed").WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, resp.StatusCode, errors.ErrInternal.WithMessage("failed to read graph response").WithError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusNotFound {
			return nil, resp.StatusCode, errors.ErrNotFound.WithMessage("graph resource %s not found", resourcePath)
		}
		return nil, resp.StatusCode, errors.ErrInternal.
			WithMessage("graph returned %d for %s %s", resp.StatusCode, method, resourcePath).
			WithError(fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}
	return body, resp.StatusCode, nil
}
