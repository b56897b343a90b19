// Package auth implements token acquisition, the per-user token store and
// the authenticated client cache.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/pkg/errors"
	"github.com/graphbind/graphbind/pkg/logger"
)

const oboGrantType = "urn:ietf:params:oauth:grant-type:jwt-bearer"

// AADClient exchanges application credentials and user assertions for access
// tokens at the AAD token endpoint.
type AADClient interface {
	// ClientCredentialsToken obtains an application-level token for resource.
	ClientCredentialsToken(ctx context.Context, resource string) (string, error)

	// OnBehalfOfToken exchanges a user assertion for a token targeting
	// resource, using the application credential.
	OnBehalfOfToken(ctx context.Context, userAssertion, resource string) (string, error)
}

type aadClient struct {
	cfg        *config.AuthConfig
	httpClient *http.Client
	log        logger.Logger
}

// NewAADClient creates an AADClient against the configured tenant.
func NewAADClient(cfg *config.AuthConfig, httpClient *http.Client, log logger.Logger) AADClient {
	return &aadClient{
		cfg:        cfg,
		httpClient: httpClient,
		log:        log.WithComponent("aad_client"),
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

func (c *aadClient) ClientCredentialsToken(ctx context.Context, resource string) (string, error) {
	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.cfg.ClientID},
		"client_secret": {c.cfg.ClientSecret},
		"resource":      {resource},
	}
	return c.requestToken(ctx, form)
}

func (c *aadClient) OnBehalfOfToken(ctx context.Context, userAssertion, resource string) (string, error) {
	form := url.Values{
		"grant_type":          {oboGrantType},
		"client_id":           {c.cfg.ClientID},
		"client_secret":       {c.cfg.ClientSecret},
		"assertion":           {userAssertion},
		"resource":            {resource},
		"requested_token_use": {"on_behalf_of"},
	}
	return c.requestToken(ctx, form)
}

func (c *aadClient) requestToken(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.ErrInternal.WithError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.ErrUpstreamAuth.WithMessage("token endpoint unreachable").WithError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", errors.ErrUpstreamAuth.WithMessage("failed to read token response").WithError(err)
	}

	if resp.StatusCode != http.StatusOK {
		c.log.Warn(ctx, "token endpoint rejected request", logger.Fields{
			"status": resp.StatusCode,
			"grant":  form.Get("grant_type"),
		})
		return "", errors.ErrUpstreamAuth.
			WithMessage("token endpoint returned %d", resp.StatusCode).
			WithError(fmt.Errorf("%s", strings.TrimSpace(string(body))))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", errors.ErrUpstreamAuth.WithMessage("malformed token response").WithError(err)
	}
	if tr.AccessToken == "" {
		return "", errors.ErrUpstreamAuth.WithMessage("token response carried no access_token")
	}
	return tr.AccessToken, nil
}
