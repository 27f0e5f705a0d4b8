// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/stelvio-labs/authgate/pkg/logger"
	"github.com/stelvio-labs/authgate/pkg/storage"
)

// maxResponseSize caps how much of a provider response body we will read.
const maxResponseSize = 1 << 20 // 1MB

// stateBytes is the entropy of the generated CSRF state parameter.
const stateBytes = 24

// Compile-time interface compliance check.
var _ IdentityProvider = (*Client)(nil)

// Client implements IdentityProvider against an OAuth2 provider with
// explicit endpoints, delegating the protocol mechanics to
// golang.org/x/oauth2.
type Client struct {
	oauth       oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client for all provider round trips.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient validates the config and creates a provider client.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid provider config: %w", err)
	}

	c := &Client{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userInfoURL: cfg.UserInfoURL,
		httpClient:  http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// AuthorizationURL generates a fresh PKCE verifier and CSRF state and
// builds the provider authorization URL carrying the S256 challenge.
func (c *Client) AuthorizationURL() (string, string, string, error) {
	verifier := oauth2.GenerateVerifier()

	stateRaw := make([]byte, stateBytes)
	if _, err := rand.Read(stateRaw); err != nil {
		return "", "", "", fmt.Errorf("failed to generate state: %w", err)
	}
	state := base64.RawURLEncoding.EncodeToString(stateRaw)

	authURL := c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))

	logger.Debugw("built authorization URL",
		"auth_endpoint", c.oauth.Endpoint.AuthURL,
		"scopes", c.oauth.Scopes,
	)

	return authURL, state, verifier, nil
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Tokens, error) {
	if code == "" {
		return nil, &TokenExchangeError{Op: "code", Err: fmt.Errorf("authorization code is empty")}
	}

	tok, err := c.oauth.Exchange(c.httpContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, &TokenExchangeError{Op: "code", Err: err}
	}

	tokens := fromOAuth2Token(tok)
	logger.Infow("authorization code exchange successful",
		"has_refresh_token", tokens.RefreshToken != "",
		"expires_in", tokens.ExpiresIn,
	)
	return tokens, nil
}

// ExchangeRefreshToken exchanges a refresh token for a new token pair.
func (c *Client) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Tokens, error) {
	if refreshToken == "" {
		return nil, &TokenExchangeError{Op: "refresh_token", Err: fmt.Errorf("refresh token is empty")}
	}

	// A token source seeded with only a refresh token always performs the
	// refresh grant on first use.
	src := c.oauth.TokenSource(c.httpContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return nil, &TokenExchangeError{Op: "refresh_token", Err: err}
	}

	tokens := fromOAuth2Token(tok)
	logger.Infow("refresh token exchange successful",
		"has_new_refresh_token", tokens.RefreshToken != "",
		"expires_in", tokens.ExpiresIn,
	)
	return tokens, nil
}

// FetchProfile performs the bearer-authenticated profile GET.
func (c *Client) FetchProfile(ctx context.Context, accessToken string) (storage.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return storage.Profile{}, &ProfileFetchError{Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return storage.Profile{}, &ProfileFetchError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return storage.Profile{}, &ProfileFetchError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return storage.Profile{}, &ProfileFetchError{
			Err: fmt.Errorf("userinfo endpoint returned status %d", resp.StatusCode),
		}
	}

	var p storage.Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return storage.Profile{}, &ProfileFetchError{Err: fmt.Errorf("malformed userinfo response: %w", err)}
	}
	if p.ID == "" {
		return storage.Profile{}, &ProfileFetchError{Err: fmt.Errorf("userinfo response missing user id")}
	}

	return p, nil
}

// httpContext injects the configured HTTP client into ctx so the oauth2
// package uses it for token requests.
func (c *Client) httpContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// fromOAuth2Token converts an oauth2 token to the wire-agnostic Tokens,
// recovering the remaining lifetime from the token expiry.
func fromOAuth2Token(tok *oauth2.Token) *Tokens {
	var expiresIn time.Duration
	if !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry).Round(time.Second)
		if expiresIn < 0 {
			expiresIn = 0
		}
	}
	return &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}
