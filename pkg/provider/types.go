// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package provider wraps the external round trips against the identity
// provider: authorization URL construction, code exchange, refresh token
// exchange, and the bearer-authenticated profile fetch.
//
// Every operation is a single round trip with no internal retry; failures
// propagate to the orchestrator, which decides whether they are the
// client's fault or ours.
package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/stelvio-labs/authgate/pkg/storage"
)

// Config describes the provider endpoints and client credentials.
type Config struct {
	ClientID     string
	ClientSecret string

	// AuthURL and TokenURL are the provider's authorization and token
	// endpoints.
	AuthURL  string
	TokenURL string

	// UserInfoURL is the profile endpoint, queried with a bearer token.
	UserInfoURL string

	// RedirectURL is this service's callback URL as registered with the
	// provider.
	RedirectURL string

	// Scopes requested at login.
	Scopes []string
}

// Validate checks that the provider configuration is complete.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	if c.AuthURL == "" {
		return fmt.Errorf("authorization URL is required")
	}
	if c.TokenURL == "" {
		return fmt.Errorf("token URL is required")
	}
	if c.UserInfoURL == "" {
		return fmt.Errorf("userinfo URL is required")
	}
	if c.RedirectURL == "" {
		return fmt.Errorf("redirect URL is required")
	}
	return nil
}

// Tokens is the provider's token response. It is not persisted as its own
// record; the access token doubles as the profile cache key and the cookie
// payload.
type Tokens struct {
	AccessToken string

	// RefreshToken is empty when the provider issued none.
	RefreshToken string

	// ExpiresIn is the access token lifetime reported by the provider,
	// zero when the response omitted expires_in.
	ExpiresIn time.Duration
}

// TokenExchangeError reports a provider-side rejection of a code or refresh
// token exchange. It wraps the provider's own error detail for logging; the
// detail must never reach the response body.
type TokenExchangeError struct {
	// Op is the exchange that failed ("code" or "refresh_token").
	Op  string
	Err error
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("%s exchange rejected by provider: %v", e.Op, e.Err)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// ProfileFetchError reports a failed profile fetch. The access token was
// valid enough to be exchanged moments earlier, so this indicates a
// transient provider or network fault, not a client error.
type ProfileFetchError struct {
	Err error
}

func (e *ProfileFetchError) Error() string {
	return fmt.Sprintf("profile fetch failed: %v", e.Err)
}

func (e *ProfileFetchError) Unwrap() error {
	return e.Err
}

// IdentityProvider is the orchestrator's view of the upstream provider.
type IdentityProvider interface {
	// AuthorizationURL builds the provider redirect target for a new login
	// attempt, returning the URL together with the CSRF state and PKCE
	// verifier generated for the attempt.
	AuthorizationURL() (authURL, state, verifier string, err error)

	// ExchangeCode exchanges an authorization code (plus the attempt's PKCE
	// verifier) for tokens. Fails with *TokenExchangeError on any
	// non-success provider response.
	ExchangeCode(ctx context.Context, code, verifier string) (*Tokens, error)

	// ExchangeRefreshToken exchanges a refresh token for a new token pair.
	// Same failure contract as ExchangeCode.
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*Tokens, error)

	// FetchProfile fetches the user profile with a bearer-authenticated
	// GET. Fails with *ProfileFetchError.
	FetchProfile(ctx context.Context, accessToken string) (storage.Profile, error)
}
