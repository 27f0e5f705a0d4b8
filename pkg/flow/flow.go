// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package flow implements the authorization flow state machine: login,
// callback, refresh, logout, and identity resolution for authenticated
// requests.
//
// A browser session moves through states observed only through which
// cookies it holds: anonymous, pending authorization (verifier-reference
// cookie set), authenticated (access-session cookie set and profile
// cached), and back on expiry or failure. The Flow owns all sequencing of
// reads and writes across the verifier store, the profile cache, and the
// cookie jar; no other component mutates them.
package flow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/stelvio-labs/authgate/pkg/logger"
	"github.com/stelvio-labs/authgate/pkg/provider"
	"github.com/stelvio-labs/authgate/pkg/session"
	"github.com/stelvio-labs/authgate/pkg/storage"
)

// Config carries the flow's cookie names, lifetimes, and redirect target.
type Config struct {
	// VerifierCookie, AccessCookie, RefreshCookie are the session cookie
	// names.
	VerifierCookie string
	AccessCookie   string
	RefreshCookie  string

	// VerifierTTL bounds both the verifier-reference cookie and the stored
	// verifier record.
	VerifierTTL time.Duration

	// RefreshTTL is the refresh-session cookie lifetime, independent of
	// the access token's.
	RefreshTTL time.Duration

	// DefaultAccessLifetime applies when the provider omits expires_in.
	DefaultAccessLifetime time.Duration

	// FrontendURL is where completed flows redirect the browser.
	FrontendURL string
}

// Validate checks that the flow configuration is complete.
func (c *Config) Validate() error {
	if c.VerifierCookie == "" || c.AccessCookie == "" || c.RefreshCookie == "" {
		return fmt.Errorf("cookie names must not be empty")
	}
	if c.VerifierTTL <= 0 {
		return fmt.Errorf("verifier TTL must be positive")
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("refresh TTL must be positive")
	}
	if c.DefaultAccessLifetime <= 0 {
		return fmt.Errorf("default access lifetime must be positive")
	}
	if c.FrontendURL == "" {
		return fmt.Errorf("frontend URL is required")
	}
	return nil
}

// Flow is the authorization flow orchestrator.
type Flow struct {
	cfg   Config
	store storage.Storage
	idp   provider.IdentityProvider
	jar   *session.Jar
}

// New creates a Flow over the given stores, provider client, and cookie
// jar.
func New(cfg Config, store storage.Storage, idp provider.IdentityProvider, jar *session.Jar) (*Flow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flow config: %w", err)
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if idp == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if jar == nil {
		return nil, fmt.Errorf("cookie jar is required")
	}
	return &Flow{cfg: cfg, store: store, idp: idp, jar: jar}, nil
}

// Login starts a new authorization attempt: it generates a PKCE pair and a
// fresh verifier record id, stores the verifier (with the CSRF state bound
// in) under a short TTL, sets the verifier-reference cookie, and returns
// the provider authorization URL to redirect the browser to.
//
// Each call mints a fresh id; repeating login before a callback never
// reuses a previous verifier.
func (f *Flow) Login(ctx context.Context, w http.ResponseWriter) (string, error) {
	authURL, state, verifier, err := f.idp.AuthorizationURL()
	if err != nil {
		return "", fmt.Errorf("failed to build authorization URL: %w", err)
	}

	// UUIDv7 ids are time-ordered, which keeps store keys roughly
	// insertion-ordered for debugging.
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate verifier id: %w", err)
	}

	rec := storage.VerifierRecord{Secret: verifier, State: state}
	if err := f.store.PutVerifier(ctx, id.String(), rec, f.cfg.VerifierTTL); err != nil {
		return "", fmt.Errorf("failed to store verifier: %w", err)
	}

	if err := f.setCookie(w, f.cfg.VerifierCookie, id.String(), f.cfg.VerifierTTL); err != nil {
		return "", err
	}

	logger.Infow("login started", "verifier_id", id.String())
	return authURL, nil
}

// Callback completes an authorization attempt: it consumes the verifier
// record referenced by the cookie, checks the bound CSRF state, exchanges
// the authorization code, fetches and caches the profile under the new
// access token, and issues the session cookies. Returns the frontend URL
// to redirect to.
func (f *Flow) Callback(ctx context.Context, w http.ResponseWriter, r *http.Request, code, state string) (string, error) {
	id, err := f.jar.Read(r, f.cfg.VerifierCookie)
	if err != nil {
		return "", authzErr(ReasonMissingVerifierCookie, err)
	}

	// The verifier is single-use; drop the reference cookie regardless of
	// how the rest of the callback goes.
	f.jar.Revoke(w, f.cfg.VerifierCookie)

	rec, err := f.store.TakeVerifier(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Expected client-driven condition: cookie replay or an
			// expired attempt. Not a system fault.
			return "", authzErr(ReasonVerifierNotFound, err)
		}
		return "", fmt.Errorf("failed to take verifier: %w", err)
	}

	if rec.State != state {
		return "", authzErr(ReasonStateMismatch, nil)
	}

	tokens, err := f.idp.ExchangeCode(ctx, code, rec.Secret)
	if err != nil {
		var exchangeErr *provider.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			return "", authzErr(ReasonExchangeRejected, err)
		}
		return "", fmt.Errorf("code exchange failed: %w", err)
	}

	if err := f.establishSession(ctx, w, tokens); err != nil {
		return "", err
	}

	logger.Infow("login completed", "verifier_id", id)
	return f.cfg.FrontendURL, nil
}

// Refresh rotates the session: it consumes the refresh-session cookie,
// exchanges the refresh token for a new pair, re-fetches the profile, and
// rewrites the cache entry under the new access token. The old access
// token's cache entry is left to expire on its own.
func (f *Flow) Refresh(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, error) {
	refreshToken, err := f.jar.Read(r, f.cfg.RefreshCookie)
	if err != nil {
		return "", authzErr(ReasonMissingRefreshCookie, err)
	}

	// The cookie is single-use client-side even though the provider may
	// keep the refresh token itself valid for rotation.
	f.jar.Revoke(w, f.cfg.RefreshCookie)

	tokens, err := f.idp.ExchangeRefreshToken(ctx, refreshToken)
	if err != nil {
		var exchangeErr *provider.TokenExchangeError
		if errors.As(err, &exchangeErr) {
			return "", authzErr(ReasonExchangeRejected, err)
		}
		return "", fmt.Errorf("refresh exchange failed: %w", err)
	}

	if err := f.establishSession(ctx, w, tokens); err != nil {
		return "", err
	}

	logger.Info("session refreshed")
	return f.cfg.FrontendURL, nil
}

// Identity resolves the authenticated user for a request from its cookies
// and the profile cache. It performs no provider round trips.
//
// Returns ErrRefreshRequired when only a refresh cookie is present (the
// caller redirects to the refresh entry point), an AuthzError when the
// request cannot be authenticated, and a plain error only for system
// faults such as an unreachable cache.
func (f *Flow) Identity(ctx context.Context, r *http.Request) (storage.Profile, error) {
	accessToken, err := f.jar.Read(r, f.cfg.AccessCookie)
	if err != nil {
		if _, refreshErr := f.jar.Read(r, f.cfg.RefreshCookie); refreshErr == nil {
			return storage.Profile{}, ErrRefreshRequired
		}
		return storage.Profile{}, authzErr(ReasonMissingAccessCookie, err)
	}

	p, err := f.store.GetProfile(ctx, accessToken)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Token cookie outlived the cache entry. The request cannot
			// proceed as authenticated, but nothing is broken server-side.
			return storage.Profile{}, authzErr(ReasonSessionExpired, err)
		}
		return storage.Profile{}, fmt.Errorf("profile lookup failed: %w", err)
	}

	return p, nil
}

// Logout clears the session cookies and returns the frontend URL. Cached
// profile entries are left to expire with their tokens.
func (f *Flow) Logout(w http.ResponseWriter) string {
	f.jar.Revoke(w, f.cfg.AccessCookie)
	f.jar.Revoke(w, f.cfg.RefreshCookie)
	return f.cfg.FrontendURL
}

// establishSession caches the profile under the new access token and
// issues the session cookies. Shared by callback and refresh; the cache
// entry is always keyed by the current access token so refreshes rotate
// the key rather than accumulate stale entries.
func (f *Flow) establishSession(ctx context.Context, w http.ResponseWriter, tokens *provider.Tokens) error {
	lifetime := tokens.ExpiresIn
	if lifetime <= 0 {
		lifetime = f.cfg.DefaultAccessLifetime
	}

	p, err := f.idp.FetchProfile(ctx, tokens.AccessToken)
	if err != nil {
		return fmt.Errorf("failed to fetch profile: %w", err)
	}

	// Expiry mirrors the token lifetime so a profile never outlives the
	// credential that grants access to it.
	if err := f.store.PutProfile(ctx, tokens.AccessToken, p, lifetime); err != nil {
		return fmt.Errorf("failed to cache profile: %w", err)
	}

	if err := f.setCookie(w, f.cfg.AccessCookie, tokens.AccessToken, lifetime); err != nil {
		return err
	}

	if tokens.RefreshToken != "" {
		if err := f.setCookie(w, f.cfg.RefreshCookie, tokens.RefreshToken, f.cfg.RefreshTTL); err != nil {
			return err
		}
	}

	return nil
}

// setCookie issues a sealed session cookie onto the response.
func (f *Flow) setCookie(w http.ResponseWriter, name, value string, lifetime time.Duration) error {
	c, err := f.jar.Issue(name, value, lifetime)
	if err != nil {
		return fmt.Errorf("failed to issue cookie %q: %w", name, err)
	}
	http.SetCookie(w, c)
	return nil
}
