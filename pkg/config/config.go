// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package config loads and validates the authgate service configuration
// from the environment.
//
// All options are read through viper with the AUTHGATE_ prefix, so the
// listen address is AUTHGATE_LISTEN_ADDRESS, the provider client id is
// AUTHGATE_PROVIDER_CLIENT_ID, and so on. Every request handler receives
// the resolved Config (or a component built from it) explicitly; nothing
// reads the environment after startup.
package config

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
	"golang.org/x/crypto/chacha20poly1305"
)

// Defaults for optional configuration values.
const (
	DefaultListenAddress = ":8080"

	// DefaultAccessTokenLifetime is used when the provider's token response
	// omits expires_in.
	DefaultAccessTokenLifetime = time.Hour

	// DefaultVerifierLifetime bounds how long a login attempt may stay
	// pending before the stored PKCE verifier expires.
	DefaultVerifierLifetime = 10 * time.Minute

	// DefaultRefreshLifetime is the refresh-session cookie lifetime. It is
	// deliberately independent of the access token lifetime; a refresh token
	// is expected to outlive the access token it accompanied.
	DefaultRefreshLifetime = 30 * 24 * time.Hour

	DefaultVerifierCookieName = "authgate_verifier"
	DefaultAccessCookieName   = "authgate_access"
	DefaultRefreshCookieName  = "authgate_refresh"

	// DefaultCookieKeyID labels the active cookie sealing key. Rotations
	// introduce a new id while old ids remain accepted for decoding.
	DefaultCookieKeyID = "v1"
)

// Config is the fully resolved service configuration. All values are
// immutable after Load returns.
type Config struct {
	// ListenAddress is the host:port the HTTP server binds to.
	ListenAddress string

	// Debug enables verbose logging.
	Debug bool

	// CacheURL is the redis connection URL backing the verifier store and
	// profile cache.
	CacheURL string

	// DatabaseURL is the connection string handed to the collaborating
	// persistence layer. It is recognized and syntax-validated here but not
	// consumed by the authorization flow itself.
	DatabaseURL string

	// FrontendURL is where the browser is sent after a completed flow. It is
	// also the origin allowed by the CORS layer.
	FrontendURL string

	Provider ProviderConfig
	Cookies  CookieConfig
}

// ProviderConfig describes the upstream identity provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string

	// AuthURL and TokenURL are the provider's authorization and token
	// endpoints. UserInfoURL is the bearer-authenticated profile endpoint.
	AuthURL     string
	TokenURL    string
	UserInfoURL string

	// RedirectURL is this service's callback URL as registered with the
	// provider.
	RedirectURL string

	// Scopes requested at login. Keep this minimal; the flow only needs
	// enough to fetch the profile.
	Scopes []string

	// DefaultAccessTokenLifetime applies when the provider omits expires_in.
	DefaultAccessTokenLifetime time.Duration
}

// CookieConfig describes the session cookie attributes and lifetimes.
type CookieConfig struct {
	// Domain is the domain attribute applied to every session cookie.
	Domain string

	// KeyID selects the active sealing key; Keys maps key ids to raw
	// 32-byte XChaCha20-Poly1305 keys.
	KeyID string
	Keys  map[string][]byte

	VerifierName string
	AccessName   string
	RefreshName  string

	// VerifierLifetime is both the verifier-reference cookie lifetime and
	// the TTL ceiling on the stored verifier record.
	VerifierLifetime time.Duration

	// RefreshLifetime is the refresh-session cookie lifetime.
	RefreshLifetime time.Duration
}

// Load reads configuration from the environment and validates it.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTHGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen_address", DefaultListenAddress)
	v.SetDefault("debug", false)
	v.SetDefault("provider.scopes", "identify")
	v.SetDefault("provider.default_access_token_lifetime", DefaultAccessTokenLifetime)
	v.SetDefault("cookie.verifier_name", DefaultVerifierCookieName)
	v.SetDefault("cookie.access_name", DefaultAccessCookieName)
	v.SetDefault("cookie.refresh_name", DefaultRefreshCookieName)
	v.SetDefault("cookie.verifier_lifetime", DefaultVerifierLifetime)
	v.SetDefault("cookie.refresh_lifetime", DefaultRefreshLifetime)
	v.SetDefault("cookie.key_id", DefaultCookieKeyID)

	sealKey, err := decodeSealKey(v.GetString("cookie.seal_key"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddress: v.GetString("listen_address"),
		Debug:         v.GetBool("debug"),
		CacheURL:      v.GetString("cache_url"),
		DatabaseURL:   v.GetString("database_url"),
		FrontendURL:   v.GetString("frontend_url"),
		Provider: ProviderConfig{
			ClientID:                   v.GetString("provider.client_id"),
			ClientSecret:               v.GetString("provider.client_secret"),
			AuthURL:                    v.GetString("provider.auth_url"),
			TokenURL:                   v.GetString("provider.token_url"),
			UserInfoURL:                v.GetString("provider.userinfo_url"),
			RedirectURL:                v.GetString("provider.redirect_url"),
			Scopes:                     splitScopes(v.GetString("provider.scopes")),
			DefaultAccessTokenLifetime: v.GetDuration("provider.default_access_token_lifetime"),
		},
		Cookies: CookieConfig{
			Domain:           v.GetString("cookie.domain"),
			KeyID:            v.GetString("cookie.key_id"),
			Keys:             map[string][]byte{v.GetString("cookie.key_id"): sealKey},
			VerifierName:     v.GetString("cookie.verifier_name"),
			AccessName:       v.GetString("cookie.access_name"),
			RefreshName:      v.GetString("cookie.refresh_name"),
			VerifierLifetime: v.GetDuration("cookie.verifier_lifetime"),
			RefreshLifetime:  v.GetDuration("cookie.refresh_lifetime"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// decodeSealKey decodes the base64 cookie sealing key from the environment.
func decodeSealKey(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, fmt.Errorf("cookie seal key is required (AUTHGATE_COOKIE_SEAL_KEY)")
	}
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("cookie seal key is not valid base64: %w", err)
	}
	return key, nil
}

// splitScopes splits a space- or comma-separated scope list.
func splitScopes(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ','
	})
	scopes := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			scopes = append(scopes, f)
		}
	}
	return scopes
}

// Validate checks that the Config is complete and internally consistent.
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.CacheURL == "" {
		return fmt.Errorf("cache URL is required")
	}
	if c.DatabaseURL != "" {
		if _, err := url.Parse(c.DatabaseURL); err != nil {
			return fmt.Errorf("invalid database URL: %w", err)
		}
	}
	if err := requireAbsoluteURL("frontend URL", c.FrontendURL); err != nil {
		return err
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider config: %w", err)
	}
	if err := c.Cookies.Validate(); err != nil {
		return fmt.Errorf("cookie config: %w", err)
	}
	return nil
}

// Validate checks the provider configuration.
func (p *ProviderConfig) Validate() error {
	if p.ClientID == "" {
		return fmt.Errorf("client ID is required")
	}
	if p.ClientSecret == "" {
		return fmt.Errorf("client secret is required")
	}
	for name, raw := range map[string]string{
		"authorization URL": p.AuthURL,
		"token URL":         p.TokenURL,
		"userinfo URL":      p.UserInfoURL,
		"redirect URL":      p.RedirectURL,
	} {
		if err := requireAbsoluteURL(name, raw); err != nil {
			return err
		}
	}
	if len(p.Scopes) == 0 {
		return fmt.Errorf("at least one scope is required")
	}
	if p.DefaultAccessTokenLifetime <= 0 {
		return fmt.Errorf("default access token lifetime must be positive")
	}
	return nil
}

// Validate checks the cookie configuration.
func (c *CookieConfig) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("cookie domain is required")
	}
	if c.KeyID == "" {
		return fmt.Errorf("cookie key ID is required")
	}
	key, ok := c.Keys[c.KeyID]
	if !ok {
		return fmt.Errorf("cookie key ID %q has no key", c.KeyID)
	}
	if len(key) != chacha20poly1305.KeySize {
		return fmt.Errorf("cookie seal key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	if c.VerifierName == "" || c.AccessName == "" || c.RefreshName == "" {
		return fmt.Errorf("cookie names must not be empty")
	}
	if c.VerifierLifetime <= 0 {
		return fmt.Errorf("verifier cookie lifetime must be positive")
	}
	if c.RefreshLifetime <= 0 {
		return fmt.Errorf("refresh cookie lifetime must be positive")
	}
	return nil
}

// requireAbsoluteURL validates that raw parses as an absolute http(s) URL.
func requireAbsoluteURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw)
	}
	return nil
}
