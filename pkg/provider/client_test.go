// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testTokenResponse is a test helper to produce token responses.
type testTokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

// mockProviderServer is a mock identity provider for testing.
type mockProviderServer struct {
	*httptest.Server

	tokenHandler    func(w http.ResponseWriter, r *http.Request)
	userinfoHandler func(w http.ResponseWriter, r *http.Request)

	// lastTokenForm records the form of the most recent token request.
	lastTokenForm url.Values
}

func newMockProviderServer() *mockProviderServer {
	mock := &mockProviderServer{}

	mux := http.NewServeMux()
	mux.HandleFunc("/oauth2/authorize", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		mock.lastTokenForm = r.PostForm
		if mock.tokenHandler != nil {
			mock.tokenHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testTokenResponse{
			AccessToken:  "test-access-token",
			TokenType:    "Bearer",
			RefreshToken: "test-refresh-token",
			ExpiresIn:    3600,
		})
	})
	mux.HandleFunc("/api/users/@me", func(w http.ResponseWriter, r *http.Request) {
		if mock.userinfoHandler != nil {
			mock.userinfoHandler(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":       "42",
			"username": "alice",
		})
	})

	mock.Server = httptest.NewServer(mux)
	return mock
}

func (m *mockProviderServer) config() Config {
	return Config{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		AuthURL:      m.URL + "/oauth2/authorize",
		TokenURL:     m.URL + "/oauth2/token",
		UserInfoURL:  m.URL + "/api/users/@me",
		RedirectURL:  "https://api.example.com/auth/callback",
		Scopes:       []string{"identify"},
	}
}

func newTestClient(t *testing.T) (*Client, *mockProviderServer) {
	t.Helper()

	mock := newMockProviderServer()
	t.Cleanup(mock.Close)

	client, err := NewClient(mock.config(), WithHTTPClient(mock.Client()))
	require.NoError(t, err)
	return client, mock
}

func TestNewClientValidation(t *testing.T) {
	t.Parallel()

	cfg := Config{}
	_, err := NewClient(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "client ID")
}

func TestAuthorizationURL(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)

	authURL, state, verifier, err := client.AuthorizationURL()
	require.NoError(t, err)
	require.NotEmpty(t, state)
	require.NotEmpty(t, verifier)

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	assert.Equal(t, mock.URL+"/oauth2/authorize", u.Scheme+"://"+u.Host+u.Path)

	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "test-client", q.Get("client_id"))
	assert.Equal(t, state, q.Get("state"))
	assert.Equal(t, "identify", q.Get("scope"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	// The challenge is derived, never the verifier itself.
	assert.NotEqual(t, verifier, q.Get("code_challenge"))
}

func TestAuthorizationURLFreshPerAttempt(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)

	_, state1, verifier1, err := client.AuthorizationURL()
	require.NoError(t, err)
	_, state2, verifier2, err := client.AuthorizationURL()
	require.NoError(t, err)

	assert.NotEqual(t, state1, state2)
	assert.NotEqual(t, verifier1, verifier2)
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)

	tokens, err := client.ExchangeCode(context.Background(), "auth-code", "pkce-verifier")
	require.NoError(t, err)

	assert.Equal(t, "test-access-token", tokens.AccessToken)
	assert.Equal(t, "test-refresh-token", tokens.RefreshToken)
	assert.InDelta(t, time.Hour.Seconds(), tokens.ExpiresIn.Seconds(), 5)

	form := mock.lastTokenForm
	assert.Equal(t, "authorization_code", form.Get("grant_type"))
	assert.Equal(t, "auth-code", form.Get("code"))
	assert.Equal(t, "pkce-verifier", form.Get("code_verifier"))
}

func TestExchangeCodeNoExpiry(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)
	mock.tokenHandler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(testTokenResponse{
			AccessToken: "no-expiry-token",
			TokenType:   "Bearer",
		})
	}

	tokens, err := client.ExchangeCode(context.Background(), "auth-code", "pkce-verifier")
	require.NoError(t, err)

	// Provider omitted expires_in; the caller substitutes its default.
	assert.Zero(t, tokens.ExpiresIn)
	assert.Empty(t, tokens.RefreshToken)
}

func TestExchangeCodeProviderRejection(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)
	mock.tokenHandler = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":             "invalid_grant",
			"error_description": "code expired",
		})
	}

	_, err := client.ExchangeCode(context.Background(), "stale-code", "pkce-verifier")
	require.Error(t, err)

	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	// Provider detail is preserved for logging.
	assert.Contains(t, exchangeErr.Error(), "invalid_grant")
}

func TestExchangeCodeEmptyCode(t *testing.T) {
	t.Parallel()

	client, _ := newTestClient(t)

	_, err := client.ExchangeCode(context.Background(), "", "verifier")
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
}

func TestExchangeRefreshToken(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)

	tokens, err := client.ExchangeRefreshToken(context.Background(), "old-refresh-token")
	require.NoError(t, err)

	assert.Equal(t, "test-access-token", tokens.AccessToken)
	assert.Equal(t, "test-refresh-token", tokens.RefreshToken)

	form := mock.lastTokenForm
	assert.Equal(t, "refresh_token", form.Get("grant_type"))
	assert.Equal(t, "old-refresh-token", form.Get("refresh_token"))
}

func TestExchangeRefreshTokenRejection(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)
	mock.tokenHandler = func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusUnauthorized)
	}

	_, err := client.ExchangeRefreshToken(context.Background(), "revoked-token")
	var exchangeErr *TokenExchangeError
	require.ErrorAs(t, err, &exchangeErr)
	assert.Equal(t, "refresh_token", exchangeErr.Op)
}

func TestFetchProfile(t *testing.T) {
	t.Parallel()

	client, mock := newTestClient(t)

	var gotAuth string
	mock.userinfoHandler = func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":       "42",
			"username": "alice",
			"avatar":   "a1b2c3",
		})
	}

	p, err := client.FetchProfile(context.Background(), "the-access-token")
	require.NoError(t, err)

	assert.Equal(t, "Bearer the-access-token", gotAuth)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, "a1b2c3", p.Avatar)
}

func TestFetchProfileFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		handler func(w http.ResponseWriter, r *http.Request)
	}{
		{
			"provider error status",
			func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "internal", http.StatusInternalServerError)
			},
		},
		{
			"malformed body",
			func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte("{not json"))
			},
		},
		{
			"missing user id",
			func(w http.ResponseWriter, _ *http.Request) {
				_ = json.NewEncoder(w).Encode(map[string]string{"username": "ghost"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, mock := newTestClient(t)
			mock.userinfoHandler = tt.handler

			_, err := client.FetchProfile(context.Background(), "token")
			var fetchErr *ProfileFetchError
			require.ErrorAs(t, err, &fetchErr)
		})
	}
}
