// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package storage provides the ephemeral stores backing the authorization
// flow: the single-use PKCE verifier store and the TTL-bound profile cache.
//
// Both stores are expected condition oriented: a missing key surfaces as
// ErrNotFound, which callers translate to an authorization failure. Only
// transport-level failures (connection loss, timeouts) are returned as
// plain errors.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent from the store, either
// because it was never written, already consumed, or expired.
var ErrNotFound = errors.New("not found")

// VerifierRecord is the server-side ephemeral record for one login attempt.
// It links the one-time record id (carried in the verifier-reference cookie)
// to the PKCE code verifier and the CSRF state bound to that attempt.
type VerifierRecord struct {
	// Secret is the PKCE code verifier string.
	Secret string `json:"secret"`

	// State is the CSRF state parameter embedded in the authorization URL.
	// The callback must present the same value.
	State string `json:"state"`
}

// Profile is the user identity fetched from the provider and cached under
// the access token that authorized the fetch.
type Profile struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// VerifierStore stores PKCE verifier records for the window between login
// and callback. Records are strictly single-use.
type VerifierStore interface {
	// PutVerifier stores a verifier record under id with an expiry ceiling.
	// Even a record that is never consumed must not live past ttl.
	PutVerifier(ctx context.Context, id string, rec VerifierRecord, ttl time.Duration) error

	// TakeVerifier atomically retrieves and removes the record for id.
	// Returns ErrNotFound if the record is absent, expired, or was already
	// consumed. The get-and-delete is a single store-side operation, so two
	// concurrent takes of the same id cannot both succeed.
	TakeVerifier(ctx context.Context, id string) (VerifierRecord, error)
}

// ProfileCache maps an access token to the profile it authorizes. Entries
// expire with the token; they are never deleted explicitly.
type ProfileCache interface {
	// PutProfile stores the profile under accessToken with ttl equal to the
	// token's remaining lifetime.
	PutProfile(ctx context.Context, accessToken string, p Profile, ttl time.Duration) error

	// GetProfile retrieves the profile for accessToken. Returns ErrNotFound
	// when the entry is absent or expired.
	GetProfile(ctx context.Context, accessToken string) (Profile, error)
}

// Storage combines the two stores with lifecycle management. Both may be
// backed by the same service on different key namespaces.
type Storage interface {
	VerifierStore
	ProfileCache

	// Ping checks store connectivity (health check).
	Ping(ctx context.Context) error

	// Close releases any held connections.
	Close() error
}
