// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"sync"
	"time"
)

// timedEntry wraps a value with its expiry time for TTL tracking.
type timedEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *timedEntry[T]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Compile-time interface compliance check.
var _ Storage = (*MemoryStorage)(nil)

// MemoryStorage implements Storage with in-memory maps. It is thread-safe
// and suitable for development, testing, and single-instance deployments.
// Sessions do not survive a restart and are not shared across instances;
// use RedisStorage for that.
type MemoryStorage struct {
	mu sync.RWMutex

	// verifiers maps record id -> verifier record. Entries are removed on
	// take; expired entries are dropped lazily on access.
	verifiers map[string]*timedEntry[VerifierRecord]

	// profiles maps access token -> cached profile.
	profiles map[string]*timedEntry[Profile]

	// now is the clock, replaceable in tests.
	now func() time.Time
}

// NewMemoryStorage creates an empty in-memory storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		verifiers: make(map[string]*timedEntry[VerifierRecord]),
		profiles:  make(map[string]*timedEntry[Profile]),
		now:       time.Now,
	}
}

// SetClock replaces the storage clock. Tests use this to simulate expiry
// without sleeping.
func (s *MemoryStorage) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Ping always succeeds for in-memory storage.
func (*MemoryStorage) Ping(context.Context) error {
	return nil
}

// Close releases nothing for in-memory storage.
func (*MemoryStorage) Close() error {
	return nil
}

// PutVerifier stores a verifier record under id with the given TTL.
func (s *MemoryStorage) PutVerifier(_ context.Context, id string, rec VerifierRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.verifiers[id] = &timedEntry[VerifierRecord]{
		value:     rec,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// TakeVerifier retrieves and removes the record for id under a single lock,
// so concurrent takes of the same id see exactly one success.
func (s *MemoryStorage) TakeVerifier(_ context.Context, id string) (VerifierRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.verifiers[id]
	if !ok {
		return VerifierRecord{}, ErrNotFound
	}
	delete(s.verifiers, id)

	if entry.expired(s.now()) {
		return VerifierRecord{}, ErrNotFound
	}
	return entry.value, nil
}

// PutProfile stores the profile under accessToken with the given TTL.
func (s *MemoryStorage) PutProfile(_ context.Context, accessToken string, p Profile, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profiles[accessToken] = &timedEntry[Profile]{
		value:     p,
		expiresAt: s.now().Add(ttl),
	}
	return nil
}

// GetProfile retrieves the profile cached under accessToken.
func (s *MemoryStorage) GetProfile(_ context.Context, accessToken string) (Profile, error) {
	s.mu.RLock()
	entry, ok := s.profiles[accessToken]
	s.mu.RUnlock()

	if !ok {
		return Profile{}, ErrNotFound
	}
	if entry.expired(s.now()) {
		s.mu.Lock()
		delete(s.profiles, accessToken)
		s.mu.Unlock()
		return Profile{}, ErrNotFound
	}
	return entry.value, nil
}
