// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Default timeouts for redis operations.
const (
	DefaultDialTimeout  = 5 * time.Second
	DefaultReadTimeout  = 3 * time.Second
	DefaultWriteTimeout = 3 * time.Second
)

// DefaultKeyPrefix namespaces all authgate keys in a shared redis.
const DefaultKeyPrefix = "authgate:"

// Key type segments appended to the prefix.
const (
	keyTypeVerifier = "verifier:"
	keyTypeProfile  = "profile:"
)

// Compile-time interface compliance check.
var _ Storage = (*RedisStorage)(nil)

// RedisStorage implements Storage against a shared redis, enabling multiple
// server instances to serve the same browser session. Verifier take uses
// GETDEL, so single-use consumption is atomic at the store without any
// orchestrator-held lock.
type RedisStorage struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStorage connects to redis at the given URL and verifies the
// connection before returning.
func NewRedisStorage(ctx context.Context, cacheURL string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(cacheURL)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}

	opts.DialTimeout = DefaultDialTimeout
	opts.ReadTimeout = DefaultReadTimeout
	opts.WriteTimeout = DefaultWriteTimeout

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the client to prevent resource leak
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStorage{
		client:    client,
		keyPrefix: DefaultKeyPrefix,
	}, nil
}

// NewRedisStorageWithClient creates a RedisStorage with a pre-configured
// client. This is useful for testing with miniredis.
func NewRedisStorageWithClient(client redis.UniversalClient, keyPrefix string) *RedisStorage {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &RedisStorage{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

// Close closes the redis client connection.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}

// Ping checks redis connectivity (health check).
func (s *RedisStorage) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// PutVerifier stores a verifier record under id with the given TTL.
func (s *RedisStorage) PutVerifier(ctx context.Context, id string, rec VerifierRecord, ttl time.Duration) error {
	if id == "" {
		return fmt.Errorf("verifier id cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("verifier ttl must be positive")
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal verifier record: %w", err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+keyTypeVerifier+id, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store verifier record: %w", err)
	}
	return nil
}

// TakeVerifier retrieves and deletes the verifier record for id in a single
// GETDEL round trip.
func (s *RedisStorage) TakeVerifier(ctx context.Context, id string) (VerifierRecord, error) {
	data, err := s.client.GetDel(ctx, s.keyPrefix+keyTypeVerifier+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return VerifierRecord{}, ErrNotFound
		}
		return VerifierRecord{}, fmt.Errorf("failed to take verifier record: %w", err)
	}

	var rec VerifierRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return VerifierRecord{}, fmt.Errorf("failed to unmarshal verifier record: %w", err)
	}
	return rec, nil
}

// PutProfile stores the profile under accessToken with the given TTL. An
// existing entry is overwritten wholesale.
func (s *RedisStorage) PutProfile(ctx context.Context, accessToken string, p Profile, ttl time.Duration) error {
	if accessToken == "" {
		return fmt.Errorf("access token cannot be empty")
	}
	if ttl <= 0 {
		return fmt.Errorf("profile ttl must be positive")
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if err := s.client.Set(ctx, s.keyPrefix+keyTypeProfile+accessToken, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store profile: %w", err)
	}
	return nil
}

// GetProfile retrieves the profile cached under accessToken.
func (s *RedisStorage) GetProfile(ctx context.Context, accessToken string) (Profile, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+keyTypeProfile+accessToken).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Profile{}, ErrNotFound
		}
		return Profile{}, fmt.Errorf("failed to get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	return p, nil
}
