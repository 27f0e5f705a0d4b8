// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryVerifierSingleUse(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	rec := VerifierRecord{Secret: "secret", State: "state"}
	require.NoError(t, s.PutVerifier(ctx, "id", rec, time.Minute))

	got, err := s.TakeVerifier(ctx, "id")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.TakeVerifier(ctx, "id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryVerifierExpiry(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	require.NoError(t, s.PutVerifier(ctx, "id", VerifierRecord{Secret: "v"}, time.Minute))

	s.SetClock(func() time.Time { return now.Add(2 * time.Minute) })

	_, err := s.TakeVerifier(ctx, "id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryConcurrentTakeSingleWinner(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.PutVerifier(ctx, "id", VerifierRecord{Secret: "v"}, time.Minute))

	const takers = 32
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(takers)
	for i := 0; i < takers; i++ {
		go func() {
			defer wg.Done()
			if _, err := s.TakeVerifier(ctx, "id"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	// Exactly one concurrent callback may consume the verifier.
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryProfileLifecycle(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	now := time.Now()
	s.SetClock(func() time.Time { return now })

	p := Profile{ID: "42", Username: "alice"}
	require.NoError(t, s.PutProfile(ctx, "tok", p, time.Hour))

	got, err := s.GetProfile(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	// Entry outlives nothing: it expires with the token.
	s.SetClock(func() time.Time { return now.Add(time.Hour + time.Second) })

	_, err = s.GetProfile(ctx, "tok")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryProfileOverwrite(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	require.NoError(t, s.PutProfile(ctx, "tok", Profile{ID: "1", Username: "old"}, time.Hour))
	require.NoError(t, s.PutProfile(ctx, "tok", Profile{ID: "1", Username: "new"}, time.Hour))

	got, err := s.GetProfile(ctx, "tok")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Username)
}

func TestMemoryDistinctIDs(t *testing.T) {
	t.Parallel()

	s := NewMemoryStorage()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("id-%d", i)
		require.NoError(t, s.PutVerifier(ctx, id, VerifierRecord{Secret: id}, time.Minute))
	}

	got, err := s.TakeVerifier(ctx, "id-7")
	require.NoError(t, err)
	assert.Equal(t, "id-7", got.Secret)

	// Other records are untouched.
	got, err = s.TakeVerifier(ctx, "id-3")
	require.NoError(t, err)
	assert.Equal(t, "id-3", got.Secret)
}
