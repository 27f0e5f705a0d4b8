// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stelvio-labs/authgate/pkg/storage"
)

type unreachableStorage struct {
	*storage.MemoryStorage
}

func (*unreachableStorage) Ping(context.Context) error {
	return fmt.Errorf("connection refused")
}

func TestGetHealthcheck(t *testing.T) {
	t.Parallel()

	router := HealthcheckRouter(storage.NewMemoryStorage())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusNoContent, resp.Code)
	require.Empty(t, resp.Body)
}

func TestGetHealthcheckBackendDown(t *testing.T) {
	t.Parallel()

	router := HealthcheckRouter(&unreachableStorage{storage.NewMemoryStorage()})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}
