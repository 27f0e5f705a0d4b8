// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package v1 provides version 1 of the authgate API.
package v1

import (
	"errors"
	"net/http"

	"github.com/stelvio-labs/authgate/pkg/flow"
	"github.com/stelvio-labs/authgate/pkg/logger"
)

// writeFlowError translates an orchestrator error into a response. The
// body is generic in both cases; the full error detail only ever reaches
// the logs.
func writeFlowError(w http.ResponseWriter, err error) {
	var authz *flow.AuthzError
	if errors.As(err, &authz) {
		logger.Infow("request not authorized", "reason", authz.Reason, "error", err.Error())
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	logger.Errorw("request failed", "error", err.Error())
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
