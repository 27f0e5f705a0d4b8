// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stelvio-labs/authgate/pkg/flow"
)

// UserRoutes defines the routes for resolving the signed-in user.
type UserRoutes struct {
	flow *flow.Flow
}

// UserRouter creates a new router for the user API.
func UserRouter(f *flow.Flow) http.Handler {
	routes := UserRoutes{flow: f}

	r := chi.NewRouter()
	r.Get("/me", routes.getMe)
	return r
}

// getMe
//
//	@Summary		Resolve the signed-in user
//	@Description	Return the cached profile for the session's access token
//	@Tags			user
//	@Produce		json
//	@Success		200	{object}	storage.Profile
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/api/v1/me [get]
func (u *UserRoutes) getMe(w http.ResponseWriter, r *http.Request) {
	profile, err := u.flow.Identity(r.Context(), r)
	if err != nil {
		// A session that only lost its access cookie can be repaired
		// without user interaction.
		if errors.Is(err, flow.ErrRefreshRequired) {
			http.Redirect(w, r, "/auth/refresh", http.StatusTemporaryRedirect)
			return
		}
		writeFlowError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		http.Error(w, "failed to encode profile", http.StatusInternalServerError)
		return
	}
}
