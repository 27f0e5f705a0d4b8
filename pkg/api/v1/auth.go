// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

package v1

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stelvio-labs/authgate/pkg/flow"
	"github.com/stelvio-labs/authgate/pkg/logger"
)

// AuthRoutes defines the routes for the browser login flow.
type AuthRoutes struct {
	flow *flow.Flow
}

// AuthRouter creates a new router for the browser login flow.
func AuthRouter(f *flow.Flow) http.Handler {
	routes := AuthRoutes{flow: f}

	r := chi.NewRouter()
	r.Get("/login", routes.login)
	r.Get("/callback", routes.callback)
	r.Get("/refresh", routes.refresh)
	r.Get("/logout", routes.logout)
	return r
}

// login
//
//	@Summary		Start a login attempt
//	@Description	Redirect the browser to the identity provider's consent page
//	@Tags			auth
//	@Success		302	{string}	string	"Found"
//	@Router			/auth/login [get]
func (a *AuthRoutes) login(w http.ResponseWriter, r *http.Request) {
	authURL, err := a.flow.Login(r.Context(), w)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	http.Redirect(w, r, authURL, http.StatusFound)
}

// callback
//
//	@Summary		Complete a login attempt
//	@Description	Exchange the provider's code for a session and redirect to the frontend
//	@Tags			auth
//	@Param			code	query	string	true	"Authorization code"
//	@Param			state	query	string	true	"CSRF state"
//	@Success		302	{string}	string	"Found"
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/auth/callback [get]
func (a *AuthRoutes) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" {
		logger.Debug("callback request without authorization code")
		http.Error(w, "missing authorization code", http.StatusBadRequest)
		return
	}

	redirect, err := a.flow.Callback(r.Context(), w, r, code, state)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// refresh
//
//	@Summary		Refresh the session
//	@Description	Trade the refresh cookie for a new access session
//	@Tags			auth
//	@Success		302	{string}	string	"Found"
//	@Failure		401	{string}	string	"Unauthorized"
//	@Router			/auth/refresh [get]
func (a *AuthRoutes) refresh(w http.ResponseWriter, r *http.Request) {
	redirect, err := a.flow.Refresh(r.Context(), w, r)
	if err != nil {
		writeFlowError(w, err)
		return
	}
	http.Redirect(w, r, redirect, http.StatusFound)
}

// logout
//
//	@Summary		End the session
//	@Description	Clear the session cookies and redirect to the frontend
//	@Tags			auth
//	@Success		302	{string}	string	"Found"
//	@Router			/auth/logout [get]
func (a *AuthRoutes) logout(w http.ResponseWriter, r *http.Request) {
	redirect := a.flow.Logout(w)
	http.Redirect(w, r, redirect, http.StatusFound)
}
