// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package api contains the HTTP front door for authgate.
package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	v1 "github.com/stelvio-labs/authgate/pkg/api/v1"
	"github.com/stelvio-labs/authgate/pkg/flow"
	"github.com/stelvio-labs/authgate/pkg/logger"
	"github.com/stelvio-labs/authgate/pkg/storage"
)

// Not sure if these values need to be configurable.
const (
	middlewareTimeout = 60 * time.Second
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func newRouter(authFlow *flow.Flow, store storage.Storage, frontendURL string) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Timeout(middlewareTimeout),
	)

	// The browser frontend lives on its own origin and sends session
	// cookies cross-site, so credentials must be allowed explicitly.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	routers := map[string]http.Handler{
		"/health": v1.HealthcheckRouter(store),
		"/auth":   v1.AuthRouter(authFlow),
		"/api/v1": v1.UserRouter(authFlow),
	}
	for prefix, router := range routers {
		r.Mount(prefix, router)
	}

	return r
}

// Serve starts the server on the given address and serves the API.
// It is assumed that the caller sets up appropriate signal handling.
func Serve(
	ctx context.Context,
	address string,
	authFlow *flow.Flow,
	store storage.Storage,
	frontendURL string,
) error {
	srv := &http.Server{
		BaseContext:       func(net.Listener) context.Context { return ctx },
		Addr:              address,
		Handler:           newRouter(authFlow, store, frontendURL),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	listener, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}

	logger.Infof("starting HTTP server on %s", address)

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Panicf("server stopped with error: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("HTTP server stopped")
	return nil
}
