// SPDX-FileCopyrightText: Copyright 2026 Stelvio Labs
// SPDX-License-Identifier: Apache-2.0

// Package app provides the entry point for the authgate command-line application.
package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stelvio-labs/authgate/pkg/api"
	"github.com/stelvio-labs/authgate/pkg/config"
	"github.com/stelvio-labs/authgate/pkg/flow"
	"github.com/stelvio-labs/authgate/pkg/logger"
	"github.com/stelvio-labs/authgate/pkg/provider"
	"github.com/stelvio-labs/authgate/pkg/session"
	"github.com/stelvio-labs/authgate/pkg/storage"
)

var rootCmd = &cobra.Command{
	Use:               "authgate",
	DisableAutoGenTag: true,
	Short:             "Browser-facing OAuth2 login front door",
	Long: `authgate sits between a browser frontend and an OAuth2 identity
provider. It runs the Authorization Code flow with PKCE on the browser's
behalf, keeps the provider's tokens inside encrypted cookies, and serves
the signed-in user's profile from a cache.

All configuration is read from AUTHGATE_-prefixed environment variables.`,
	Run: func(cmd *cobra.Command, _ []string) {
		// If no subcommand is provided, print help
		if err := cmd.Help(); err != nil {
			logger.Errorf("Error displaying help: %v", err)
		}
	},
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Initialize(viper.GetBool("debug"))
	},
}

// NewRootCmd creates a new root command for the authgate CLI.
func NewRootCmd() *cobra.Command {
	// Add persistent flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug mode")
	err := viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	if err != nil {
		logger.Errorf("Error binding debug flag: %v", err)
	}

	// Add subcommands
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())

	// Silence printing the usage on error
	rootCmd.SilenceUsage = true

	return rootCmd
}

// newServeCmd creates the serve command for starting the service
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the authgate server",
		Long: `Start the authgate HTTP server.

The server reads its configuration from the environment, connects to the
redis cache backing the login flow, and listens until interrupted.`,
		RunE: runServe,
	}
}

// newVersionCmd creates the version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  "Display version information for authgate",
		Run: func(_ *cobra.Command, _ []string) {
			// Version information will be injected at build time
			logger.Infof("authgate version: %s", getVersion())
		},
	}
}

// getVersion returns the version string (will be set at build time)
func getVersion() string {
	// This will be replaced with actual version info using ldflags
	return "dev"
}

// runServe implements the serve command logic
func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration loading failed: %w", err)
	}

	if cfg.Debug {
		logger.Initialize(true)
	}

	logger.Infow("configuration loaded",
		"listen_address", cfg.ListenAddress,
		"frontend_url", cfg.FrontendURL,
		"provider_auth_url", cfg.Provider.AuthURL,
	)

	store, err := storage.NewRedisStorage(ctx, cfg.CacheURL)
	if err != nil {
		return fmt.Errorf("failed to connect to cache: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warnf("failed to close cache connection: %v", err)
		}
	}()

	idp, err := provider.NewClient(provider.Config{
		ClientID:     cfg.Provider.ClientID,
		ClientSecret: cfg.Provider.ClientSecret,
		AuthURL:      cfg.Provider.AuthURL,
		TokenURL:     cfg.Provider.TokenURL,
		UserInfoURL:  cfg.Provider.UserInfoURL,
		RedirectURL:  cfg.Provider.RedirectURL,
		Scopes:       cfg.Provider.Scopes,
	})
	if err != nil {
		return fmt.Errorf("failed to create provider client: %w", err)
	}

	codec, err := session.NewCodec(cfg.Cookies.KeyID, cfg.Cookies.Keys)
	if err != nil {
		return fmt.Errorf("failed to create cookie codec: %w", err)
	}
	jar, err := session.NewJar(codec, cfg.Cookies.Domain)
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}

	authFlow, err := flow.New(flow.Config{
		VerifierCookie:        cfg.Cookies.VerifierName,
		AccessCookie:          cfg.Cookies.AccessName,
		RefreshCookie:         cfg.Cookies.RefreshName,
		VerifierTTL:           cfg.Cookies.VerifierLifetime,
		RefreshTTL:            cfg.Cookies.RefreshLifetime,
		DefaultAccessLifetime: cfg.Provider.DefaultAccessTokenLifetime,
		FrontendURL:           cfg.FrontendURL,
	}, store, idp, jar)
	if err != nil {
		return fmt.Errorf("failed to create authorization flow: %w", err)
	}

	defer logger.Sync()
	return api.Serve(ctx, cfg.ListenAddress, authFlow, store, cfg.FrontendURL)
}
