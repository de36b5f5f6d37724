// Package main implements the hostiq CLI against the HostIQ REST API.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hostiq/internal/adapters/hostiq"
	"hostiq/internal/adapters/observability"
	"hostiq/internal/app"
	"hostiq/internal/domain"
	"hostiq/internal/shared"
	"hostiq/internal/storage"
)

var (
	// global flags
	apiURL     string
	profile    string
	configPath string
	outputJSON bool

	version = "dev"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "hostiq",
	Short: "Command-line client for the HostIQ inspection API",
	Long: `hostiq talks to the HostIQ backend on behalf of a cleaner or an owner.

Tokens from "hostiq login" are kept in the configured token store and the
access token is refreshed automatically when the backend rejects it.

Examples:
  # Log in against a local dev backend
  hostiq login --api http://localhost:8080/api --email owner@hostiq.dev

  # Watch a submitted inspection until analysis finishes
  hostiq inspections watch i-1234`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "API base URL (overrides API_URL)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "token profile (overrides PROFILE)")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+shared.DefaultConfigPath+")")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "print JSON instead of tables")
}

// runtime is what every networked command needs.
type runtime struct {
	cfg    shared.Config
	svc    *app.Service
	closer io.Closer
}

func (r *runtime) Close() {
	if err := r.closer.Close(); err != nil {
		log.Warn().Err(err).Msg("close token store")
	}
}

func setup(ctx context.Context) (*runtime, error) {
	cfg, err := shared.Load(configPath)
	if err != nil {
		return nil, err
	}
	if apiURL != "" {
		cfg.APIURL = apiURL
	}
	if profile != "" {
		cfg.Profile = profile
	}

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, os.Stderr)
	observability.Serve(cfg.MetricsAddr)

	store, closer, err := storage.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s token store: %w", cfg.TokenStore, err)
	}
	client, err := hostiq.New(cfg.APIURL, store, hostiq.Options{
		Timeout:       cfg.RequestTimeout,
		RPS:           cfg.APIRPS,
		DedupeRefresh: cfg.RefreshDedupe,
		UserAgent:     "hostiq-cli/" + version,
	})
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	log.Debug().Str("api", cfg.APIURL).Str("store", cfg.TokenStore).Str("profile", cfg.Profile).Msg("client ready")
	return &runtime{cfg: cfg, svc: app.NewService(client), closer: closer}, nil
}

// withRuntime adapts a command body that needs the API.
func withRuntime(run func(cmd *cobra.Command, args []string, rt *runtime) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		rt, err := setup(cmd.Context())
		if err != nil {
			return err
		}
		defer rt.Close()
		return run(cmd, args, rt)
	}
}

func reportError(w io.Writer, err error) {
	fmt.Fprintf(w, "error: %v\n", err)
	if errors.Is(err, domain.ErrUnauthorized) || errors.Is(err, domain.ErrForbidden) {
		fmt.Fprintln(w, "your session has expired or you are not logged in; run \"hostiq login\"")
	}
}
