package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"hostiq/internal/adapters/devserver"
	"hostiq/internal/adapters/observability"
	"hostiq/internal/shared"
)

func main() {
	cfg, err := shared.Load(os.Getenv("HOSTIQ_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel, nil)

	store := devserver.NewStore(devserver.Options{
		AccessTTL:       cfg.AccessTTL,
		ProcessingPolls: cfg.ProcessingPolls,
	})

	// http
	srv := devserver.New(cfg.ServerTimeout)
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&devserver.Handlers{S: store})

	httpSrv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Mux(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}()

	log.Info().
		Str("addr", cfg.HTTPAddr).
		Dur("access_ttl", cfg.AccessTTL).
		Int("processing_polls", cfg.ProcessingPolls).
		Msg("dev backend listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("dev backend stopped")
}
