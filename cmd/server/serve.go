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
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"screener/internal/api"
	"screener/internal/config"
	"screener/internal/engine"
)

func newServeCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the screener page and API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().AddFlagSet(serverFlags(cfg))
	return cmd
}

func serverFlags(cfg *config.Config) *pflag.FlagSet {
	fs := pflag.NewFlagSet("server", pflag.ContinueOnError)
	fs.StringVar(&cfg.Server.Host, "host", cfg.Server.Host, "interface to bind")
	fs.IntVar(&cfg.Server.Port, "port", cfg.Server.Port, "port to listen on")
	fs.BoolVar(&cfg.Rate.Enabled, "rate-limit", cfg.Rate.Enabled, "enable per-IP rate limiting")
	return fs
}

func serve(ctx context.Context, cfg *config.Config) error {
	// The API is live immediately and answers "loading" until the data arrives
	h := api.NewHandler(nil)
	e := api.NewServer(cfg, h)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", cfg.Server.Addr()).Msg("server ready (data loading in background)")
		if err := e.Start(cfg.Server.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	// A failed load leaves the page on its loading placeholder; it never stops the server.
	g.Go(func() error {
		t0 := time.Now()
		store, err := engine.NewLoader(cfg.Data.FetchTimeout).Load(ctx, cfg.Data.Source)
		if err != nil {
			log.Error().Err(err).Msg("dataset load failed; screener stays in loading state")
			return nil
		}
		h.SetData(store)
		log.Info().Dur("took", time.Since(t0)).Msg("screener ready")
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return e.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
