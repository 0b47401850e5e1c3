package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"screener/internal/config"
	"screener/internal/logging"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	root := &cobra.Command{
		Use:           "screener",
		Short:         "OG Screener: filter and sort a CSV of stock metrics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.Data.Source, "source", cfg.Data.Source, "CSV path or http(s) URL")
	root.PersistentFlags().DurationVar(&cfg.Data.FetchTimeout, "fetch-timeout", cfg.Data.FetchTimeout, "remote fetch timeout (0 = none)")

	serve := newServeCmd(cfg)
	root.AddCommand(serve, newQueryCmd(cfg))
	root.RunE = serve.RunE
	root.Flags().AddFlagSet(serve.Flags())

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}
