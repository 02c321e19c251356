package main

import (
	"os"

	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/logger"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	log := logger.New()

	// env and .env provide the defaults, flags override them
	cfg, err := config.Load(log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	rootCmd := &cobra.Command{
		Use:           "tracker",
		Short:         "Fetch a BoardGameGeek collection and summarise its play history",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			log = logger.SetLevel(logger.ParseLevel(cfg.LogLevel))
			return cfg.Validate()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&cfg.Username, "username", "u", cfg.Username, "BoardGameGeek username")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "XML API2 base URL")
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir, "Directory holding the cache database")
	flags.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory the report is written to")
	flags.StringVar(&cfg.PeriodStart, "period-start", cfg.PeriodStart, "First day of the current period (YYYY-MM-DD)")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level")
	flags.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache, "Do not read or write the cache")
	flags.BoolVar(&cfg.NoCachePlays, "no-cache-plays", cfg.NoCachePlays, "Do not read or write cached play history")
	flags.DurationVar(&cfg.MinBackoff, "min-backoff", cfg.MinBackoff, "Smallest delay after a failed request")
	flags.DurationVar(&cfg.MaxBackoff, "max-backoff", cfg.MaxBackoff, "Largest delay after a failed request")
	flags.DurationVar(&cfg.RequestDelay, "request-delay", cfg.RequestDelay, "Pause before every request")

	rootCmd.AddCommand(
		newSyncCmd(cfg, func() zerolog.Logger { return log }),
		newServeCmd(cfg, func() zerolog.Logger { return log }),
		newCleanCmd(cfg, func() zerolog.Logger { return log }),
	)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("tracker failed")
		os.Exit(1)
	}
}
