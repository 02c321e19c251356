package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"boardgame-tracker/internal/cache"
	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/constants"
	fxmodules "boardgame-tracker/internal/fx"
	"boardgame-tracker/internal/report"
	"boardgame-tracker/internal/repository"
	"boardgame-tracker/internal/server"
	"boardgame-tracker/internal/service"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

// startApp builds the dependency graph, fills targets and starts it. The
// returned func stops it again.
func startApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, targets ...any) (func(), error) {
	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg, logger),
		fxmodules.Module,
		fx.Populate(targets...),
	)

	startCtx, cancel := context.WithTimeout(ctx, constants.StartTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		return nil, err
	}

	return func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
		defer cancel()
		if err := app.Stop(stopCtx); err != nil {
			logger.Warn().Err(err).Msg("failed to stop cleanly")
		}
	}, nil
}

func newSyncCmd(cfg *config.Config, log func() zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch collection, metadata and plays, then write the report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireUsername(); err != nil {
				return err
			}
			logger := log()
			cfg.Log(logger)

			err := runSync(cmd.Context(), cfg, logger)
			if err != nil {
				if werr := report.WriteError(cfg.OutputDir, err); werr != nil {
					logger.Error().Err(werr).Msg("failed to write error report")
				}
			}
			return err
		},
	}

	cmd.Flags().BoolVar(&cfg.OnlyOwned, "own", cfg.OnlyOwned, "Only games the user owns")
	cmd.Flags().BoolVar(&cfg.WantToPlay, "want-to-play", cfg.WantToPlay, "Only games the user wants to play")
	cmd.Flags().BoolVar(&cfg.Plays, "plays", cfg.Plays, "Fetch play history and compute views")
	cmd.Flags().StringVar(&cfg.APIToken, "token", cfg.APIToken, "Bearer token for the XML API")
	return cmd
}

func runSync(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	var svc *service.SyncService
	stop, err := startApp(ctx, cfg, logger, &svc)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer stop()

	r, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	if err := report.Write(cfg.OutputDir, r); err != nil {
		return err
	}
	logger.Info().Str("path", cfg.ReportPath()).Int("games", len(r.Games)).Msg("report written")
	return nil
}

func newServeCmd(cfg *config.Config, log func() zerolog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the stored play views over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.RequireUsername(); err != nil {
				return err
			}
			logger := log()
			cfg.Log(logger)

			fx.New(
				fx.NopLogger,
				fx.Supply(cfg, logger),
				fxmodules.Module,
				fx.Invoke(runServer),
			).Run()
			return nil
		},
	}
	cmd.Flags().StringVar(&cfg.ServerPort, "port", cfg.ServerPort, "Port to listen on")
	return cmd
}

func runServer(
	lc fx.Lifecycle,
	trackerServer *server.TrackerServer,
	cfg *config.Config,
	logger zerolog.Logger,
) {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: trackerServer.Handler(),
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info().Str("addr", srv.Addr).Msg("server starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Fatal().Err(err).Msg("server failed")
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info().Msg("shutting down server")
			if err := srv.Shutdown(ctx); err != nil {
				logger.Error().Err(err).Msg("server shutdown failed")
				return err
			}
			logger.Info().Msg("server stopped gracefully")
			return nil
		},
	})
}

const (
	kindRows = "rows"
	kindAll  = "all"
)

// cleanTargets maps --kind to the cache kinds to drop and whether the user's
// play rows go too. Only the rows belong to a user.
func cleanTargets(cfg *config.Config, kind string) ([]cache.Kind, bool, error) {
	var (
		kinds []cache.Kind
		rows  bool
	)
	switch kind {
	case kindAll:
		kinds, rows = cache.Kinds, true
	case kindRows:
		rows = true
	default:
		k, err := cache.ParseKind(kind)
		if err != nil {
			return nil, false, err
		}
		kinds = []cache.Kind{k}
	}

	if rows {
		if err := cfg.RequireUsername(); err != nil {
			return nil, false, fmt.Errorf("--kind %s: %w", kind, err)
		}
	}
	return kinds, rows, nil
}

func newCleanCmd(cfg *config.Config, log func() zerolog.Logger) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop cached documents or stored play rows",
		RunE: func(cmd *cobra.Command, args []string) error {
			kinds, rows, err := cleanTargets(cfg, kind)
			if err != nil {
				return err
			}
			logger := log()

			var (
				store *cache.Store
				plays *repository.PlayRepository
			)
			stop, err := startApp(cmd.Context(), cfg, logger, &store, &plays)
			if err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer stop()

			ctx := cmd.Context()
			for _, k := range kinds {
				if _, err := store.Invalidate(ctx, k); err != nil {
					return err
				}
			}
			if rows {
				n, err := plays.DeleteByUser(ctx, cfg.Username)
				if err != nil {
					return fmt.Errorf("failed to delete play rows: %w", err)
				}
				logger.Info().Int64("rows", n).Msg("play rows deleted")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", kindAll, "What to drop: thing, collection, plays, rows or all")
	return cmd
}
