package fx

import (
	"context"
	"database/sql"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/cache"
	"boardgame-tracker/internal/database"
	"boardgame-tracker/internal/repository"
	"boardgame-tracker/internal/server"
	"boardgame-tracker/internal/service"

	"github.com/rs/zerolog"
	"go.uber.org/fx"
)

// Module expects *config.Config and zerolog.Logger to be supplied by the
// entrypoint.
var Module = fx.Options(
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewDocumentRepository),
	fx.Provide(repository.NewPlayRepository),
	// api client
	fx.Provide(fx.Annotate(api.NewBGGClient, fx.As(new(service.Upstream)))),
	// cache
	fx.Provide(cache.NewStore),
	// svc
	fx.Provide(service.NewSyncService),
	// server
	fx.Provide(server.NewTrackerServer),
	fx.Invoke(closeDatabaseOnStop),
)

func closeDatabaseOnStop(lc fx.Lifecycle, db *sql.DB, logger zerolog.Logger) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			if err := db.Close(); err != nil {
				logger.Warn().Err(err).Msg("error closing database connection")
				return err
			}
			return nil
		},
	})
}
