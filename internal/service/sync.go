package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/cache"
	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/domain"
	"boardgame-tracker/internal/report"
	"boardgame-tracker/internal/repository"
	"boardgame-tracker/internal/stats"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SyncService runs one full pass for the configured user: collection,
// metadata, play history, views.
type SyncService struct {
	cfg      *config.Config
	bgg      Upstream
	store    *cache.Store
	resolver *Resolver
	plays    *PlayExtractor
	playRepo *repository.PlayRepository
	logger   zerolog.Logger
}

func NewSyncService(
	cfg *config.Config,
	bgg Upstream,
	store *cache.Store,
	playRepo *repository.PlayRepository,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		cfg:      cfg,
		bgg:      bgg,
		store:    store,
		resolver: NewResolver(bgg, store, logger),
		plays:    NewPlayExtractor(bgg, store, cfg.Username, logger),
		playRepo: playRepo,
		logger:   logger,
	}
}

func (s *SyncService) Run(ctx context.Context) (*report.Report, error) {
	runID := uuid.NewString()
	logger := s.logger.With().Str("run_id", runID).Str("username", s.cfg.Username).Logger()
	ctx = logger.WithContext(ctx)
	start := time.Now()

	logger.Info().Msg("sync started")

	if _, err := api.ParseUser(s.bgg.GetUser(ctx, s.cfg.Username), s.cfg.Username); err != nil {
		return nil, err
	}

	items, err := s.collection(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("items", len(items)).Msg("collection loaded")

	items = uniqueItems(ctx, items)
	ids := make([]int, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ObjectID)
	}
	if err := s.resolver.Resolve(ctx, ids); err != nil {
		return nil, fmt.Errorf("failed to resolve metadata: %w", err)
	}

	var (
		games   []*domain.Game
		playLog domain.PlayLog
	)
	for _, it := range items {
		meta, err := s.metadata(ctx, it.ObjectID)
		if err != nil {
			return nil, err
		}
		if !meta.IsBoardGame() {
			logger.Info().Int("id", it.ObjectID).Str("name", it.Name).Str("type", meta.Type).Msg("skipping non boardgame item")
			continue
		}

		game := &domain.Game{Item: it, Meta: meta}
		if s.cfg.Plays {
			events, last, err := s.plays.Extract(ctx, it.ObjectID)
			if err != nil {
				return nil, err
			}
			playLog.Append(events...)
			game.LastPlayed = last
		}
		games = append(games, game)
	}

	r := &report.Report{
		RunID:       runID,
		Username:    s.cfg.Username,
		GeneratedAt: time.Now().UTC(),
		Games:       make([]report.Game, 0, len(games)),
		Index:       report.NewIndex(stats.BuildIndex(games)),
	}
	for _, g := range games {
		r.Games = append(r.Games, report.NewGame(g))
	}

	if s.cfg.Plays {
		events := playLog.Events()
		if err := s.playRepo.ReplaceForUser(ctx, s.cfg.Username, events); err != nil {
			return nil, fmt.Errorf("failed to store play events: %w", err)
		}
		r.Views = stats.Compute(events, s.cfg.PeriodStart)
	}

	r.Fetch = s.bgg.Stats()
	logger.Info().
		Int("games", len(games)).
		Int("play_events", playLog.Len()).
		Int("requests", r.Fetch.Requests).
		Int("failures", r.Fetch.Failures).
		Dur("delay", r.Fetch.Delay).
		Dur("took", time.Since(start)).
		Msg("sync finished")
	return r, nil
}

// uniqueItems keeps the first listing of every game. A collection lists a
// game once per copy, and each listing would otherwise add its plays again.
func uniqueItems(ctx context.Context, items []domain.CollectionItem) []domain.CollectionItem {
	seen := make(map[int]bool, len(items))
	out := make([]domain.CollectionItem, 0, len(items))
	for _, it := range items {
		if seen[it.ObjectID] {
			zerolog.Ctx(ctx).Debug().Int("id", it.ObjectID).Str("name", it.Name).Msg("skipping repeated collection entry")
			continue
		}
		seen[it.ObjectID] = true
		out = append(out, it)
	}
	return out
}

// collection only caches documents that parse, so a rejected username is
// asked again on the next run.
func (s *SyncService) collection(ctx context.Context) ([]domain.CollectionItem, error) {
	filter := api.CollectionFilter{OnlyOwned: s.cfg.OnlyOwned, WantToPlay: s.cfg.WantToPlay}
	body, err := s.store.GetOrFetch(ctx, cache.KindCollection, collectionKey(s.cfg.Username, filter),
		func(ctx context.Context) ([]byte, error) {
			body := s.bgg.GetCollection(ctx, s.cfg.Username, filter)
			if _, err := api.ParseCollection(body, s.cfg.Username); err != nil {
				return nil, err
			}
			return body, nil
		})
	if err != nil {
		return nil, err
	}
	return api.ParseCollection(body, s.cfg.Username)
}

func collectionKey(username string, filter api.CollectionFilter) string {
	key := username
	if filter.OnlyOwned {
		key += "+own"
	}
	if filter.WantToPlay {
		key += "+wanttoplay"
	}
	return key
}

// metadata reads one thing from the cache. Ids the batch response left out
// are asked for on their own.
func (s *SyncService) metadata(ctx context.Context, id int) (domain.GameMetadata, error) {
	key := strconv.Itoa(id)
	body, err := s.store.GetOrFetch(ctx, cache.KindThing, key, func(ctx context.Context) ([]byte, error) {
		items, err := api.SplitItems(s.bgg.GetThings(ctx, []string{key}))
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			if it.ID == key {
				return it.Body, nil
			}
		}
		return nil, fmt.Errorf("%w: no metadata returned for thing %d", domain.ErrMalformedDocument, id)
	})
	if err != nil {
		return domain.GameMetadata{}, err
	}

	meta, err := api.ParseThing(body)
	if err != nil {
		return domain.GameMetadata{}, fmt.Errorf("thing %d: %w", id, err)
	}
	return meta, nil
}
