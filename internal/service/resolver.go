package service

import (
	"context"
	"fmt"
	"strconv"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/cache"
	"boardgame-tracker/internal/constants"

	"github.com/rs/zerolog"
)

// Upstream is the subset of *api.BGGClient the services call. Every method
// blocks until the upstream answers 200.
type Upstream interface {
	GetUser(ctx context.Context, name string) []byte
	GetCollection(ctx context.Context, username string, filter api.CollectionFilter) []byte
	GetThings(ctx context.Context, ids []string) []byte
	GetPlays(ctx context.Context, username, gameID string, page int) []byte
	Stats() api.FetchStats
}

// Resolver fills the thing cache with as few upstream calls as possible.
type Resolver struct {
	bgg       Upstream
	store     *cache.Store
	batchSize int
	logger    zerolog.Logger
}

func NewResolver(bgg Upstream, store *cache.Store, logger zerolog.Logger) *Resolver {
	return &Resolver{
		bgg:       bgg,
		store:     store,
		batchSize: constants.MetadataBatchSize,
		logger:    logger.With().Str("component", "resolver").Logger(),
	}
}

// Resolve fetches metadata for every id not already cached, batchSize ids
// per request, and stores each returned item under its own id.
func (r *Resolver) Resolve(ctx context.Context, ids []int) error {
	seen := make(map[int]bool, len(ids))
	pending := make([]string, 0, r.batchSize)
	batches := 0

	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		key := strconv.Itoa(id)
		ok, err := r.store.Has(ctx, cache.KindThing, key)
		if err != nil {
			return err
		}
		if ok {
			continue
		}

		pending = append(pending, key)
		if len(pending) == r.batchSize {
			if err := r.flush(ctx, pending); err != nil {
				return err
			}
			batches++
			pending = pending[:0]
		}
	}

	if len(pending) > 0 {
		if err := r.flush(ctx, pending); err != nil {
			return err
		}
		batches++
	}

	r.logger.Info().Int("ids", len(seen)).Int("batches", batches).Msg("metadata resolved")
	return nil
}

func (r *Resolver) flush(ctx context.Context, ids []string) error {
	r.logger.Debug().Int("count", len(ids)).Msg("fetching metadata batch")

	items, err := api.SplitItems(r.bgg.GetThings(ctx, ids))
	if err != nil {
		return fmt.Errorf("failed to split metadata batch: %w", err)
	}

	entries := make([]cache.Entry, 0, len(items))
	for _, it := range items {
		entries = append(entries, cache.Entry{ID: it.ID, Body: it.Body})
	}
	if len(items) < len(ids) {
		r.logger.Warn().Int("requested", len(ids)).Int("returned", len(items)).Msg("upstream skipped some ids")
	}
	return r.store.PutBatch(ctx, cache.KindThing, entries)
}
