// Package cache keeps upstream documents so a run only asks the upstream for
// what it has never seen. Entries never expire; they go away through
// Invalidate.
package cache

import (
	"context"
	"fmt"
	"time"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/repository"

	"github.com/rs/zerolog"
)

type Kind string

const (
	KindCollection Kind = "collection"
	KindThing      Kind = "thing"
	KindPlays      Kind = "plays"
)

var Kinds = []Kind{KindCollection, KindThing, KindPlays}

type FetchFunc func(ctx context.Context) ([]byte, error)

type Entry struct {
	ID   string
	Body []byte
}

type memKey struct {
	kind Kind
	id   string
}

type Store struct {
	repo         *repository.DocumentRepository
	noCache      bool
	noCachePlays bool
	logger       zerolog.Logger

	// documents fetched this run for kinds that are not persisted
	mem map[memKey][]byte
}

func NewStore(cfg *config.Config, repo *repository.DocumentRepository, logger zerolog.Logger) *Store {
	return &Store{
		repo:         repo,
		noCache:      cfg.NoCache,
		noCachePlays: cfg.NoCachePlays,
		logger:       logger.With().Str("component", "cache").Logger(),
		mem:          make(map[memKey][]byte),
	}
}

// Persistent reports whether documents of kind are read from and written to disk.
func (s *Store) Persistent(kind Kind) bool {
	if s.noCache {
		return false
	}
	if kind == KindPlays && s.noCachePlays {
		return false
	}
	return true
}

func (s *Store) Has(ctx context.Context, kind Kind, id string) (bool, error) {
	if _, ok := s.mem[memKey{kind, id}]; ok {
		return true, nil
	}
	if !s.Persistent(kind) {
		return false, nil
	}
	ok, err := s.repo.Exists(ctx, string(kind), id)
	if err != nil {
		return false, fmt.Errorf("failed to check cache for %s/%s: %w", kind, id, err)
	}
	return ok, nil
}

// GetOrFetch returns the cached document or calls fetch and caches its result.
// A cached document that does not parse is dropped and fetched again.
func (s *Store) GetOrFetch(ctx context.Context, kind Kind, id string, fetch FetchFunc) ([]byte, error) {
	if body, ok := s.mem[memKey{kind, id}]; ok {
		return body, nil
	}

	if s.Persistent(kind) {
		doc, err := s.repo.Get(ctx, string(kind), id)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("kind", string(kind)).Str("id", id).Msg("cache read failed, fetching")
		case doc != nil && api.WellFormed(doc.Body):
			s.logger.Debug().Str("kind", string(kind)).Str("id", id).Msg("cache hit")
			return doc.Body, nil
		case doc != nil:
			s.logger.Warn().Str("kind", string(kind)).Str("id", id).Msg("cached document is corrupt, fetching")
		}
	}

	body, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.Put(ctx, kind, id, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Store) Put(ctx context.Context, kind Kind, id string, body []byte) error {
	if !s.Persistent(kind) {
		s.mem[memKey{kind, id}] = body
		return nil
	}
	doc := &repository.Document{Kind: string(kind), ID: id, Body: body, FetchedAt: time.Now().UTC()}
	if err := s.repo.Upsert(ctx, doc); err != nil {
		return fmt.Errorf("failed to cache %s/%s: %w", kind, id, err)
	}
	return nil
}

// PutBatch stores all entries together; a failed write leaves none of them.
func (s *Store) PutBatch(ctx context.Context, kind Kind, entries []Entry) error {
	if !s.Persistent(kind) {
		for _, e := range entries {
			s.mem[memKey{kind, e.ID}] = e.Body
		}
		return nil
	}

	now := time.Now().UTC()
	docs := make([]repository.Document, 0, len(entries))
	for _, e := range entries {
		docs = append(docs, repository.Document{Kind: string(kind), ID: e.ID, Body: e.Body, FetchedAt: now})
	}
	if err := s.repo.UpsertBatch(ctx, docs); err != nil {
		return fmt.Errorf("failed to cache %d %s documents: %w", len(entries), kind, err)
	}
	s.logger.Debug().Str("kind", string(kind)).Int("count", len(entries)).Msg("cached documents")
	return nil
}

// Invalidate drops every cached document of kind.
func (s *Store) Invalidate(ctx context.Context, kind Kind) (int64, error) {
	var dropped int64
	for k := range s.mem {
		if k.kind == kind {
			delete(s.mem, k)
			dropped++
		}
	}
	n, err := s.repo.DeleteKind(ctx, string(kind))
	if err != nil {
		return dropped, fmt.Errorf("failed to invalidate %s cache: %w", kind, err)
	}
	s.logger.Info().Str("kind", string(kind)).Int64("dropped", n+dropped).Msg("cache invalidated")
	return n + dropped, nil
}

func ParseKind(v string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == v {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown cache kind %q", v)
}
