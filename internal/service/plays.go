package service

import (
	"context"
	"fmt"
	"strconv"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/cache"
	"boardgame-tracker/internal/domain"

	"github.com/rs/zerolog"
)

// PlayExtractor turns a game's logged plays into one PlayEvent per
// participant.
type PlayExtractor struct {
	bgg      Upstream
	store    *cache.Store
	username string
	logger   zerolog.Logger
}

func NewPlayExtractor(bgg Upstream, store *cache.Store, username string, logger zerolog.Logger) *PlayExtractor {
	return &PlayExtractor{
		bgg:      bgg,
		store:    store,
		username: username,
		logger:   logger.With().Str("component", "plays").Logger(),
	}
}

// Extract reads every page of the game's play history. Sessions without
// participants produce no events and do not move lastPlayed, which is ""
// when the game has no attributed session.
func (e *PlayExtractor) Extract(ctx context.Context, gameID int) ([]domain.PlayEvent, string, error) {
	var (
		events     []domain.PlayEvent
		lastPlayed string
		seen       int
		skipped    int
	)
	game := strconv.Itoa(gameID)

	for page := 1; ; page++ {
		body, err := e.store.GetOrFetch(ctx, cache.KindPlays, fmt.Sprintf("%s-p%d", game, page),
			func(ctx context.Context) ([]byte, error) {
				return e.bgg.GetPlays(ctx, e.username, game, page), nil
			})
		if err != nil {
			return nil, "", err
		}

		parsed, err := api.ParsePlays(body)
		if err != nil {
			return nil, "", fmt.Errorf("plays of game %d page %d: %w", gameID, page, err)
		}

		for _, s := range parsed.Sessions {
			if len(s.Players) == 0 {
				skipped++
				continue
			}
			for _, p := range s.Players {
				events = append(events, domain.PlayEvent{
					GameID:     gameID,
					GameName:   s.GameName,
					SessionID:  s.SessionID,
					Date:       s.Date,
					Quantity:   s.Quantity,
					PlayerName: p.Name,
					Won:        p.Won,
				})
			}
			if s.Date > lastPlayed {
				lastPlayed = s.Date
			}
		}

		seen += len(parsed.Sessions)
		if len(parsed.Sessions) == 0 || seen >= parsed.Total {
			break
		}
	}

	e.logger.Debug().
		Int("game", gameID).
		Int("sessions", seen).
		Int("unattributed", skipped).
		Int("events", len(events)).
		Msg("plays extracted")
	return events, lastPlayed, nil
}
