package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"boardgame-tracker/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// PlayRepository persists the accumulated PlayEvent rows of the last run per
// user, so views can be recomputed without hitting the upstream.
type PlayRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewPlayRepository(sqlDB *sql.DB, logger zerolog.Logger) *PlayRepository {
	return &PlayRepository{
		db:     sqlDB,
		logger: logger,
	}
}

// ReplaceForUser swaps the user's rows for events in one transaction,
// keeping the events' order.
func (r *PlayRepository) ReplaceForUser(ctx context.Context, username string, events []domain.PlayEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM play_events WHERE username = ?`, username); err != nil {
		return fmt.Errorf("failed to clear play events: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO play_events (id, username, seq, game_id, game_name, session_id, date, quantity, player_name, won, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare play event insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, ev := range events {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		_, err = stmt.ExecContext(ctx, id, username, i, ev.GameID, ev.GameName, ev.SessionID,
			ev.Date, ev.Quantity, ev.PlayerName, ev.Won, now)
		if err != nil {
			return fmt.Errorf("failed to insert play event %d/%s: %w", ev.SessionID, ev.PlayerName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	r.logger.Debug().Str("username", username).Int("rows", len(events)).Msg("play events stored")
	return nil
}

func (r *PlayRepository) GetByUser(ctx context.Context, username string) ([]domain.PlayEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT game_id, game_name, session_id, date, quantity, player_name, won
FROM play_events WHERE username = ? ORDER BY seq`, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.PlayEvent
	for rows.Next() {
		var ev domain.PlayEvent
		if err := rows.Scan(&ev.GameID, &ev.GameName, &ev.SessionID, &ev.Date, &ev.Quantity, &ev.PlayerName, &ev.Won); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (r *PlayRepository) DeleteByUser(ctx context.Context, username string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM play_events WHERE username = ?`, username)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
