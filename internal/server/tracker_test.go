package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"boardgame-tracker/internal/config"
	"boardgame-tracker/internal/database"
	"boardgame-tracker/internal/domain"
	"boardgame-tracker/internal/middleware"
	"boardgame-tracker/internal/repository"
	"boardgame-tracker/internal/stats"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "cache.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	plays := repository.NewPlayRepository(db, zerolog.Nop())
	require.NoError(t, plays.ReplaceForUser(context.Background(), "alice", []domain.PlayEvent{
		{GameID: 1, GameName: "CATAN", SessionID: 10, Date: "2024-01-01", Quantity: 2, PlayerName: "A", Won: true},
		{GameID: 1, GameName: "CATAN", SessionID: 10, Date: "2024-01-01", Quantity: 2, PlayerName: "B", Won: false},
		{GameID: 1, GameName: "CATAN", SessionID: 11, Date: "2024-03-05", Quantity: 1, PlayerName: "A", Won: false},
	}))

	cfg := &config.Config{Username: "alice", PeriodStart: "2024-01-01"}
	return NewTrackerServer(cfg, plays, zerolog.Nop()).Handler()
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	rec := get(t, newTestServer(t), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
}

func TestGetViews(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/views")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var v stats.Views
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	require.Equal(t, []stats.GameQuantity{{GameID: 1, GameName: "CATAN", Quantity: 3}}, v.TotalAll)
	require.Equal(t, "blue", v.Colors["A"])
}

func TestGetGame(t *testing.T) {
	h := newTestServer(t)

	rec := get(t, h, "/api/games/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var s stats.GameSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &s))
	require.Equal(t, "2024-03-05", s.LastPlayed)
	require.Equal(t, 3, s.TotalAll)
	require.Equal(t, 2, s.Players[0].WinsAll)

	rec = get(t, h, "/api/games/2")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = get(t, h, "/api/games/abc")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body["request_id"])
}

func TestGetPlayers(t *testing.T) {
	rec := get(t, newTestServer(t), "/api/players")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Players []stats.PlayerWins `json:"players"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, []stats.PlayerWins{
		{Player: "A", Wins: 1, Color: "blue"},
		{Player: "B", Wins: 0, Color: "yellow"},
	}, body.Players)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/views", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	rec := httptest.NewRecorder()
	newTestServer(t).ServeHTTP(rec, req)

	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
