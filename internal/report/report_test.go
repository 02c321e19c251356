package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/constants"
	"boardgame-tracker/internal/domain"
	"boardgame-tracker/internal/stats"

	"github.com/stretchr/testify/require"
)

func TestWriteRoundTrips(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	mine := 8.0
	avg := 7.0
	g := &domain.Game{
		Item:       domain.CollectionItem{ObjectID: 13, Name: "CATAN", Owned: true, MyRating: &mine, AverageRating: &avg},
		Meta:       domain.GameMetadata{ObjectID: 13, MinPlayers: 3, MaxPlayers: 4, Image: "meta.jpg", Categories: []string{"Economic"}},
		LastPlayed: "2024-03-05",
	}

	r := &Report{
		RunID:       "run-1",
		Username:    "alice",
		GeneratedAt: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Games:       []Game{NewGame(g)},
		Index:       NewIndex(stats.BuildIndex([]*domain.Game{g})),
		Fetch:       api.FetchStats{Requests: 4, Failures: 1, LastStatus: 200, Delay: 20 * time.Second},
	}
	require.NoError(t, Write(dir, r))

	data, err := os.ReadFile(filepath.Join(dir, constants.ReportFileName))
	require.NoError(t, err)
	got := &Report{}
	require.NoError(t, json.Unmarshal(data, got))
	require.Equal(t, r, got)
	require.Equal(t, "meta.jpg", got.Games[0].Image)
	require.Equal(t, 7.5, *got.Games[0].Rating)
	require.Equal(t, []int{13}, got.Index.ByPlayerCount[3])
	require.Equal(t, []int{13}, got.Index.ByCategory["Economic"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestWriteError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, WriteError(dir, errors.New("invalid user: ghost")))

	data, err := os.ReadFile(filepath.Join(dir, constants.ReportFileName))
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, "invalid user: ghost", doc["error"])
}
