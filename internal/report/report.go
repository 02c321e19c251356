// Package report writes the result of a sync run as JSON.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"boardgame-tracker/internal/api"
	"boardgame-tracker/internal/constants"
	"boardgame-tracker/internal/domain"
	"boardgame-tracker/internal/stats"
)

type Game struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Image         string   `json:"image,omitempty"`
	Description   string   `json:"description,omitempty"`
	Owned         bool     `json:"owned"`
	WantToPlay    bool     `json:"want_to_play"`
	NumPlays      int      `json:"num_plays"`
	Rating        *float64 `json:"rating"`
	MinPlayers    int      `json:"min_players"`
	MaxPlayers    int      `json:"max_players"`
	MinPlayTime   int      `json:"min_play_time"`
	MaxPlayTime   int      `json:"max_play_time"`
	YearPublished int      `json:"year_published,omitempty"`
	Weight        float64  `json:"weight"`
	Publisher     string   `json:"publisher,omitempty"`
	Designer      string   `json:"designer,omitempty"`
	Artists       []string `json:"artists,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Mechanics     []string `json:"mechanics,omitempty"`
	LastPlayed    string   `json:"last_played,omitempty"`
}

// Index holds game ids rather than games to keep the document flat.
type Index struct {
	ByPlayerCount map[int][]int    `json:"by_player_count"`
	ByCategory    map[string][]int `json:"by_category"`
}

type Report struct {
	RunID       string       `json:"run_id"`
	Username    string       `json:"username"`
	GeneratedAt time.Time    `json:"generated_at"`
	Games       []Game       `json:"games"`
	Index       Index        `json:"index"`
	Views       *stats.Views `json:"views,omitempty"`

	// upstream traffic of the run
	Fetch api.FetchStats `json:"fetch"`
}

func NewGame(g *domain.Game) Game {
	return Game{
		ID:            g.Item.ObjectID,
		Name:          g.Item.Name,
		Image:         g.Image(),
		Description:   g.Meta.Description,
		Owned:         g.Item.Owned,
		WantToPlay:    g.Item.WantToPlay,
		NumPlays:      g.Item.NumPlays,
		Rating:        g.Rating(),
		MinPlayers:    g.Meta.MinPlayers,
		MaxPlayers:    g.Meta.MaxPlayers,
		MinPlayTime:   g.Meta.MinPlayTime,
		MaxPlayTime:   g.Meta.MaxPlayTime,
		YearPublished: g.Meta.YearPublished,
		Weight:        g.Meta.Weight,
		Publisher:     g.Meta.Publisher,
		Designer:      g.Meta.Designer,
		Artists:       g.Meta.Artists,
		Categories:    g.Meta.Categories,
		Mechanics:     g.Meta.Mechanics,
		LastPlayed:    g.LastPlayed,
	}
}

func NewIndex(idx stats.Index) Index {
	out := Index{
		ByPlayerCount: make(map[int][]int, len(idx.ByPlayerCount)),
		ByCategory:    make(map[string][]int, len(idx.ByCategory)),
	}
	for n, games := range idx.ByPlayerCount {
		out.ByPlayerCount[n] = gameIDs(games)
	}
	for c, games := range idx.ByCategory {
		out.ByCategory[c] = gameIDs(games)
	}
	return out
}

func gameIDs(games []*domain.Game) []int {
	ids := make([]int, 0, len(games))
	for _, g := range games {
		ids = append(ids, g.Item.ObjectID)
	}
	return slices.Clip(ids)
}

// Write replaces <dir>/report.json. Readers never see a half-written file.
func Write(dir string, r *Report) error {
	return writeJSON(dir, r)
}

// WriteError records a fatal failure in place of the report.
func WriteError(dir string, cause error) error {
	return writeJSON(dir, struct {
		Error       string    `json:"error"`
		GeneratedAt time.Time `json:"generated_at"`
	}{cause.Error(), time.Now().UTC()})
}

func writeJSON(dir string, v any) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, constants.ReportFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp report: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, constants.ReportFileName)); err != nil {
		return fmt.Errorf("failed to move report into place: %w", err)
	}
	return nil
}
