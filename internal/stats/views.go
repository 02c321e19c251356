package stats

import (
	"cmp"
	"slices"

	"boardgame-tracker/internal/domain"
)

type LastPlay struct {
	GameID   int    `json:"game_id"`
	GameName string `json:"game_name"`
	Date     string `json:"date"`
}

type GameQuantity struct {
	GameID   int    `json:"game_id"`
	GameName string `json:"game_name"`
	Quantity int    `json:"quantity"`
}

type PlayerCount struct {
	GameID   int    `json:"game_id"`
	GameName string `json:"game_name"`
	Player   string `json:"player"`
	Count    int    `json:"count"`
}

// Views is every derived table for one event set and one period cutoff.
type Views struct {
	PeriodStart string `json:"period_start"`

	// games played in the current period, most recent first
	LastPlayedCurrent []LastPlay `json:"last_played_current"`
	// games whose most recent play is before the cutoff, most recent first
	NotPlayedSince []LastPlay `json:"not_played_since"`

	TotalCurrent []GameQuantity `json:"total_current"`
	TotalAll     []GameQuantity `json:"total_all"`

	PlayerQuantityCurrent []PlayerCount `json:"player_quantity_current"`
	PlayerQuantityAll     []PlayerCount `json:"player_quantity_all"`

	WinsCurrent []PlayerCount `json:"wins_current"`
	WinsAll     []PlayerCount `json:"wins_all"`

	Ranking []PlayerWins      `json:"ranking"`
	Colors  map[string]string `json:"colors"`
}

// Compute builds all views. cutoff is an ISO date; events dated on or after
// it belong to the current period.
func Compute(events []domain.PlayEvent, cutoff string) *Views {
	names := gameNames(events)
	current, _ := SplitPeriod(events, cutoff)

	v := &Views{
		PeriodStart:           cutoff,
		LastPlayedCurrent:     lastPlays(LastPlayed(current), names),
		TotalCurrent:          quantities(TotalQuantity(current), names),
		TotalAll:              quantities(TotalQuantity(events), names),
		PlayerQuantityCurrent: playerCounts(PlayerQuantity(current), names),
		PlayerQuantityAll:     playerCounts(PlayerQuantity(events), names),
		WinsCurrent:           playerCounts(WinTally(current), names),
		WinsAll:               playerCounts(WinTally(events), names),
		Ranking:               Ranking(events),
	}

	stale := make([]LastPlay, 0)
	for _, lp := range lastPlays(LastPlayed(events), names) {
		if lp.Date < cutoff {
			stale = append(stale, lp)
		}
	}
	v.NotPlayedSince = stale

	palette := NewPalette()
	for i := range v.Ranking {
		v.Ranking[i].Color = palette.Color(v.Ranking[i].Player)
	}
	v.Colors = palette.Assignments()
	return v
}

type PlayerLine struct {
	Player       string `json:"player"`
	Color        string `json:"color"`
	PlaysCurrent int    `json:"plays_current"`
	PlaysAll     int    `json:"plays_all"`
	WinsCurrent  int    `json:"wins_current"`
	WinsAll      int    `json:"wins_all"`
}

type GameSummary struct {
	GameID       int          `json:"game_id"`
	GameName     string       `json:"game_name"`
	LastPlayed   string       `json:"last_played"`
	TotalCurrent int          `json:"total_current"`
	TotalAll     int          `json:"total_all"`
	Players      []PlayerLine `json:"players"`
}

// Game collects one game's rows from every view. It reports false when the
// game was never played.
func (v *Views) Game(gameID int) (GameSummary, bool) {
	s := GameSummary{GameID: gameID}
	found := false
	for _, q := range v.TotalAll {
		if q.GameID == gameID {
			s.GameName, s.TotalAll, found = q.GameName, q.Quantity, true
		}
	}
	if !found {
		return s, false
	}
	for _, q := range v.TotalCurrent {
		if q.GameID == gameID {
			s.TotalCurrent = q.Quantity
		}
	}
	for _, lp := range append(slices.Clone(v.LastPlayedCurrent), v.NotPlayedSince...) {
		if lp.GameID == gameID {
			s.LastPlayed = lp.Date
		}
	}

	lines := make(map[string]*PlayerLine)
	var order []string
	line := func(player string) *PlayerLine {
		if l, ok := lines[player]; ok {
			return l
		}
		l := &PlayerLine{Player: player, Color: v.Colors[player]}
		lines[player] = l
		order = append(order, player)
		return l
	}
	for _, c := range v.PlayerQuantityAll {
		if c.GameID == gameID {
			line(c.Player).PlaysAll = c.Count
		}
	}
	for _, c := range v.PlayerQuantityCurrent {
		if c.GameID == gameID {
			line(c.Player).PlaysCurrent = c.Count
		}
	}
	for _, c := range v.WinsAll {
		if c.GameID == gameID {
			line(c.Player).WinsAll = c.Count
		}
	}
	for _, c := range v.WinsCurrent {
		if c.GameID == gameID {
			line(c.Player).WinsCurrent = c.Count
		}
	}
	for _, p := range order {
		s.Players = append(s.Players, *lines[p])
	}
	return s, true
}

func gameNames(events []domain.PlayEvent) map[int]string {
	names := make(map[int]string)
	for _, ev := range events {
		if _, ok := names[ev.GameID]; !ok {
			names[ev.GameID] = ev.GameName
		}
	}
	return names
}

func lastPlays(last map[int]string, names map[int]string) []LastPlay {
	out := make([]LastPlay, 0, len(last))
	for id, date := range last {
		out = append(out, LastPlay{GameID: id, GameName: names[id], Date: date})
	}
	slices.SortFunc(out, func(a, b LastPlay) int {
		if c := cmp.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.GameID, b.GameID)
	})
	return out
}

func quantities(totals map[int]int, names map[int]string) []GameQuantity {
	out := make([]GameQuantity, 0, len(totals))
	for id, q := range totals {
		out = append(out, GameQuantity{GameID: id, GameName: names[id], Quantity: q})
	}
	slices.SortFunc(out, func(a, b GameQuantity) int {
		return cmp.Compare(a.GameID, b.GameID)
	})
	return out
}

func playerCounts(counts map[GamePlayer]int, names map[int]string) []PlayerCount {
	out := make([]PlayerCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, PlayerCount{GameID: k.GameID, GameName: names[k.GameID], Player: k.Player, Count: n})
	}
	slices.SortFunc(out, func(a, b PlayerCount) int {
		if c := cmp.Compare(a.GameID, b.GameID); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Player, b.Player)
	})
	return out
}
