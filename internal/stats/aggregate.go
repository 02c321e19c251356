// Package stats derives read-only views from a set of PlayEvents. Nothing
// here does I/O or keeps state between calls.
package stats

import (
	"slices"

	"boardgame-tracker/internal/domain"
)

// GamePlayer keys per-player tables.
type GamePlayer struct {
	GameID int
	Player string
}

// LastPlayed maps each game to the latest date it was played. ISO dates
// compare correctly as strings.
func LastPlayed(events []domain.PlayEvent) map[int]string {
	last := make(map[int]string)
	for _, ev := range events {
		if ev.Date > last[ev.GameID] {
			last[ev.GameID] = ev.Date
		}
	}
	return last
}

// LastPlayedFor reports false when the game has no sessions in events.
func LastPlayedFor(events []domain.PlayEvent, gameID int) (string, bool) {
	var date string
	found := false
	for _, ev := range events {
		if ev.GameID != gameID {
			continue
		}
		if !found || ev.Date > date {
			date = ev.Date
		}
		found = true
	}
	return date, found
}

// SplitPeriod separates events dated on or after cutoff from the older ones.
func SplitPeriod(events []domain.PlayEvent, cutoff string) (current, prior []domain.PlayEvent) {
	for _, ev := range events {
		if ev.Date >= cutoff {
			current = append(current, ev)
		} else {
			prior = append(prior, ev)
		}
	}
	return current, prior
}

// TotalQuantity sums the quantity of every distinct session per game.
// Quantity is repeated on each participant row, so sessions count once.
func TotalQuantity(events []domain.PlayEvent) map[int]int {
	type session struct{ game, id int }
	seen := make(map[session]bool)
	totals := make(map[int]int)
	for _, ev := range events {
		k := session{ev.GameID, ev.SessionID}
		if seen[k] {
			continue
		}
		seen[k] = true
		totals[ev.GameID] += ev.Quantity
	}
	return totals
}

// PlayerQuantity sums quantity per game and participant.
func PlayerQuantity(events []domain.PlayEvent) map[GamePlayer]int {
	out := make(map[GamePlayer]int)
	for _, ev := range events {
		out[GamePlayer{ev.GameID, ev.PlayerName}] += ev.Quantity
	}
	return out
}

// WinTally counts wins per game and participant, scaling each recorded win
// by the quantity of its session.
func WinTally(events []domain.PlayEvent) map[GamePlayer]int {
	type group struct {
		GamePlayer
		quantity int
	}
	wins := make(map[group]int)
	for _, ev := range events {
		g := group{GamePlayer{ev.GameID, ev.PlayerName}, ev.Quantity}
		if ev.Won {
			wins[g]++
		} else if _, ok := wins[g]; !ok {
			wins[g] = 0
		}
	}

	out := make(map[GamePlayer]int)
	for g, n := range wins {
		out[g.GamePlayer] += n * g.quantity
	}
	return out
}

type PlayerWins struct {
	Player string `json:"player"`
	Wins   int    `json:"wins"`
	Color  string `json:"color,omitempty"`
}

// Ranking counts recorded wins per player across all games, most wins
// first. Ties keep the order in which players first appear in events.
func Ranking(events []domain.PlayEvent) []PlayerWins {
	index := make(map[string]int)
	var ranking []PlayerWins
	for _, ev := range events {
		i, ok := index[ev.PlayerName]
		if !ok {
			i = len(ranking)
			index[ev.PlayerName] = i
			ranking = append(ranking, PlayerWins{Player: ev.PlayerName})
		}
		if ev.Won {
			ranking[i].Wins++
		}
	}

	slices.SortStableFunc(ranking, func(a, b PlayerWins) int {
		return b.Wins - a.Wins
	})
	return ranking
}
