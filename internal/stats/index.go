package stats

import "boardgame-tracker/internal/domain"

// Index groups games for browsing. Slices keep the order of the input.
type Index struct {
	ByPlayerCount map[int][]*domain.Game
	ByCategory    map[string][]*domain.Game
}

// BuildIndex files every game under each player count it supports, from
// MinPlayers to MaxPlayers inclusive, and under each of its categories.
func BuildIndex(games []*domain.Game) Index {
	idx := Index{
		ByPlayerCount: make(map[int][]*domain.Game),
		ByCategory:    make(map[string][]*domain.Game),
	}
	for _, g := range games {
		lo, hi := g.Meta.MinPlayers, g.Meta.MaxPlayers
		if hi < lo {
			hi = lo
		}
		// MaxPlayers itself is a supported count
		for n := max(lo, 1); n <= hi; n++ {
			idx.ByPlayerCount[n] = append(idx.ByPlayerCount[n], g)
		}
		for _, c := range g.Meta.Categories {
			idx.ByCategory[c] = append(idx.ByCategory[c], g)
		}
	}
	return idx
}
