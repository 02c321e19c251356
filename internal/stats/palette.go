package stats

import (
	"maps"

	"boardgame-tracker/internal/constants"
)

// Palette hands out colours to players in the order they are first asked
// for. Once the colours run out every new player gets the overflow colour.
type Palette struct {
	colors   []string
	next     int
	assigned map[string]string
}

func NewPalette() *Palette {
	return &Palette{
		colors:   constants.PlayerColors,
		assigned: make(map[string]string),
	}
}

func (p *Palette) Color(player string) string {
	if c, ok := p.assigned[player]; ok {
		return c
	}
	c := constants.OverflowColor
	if p.next < len(p.colors) {
		c = p.colors[p.next]
		p.next++
	}
	p.assigned[player] = c
	return c
}

// Assignments returns a copy of every colour handed out so far.
func (p *Palette) Assignments() map[string]string {
	return maps.Clone(p.assigned)
}
