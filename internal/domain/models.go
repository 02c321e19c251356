package domain

import "math"

type CollectionItem struct {
	ObjectID   int
	Name       string
	Owned      bool
	WantToPlay bool
	// as reported by the collection snapshot; plays are counted from PlayEvents
	NumPlays      int
	MyRating      *float64
	AverageRating *float64
	Image         string
}

type GameMetadata struct {
	ObjectID      int
	Type          string
	Name          string
	Image         string
	Description   string
	MinPlayers    int
	MaxPlayers    int
	MinPlayTime   int
	MaxPlayTime   int
	YearPublished int
	Weight        float64
	Publisher     string
	Designer      string
	Artists       []string
	Categories    []string
	Mechanics     []string
}

const TypeBoardGame = "boardgame"

func (m GameMetadata) IsBoardGame() bool {
	return m.Type == TypeBoardGame
}

// Game joins a collection entry with its catalog metadata.
type Game struct {
	Item       CollectionItem
	Meta       GameMetadata
	LastPlayed string
}

func (g Game) Image() string {
	if g.Item.Image != "" {
		return g.Item.Image
	}
	return g.Meta.Image
}

// Rating is the user's rating averaged with the community average, or the
// community average alone when the user has not rated the game.
func (g Game) Rating() *float64 {
	avg := g.Item.AverageRating
	if avg == nil {
		return g.Item.MyRating
	}
	if g.Item.MyRating == nil {
		r := round1(*avg)
		return &r
	}
	r := round1((*avg + *g.Item.MyRating) / 2)
	return &r
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// PlayEvent is one participant of one logged session. Quantity belongs to the
// session and is repeated on every participant row.
type PlayEvent struct {
	GameID     int
	GameName   string
	SessionID  int
	Date       string
	Quantity   int
	PlayerName string
	Won        bool
}

// PlayLog accumulates the PlayEvents of a run.
type PlayLog struct {
	events []PlayEvent
}

func (l *PlayLog) Append(events ...PlayEvent) {
	l.events = append(l.events, events...)
}

func (l *PlayLog) Len() int {
	return len(l.events)
}

// Events returns a copy so callers cannot mutate the log.
func (l *PlayLog) Events() []PlayEvent {
	out := make([]PlayEvent, len(l.events))
	copy(out, l.events)
	return out
}
