package api

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"boardgame-tracker/internal/constants"
	"boardgame-tracker/internal/domain"
)

type valueAttr struct {
	Value string `xml:"value,attr"`
}

type errorDocument struct {
	XMLName xml.Name
	Message string `xml:"message"`
	Errors  []struct {
		Message string `xml:"message"`
	} `xml:"error"`
}

// ErrorMessage extracts the human readable message of an upstream error
// document, falling back to the HTTP status.
func ErrorMessage(body []byte, status int) string {
	if msg, ok := errorDocumentMessage(body); ok {
		return msg
	}
	return fmt.Sprintf("HTTP Status %d", status)
}

func errorDocumentMessage(body []byte) (string, bool) {
	var doc errorDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return "", false
	}
	switch doc.XMLName.Local {
	case "error", "errors":
	default:
		return "", false
	}
	msg := strings.TrimSpace(doc.Message)
	for _, e := range doc.Errors {
		if msg != "" {
			break
		}
		msg = strings.TrimSpace(e.Message)
	}
	if msg == "" {
		return "", false
	}
	return msg, true
}

// WellFormed reports whether body parses as a complete XML document.
func WellFormed(body []byte) bool {
	if len(bytes.TrimSpace(body)) == 0 {
		return false
	}
	d := xml.NewDecoder(bytes.NewReader(body))
	sawElement := false
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return sawElement
		}
		if err != nil {
			return false
		}
		if _, ok := tok.(xml.StartElement); ok {
			sawElement = true
		}
	}
}

type userXML struct {
	XMLName xml.Name `xml:"user"`
	ID      string   `xml:"id,attr"`
	Name    string   `xml:"name,attr"`
}

// ParseUser returns the upstream user id, or domain.ErrInvalidUser when the
// upstream answered with an empty id.
func ParseUser(body []byte, name string) (string, error) {
	var u userXML
	if err := xml.Unmarshal(body, &u); err != nil {
		if msg, ok := errorDocumentMessage(body); ok {
			return "", fmt.Errorf("%w: %s: %s", domain.ErrInvalidUser, name, msg)
		}
		return "", fmt.Errorf("%w: user: %v", domain.ErrMalformedDocument, err)
	}
	if strings.TrimSpace(u.ID) == "" {
		return "", fmt.Errorf("%w: %s", domain.ErrInvalidUser, name)
	}
	return u.ID, nil
}

type collectionXML struct {
	XMLName xml.Name            `xml:"items"`
	Items   []collectionItemXML `xml:"item"`
}

type collectionItemXML struct {
	ObjectID string `xml:"objectid,attr"`
	Name     string `xml:"name"`
	Image    string `xml:"image"`
	NumPlays string `xml:"numplays"`
	Status   struct {
		Own        string `xml:"own,attr"`
		WantToPlay string `xml:"wanttoplay,attr"`
	} `xml:"status"`
	Stats struct {
		Rating struct {
			Value   string    `xml:"value,attr"`
			Average valueAttr `xml:"average"`
		} `xml:"rating"`
	} `xml:"stats"`
}

func ParseCollection(body []byte, username string) ([]domain.CollectionItem, error) {
	if msg, ok := errorDocumentMessage(body); ok {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrInvalidUser, username, msg)
	}

	var doc collectionXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: collection: %v", domain.ErrMalformedDocument, err)
	}

	items := make([]domain.CollectionItem, 0, len(doc.Items))
	for i, it := range doc.Items {
		id, err := requiredInt(it.ObjectID)
		if err != nil {
			return nil, fmt.Errorf("%w: collection item %d objectid: %v", domain.ErrMalformedDocument, i, err)
		}
		numPlays, err := optionalInt(it.NumPlays)
		if err != nil {
			return nil, fmt.Errorf("%w: collection item %d numplays: %v", domain.ErrMalformedDocument, id, err)
		}
		items = append(items, domain.CollectionItem{
			ObjectID:      id,
			Name:          strings.TrimSpace(it.Name),
			Owned:         it.Status.Own == "1",
			WantToPlay:    it.Status.WantToPlay == "1",
			NumPlays:      numPlays,
			MyRating:      optionalRating(it.Stats.Rating.Value),
			AverageRating: optionalRating(it.Stats.Rating.Average.Value),
			Image:         strings.TrimSpace(it.Image),
		})
	}
	return items, nil
}

type thingXML struct {
	XMLName     xml.Name `xml:"item"`
	ID          string   `xml:"id,attr"`
	Type        string   `xml:"type,attr"`
	Image       string   `xml:"image"`
	Description string   `xml:"description"`
	Names       []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"name"`
	YearPublished valueAttr `xml:"yearpublished"`
	MinPlayers    valueAttr `xml:"minplayers"`
	MaxPlayers    valueAttr `xml:"maxplayers"`
	MinPlayTime   valueAttr `xml:"minplaytime"`
	MaxPlayTime   valueAttr `xml:"maxplaytime"`
	Links         []struct {
		Type  string `xml:"type,attr"`
		Value string `xml:"value,attr"`
	} `xml:"link"`
	Statistics struct {
		Ratings struct {
			AverageWeight valueAttr `xml:"averageweight"`
		} `xml:"ratings"`
	} `xml:"statistics"`
}

// ParseThing decodes a single <item> element as stored by SplitItems.
func ParseThing(body []byte) (domain.GameMetadata, error) {
	var t thingXML
	if err := xml.Unmarshal(body, &t); err != nil {
		return domain.GameMetadata{}, fmt.Errorf("%w: thing: %v", domain.ErrMalformedDocument, err)
	}
	id, err := requiredInt(t.ID)
	if err != nil {
		return domain.GameMetadata{}, fmt.Errorf("%w: thing id: %v", domain.ErrMalformedDocument, err)
	}

	meta := domain.GameMetadata{
		ObjectID:    id,
		Type:        t.Type,
		Image:       strings.TrimSpace(t.Image),
		Description: Shorten(t.Description, constants.DescriptionLength),
	}
	for _, n := range t.Names {
		if meta.Name == "" || n.Type == "primary" {
			meta.Name = n.Value
		}
		if n.Type == "primary" {
			break
		}
	}

	ints := []struct {
		field string
		raw   string
		dst   *int
	}{
		{"yearpublished", t.YearPublished.Value, &meta.YearPublished},
		{"minplayers", t.MinPlayers.Value, &meta.MinPlayers},
		{"maxplayers", t.MaxPlayers.Value, &meta.MaxPlayers},
		{"minplaytime", t.MinPlayTime.Value, &meta.MinPlayTime},
		{"maxplaytime", t.MaxPlayTime.Value, &meta.MaxPlayTime},
	}
	for _, f := range ints {
		v, err := optionalInt(f.raw)
		if err != nil {
			return domain.GameMetadata{}, fmt.Errorf("%w: thing %d %s: %v", domain.ErrMalformedDocument, id, f.field, err)
		}
		*f.dst = v
	}

	if w := strings.TrimSpace(t.Statistics.Ratings.AverageWeight.Value); w != "" {
		meta.Weight, err = strconv.ParseFloat(w, 64)
		if err != nil {
			return domain.GameMetadata{}, fmt.Errorf("%w: thing %d averageweight: %v", domain.ErrMalformedDocument, id, err)
		}
	}

	links := map[string][]string{}
	for _, l := range t.Links {
		links[l.Type] = append(links[l.Type], l.Value)
	}
	meta.Publisher = first(links["boardgamepublisher"])
	meta.Designer = first(links["boardgamedesigner"])
	meta.Artists = upTo(links["boardgameartist"], constants.MaxArtists)
	meta.Categories = upTo(links["boardgamecategory"], constants.MaxCategories)
	meta.Mechanics = upTo(links["boardgamemechanic"], constants.MaxMechanics)

	return meta, nil
}

// RawItem is one <item> element cut out of a multi-item document, byte for byte.
type RawItem struct {
	ID   string
	Body []byte
}

// SplitItems cuts the direct <item> children out of an <items> document so
// each can be cached under its own id.
func SplitItems(body []byte) ([]RawItem, error) {
	if msg, ok := errorDocumentMessage(body); ok {
		return nil, fmt.Errorf("%w: items: upstream error: %s", domain.ErrMalformedDocument, msg)
	}

	d := xml.NewDecoder(bytes.NewReader(body))
	var out []RawItem
	depth := 0
	for {
		start := d.InputOffset()
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: items: %v", domain.ErrMalformedDocument, err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if depth == 0 && el.Name.Local != "items" {
				return nil, fmt.Errorf("%w: expected <items>, got <%s>", domain.ErrMalformedDocument, el.Name.Local)
			}
			if depth == 1 && el.Name.Local == "item" {
				id := attr(el, "id")
				if id == "" {
					return nil, fmt.Errorf("%w: item without id", domain.ErrMalformedDocument)
				}
				if err := d.Skip(); err != nil {
					return nil, fmt.Errorf("%w: item %s: %v", domain.ErrMalformedDocument, id, err)
				}
				raw := append([]byte(nil), body[start:d.InputOffset()]...)
				out = append(out, RawItem{ID: id, Body: raw})
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		}
	}
	return out, nil
}

type playsXML struct {
	XMLName xml.Name `xml:"plays"`
	Total   string   `xml:"total,attr"`
	Page    string   `xml:"page,attr"`
	Plays   []struct {
		ID       string `xml:"id,attr"`
		Date     string `xml:"date,attr"`
		Quantity string `xml:"quantity,attr"`
		Item     struct {
			Name     string `xml:"name,attr"`
			ObjectID string `xml:"objectid,attr"`
		} `xml:"item"`
		Players *struct {
			Players []struct {
				Name string `xml:"name,attr"`
				Win  string `xml:"win,attr"`
			} `xml:"player"`
		} `xml:"players"`
	} `xml:"play"`
}

type PlayerRecord struct {
	Name string
	Won  bool
}

type SessionRecord struct {
	SessionID int
	GameID    int
	GameName  string
	Date      string
	Quantity  int
	Players   []PlayerRecord
}

type PlaysPage struct {
	Total    int
	Sessions []SessionRecord
}

func ParsePlays(body []byte) (PlaysPage, error) {
	var doc playsXML
	if err := xml.Unmarshal(body, &doc); err != nil {
		return PlaysPage{}, fmt.Errorf("%w: plays: %v", domain.ErrMalformedDocument, err)
	}
	total, err := optionalInt(doc.Total)
	if err != nil {
		return PlaysPage{}, fmt.Errorf("%w: plays total: %v", domain.ErrMalformedDocument, err)
	}

	page := PlaysPage{Total: total, Sessions: make([]SessionRecord, 0, len(doc.Plays))}
	for _, p := range doc.Plays {
		sessionID, err := requiredInt(p.ID)
		if err != nil {
			return PlaysPage{}, fmt.Errorf("%w: play id: %v", domain.ErrMalformedDocument, err)
		}
		gameID, err := requiredInt(p.Item.ObjectID)
		if err != nil {
			return PlaysPage{}, fmt.Errorf("%w: play %d objectid: %v", domain.ErrMalformedDocument, sessionID, err)
		}
		quantity, err := requiredInt(p.Quantity)
		if err != nil || quantity < 1 {
			return PlaysPage{}, fmt.Errorf("%w: play %d quantity %q", domain.ErrMalformedDocument, sessionID, p.Quantity)
		}
		if p.Date == "" {
			return PlaysPage{}, fmt.Errorf("%w: play %d has no date", domain.ErrMalformedDocument, sessionID)
		}

		s := SessionRecord{
			SessionID: sessionID,
			GameID:    gameID,
			GameName:  p.Item.Name,
			Date:      p.Date,
			Quantity:  quantity,
		}
		if p.Players != nil {
			for _, pl := range p.Players.Players {
				s.Players = append(s.Players, PlayerRecord{Name: pl.Name, Won: pl.Win == "1"})
			}
		}
		page.Sessions = append(page.Sessions, s)
	}
	return page, nil
}

// Shorten collapses whitespace and truncates on a word boundary so the result,
// placeholder included, fits in width runes.
func Shorten(text string, width int) string {
	const placeholder = "..."
	collapsed := strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(collapsed) <= width {
		return collapsed
	}

	limit := width - utf8.RuneCountInString(placeholder)
	out := ""
	for _, word := range strings.Fields(collapsed) {
		candidate := word
		if out != "" {
			candidate = out + " " + word
		}
		if utf8.RuneCountInString(candidate) > limit {
			break
		}
		out = candidate
	}
	if out == "" {
		return placeholder
	}
	return out + placeholder
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

func requiredInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("missing")
	}
	return strconv.Atoi(raw)
}

func optionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

// optionalRating treats "N/A" and empty values as absent.
func optionalRating(raw string) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func upTo(values []string, n int) []string {
	if len(values) > n {
		values = values[:n]
	}
	return append([]string(nil), values...)
}

func itoa(v int) string {
	return strconv.Itoa(v)
}
