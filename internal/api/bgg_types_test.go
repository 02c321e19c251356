package api

import (
	"strings"
	"testing"

	"boardgame-tracker/internal/domain"

	"github.com/stretchr/testify/require"
)

const collectionDoc = `<?xml version="1.0" encoding="utf-8" standalone="yes"?>
<items totalitems="2" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse" pubdate="Sat, 12 Oct 2024 10:00:00 +0000">
	<item objecttype="thing" objectid="13" subtype="boardgame" collid="1001">
		<name sortindex="1">CATAN</name>
		<yearpublished>1995</yearpublished>
		<image>https://cf.geekdo-images.com/catan.jpg</image>
		<stats minplayers="3" maxplayers="4">
			<rating value="8">
				<usersrated value="120000" />
				<average value="7.1" />
			</rating>
		</stats>
		<status own="1" prevowned="0" fortrade="0" want="0" wanttoplay="0" wanttobuy="0" wishlist="0" preordered="0" lastmodified="2020-01-01 00:00:00" />
		<numplays>12</numplays>
	</item>
	<item objecttype="thing" objectid="822" subtype="boardgame" collid="1002">
		<name sortindex="1">Carcassonne</name>
		<stats>
			<rating value="N/A">
				<average value="7.4" />
			</rating>
		</stats>
		<status own="0" wanttoplay="1" />
		<numplays>0</numplays>
	</item>
</items>`

func TestParseCollection(t *testing.T) {
	items, err := ParseCollection([]byte(collectionDoc), "alice")
	require.NoError(t, err)
	require.Len(t, items, 2)

	catan := items[0]
	require.Equal(t, 13, catan.ObjectID)
	require.Equal(t, "CATAN", catan.Name)
	require.True(t, catan.Owned)
	require.False(t, catan.WantToPlay)
	require.Equal(t, 12, catan.NumPlays)
	require.NotNil(t, catan.MyRating)
	require.Equal(t, 8.0, *catan.MyRating)
	require.Equal(t, 7.1, *catan.AverageRating)
	require.Equal(t, "https://cf.geekdo-images.com/catan.jpg", catan.Image)

	carc := items[1]
	require.Nil(t, carc.MyRating)
	require.True(t, carc.WantToPlay)
	require.False(t, carc.Owned)
	require.Empty(t, carc.Image)
}

func TestParseCollectionRejectsErrorDocument(t *testing.T) {
	_, err := ParseCollection([]byte(`<errors><error><message>Invalid username specified</message></error></errors>`), "nobody")
	require.ErrorIs(t, err, domain.ErrInvalidUser)
	require.Contains(t, err.Error(), "nobody")
}

func TestParseCollectionRequiresObjectID(t *testing.T) {
	_, err := ParseCollection([]byte(`<items><item><name>x</name></item></items>`), "alice")
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestParseUser(t *testing.T) {
	id, err := ParseUser([]byte(`<user id="42" name="alice" termsofuse="x"><firstname value="A"/></user>`), "alice")
	require.NoError(t, err)
	require.Equal(t, "42", id)

	_, err = ParseUser([]byte(`<user id="" name="ghost"/>`), "ghost")
	require.ErrorIs(t, err, domain.ErrInvalidUser)

	_, err = ParseUser([]byte(`<html/>`), "ghost")
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

const thingsDoc = `<?xml version="1.0" encoding="utf-8"?>
<items termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<item type="boardgame" id="13">
		<thumbnail>https://cf.geekdo-images.com/t.jpg</thumbnail>
		<image>https://cf.geekdo-images.com/i.jpg</image>
		<name type="alternate" sortindex="1" value="Die Siedler von Catan" />
		<name type="primary" sortindex="1" value="CATAN" />
		<description>Trade, build &amp; settle.&#10;&#10;Roll the dice.</description>
		<yearpublished value="1995" />
		<minplayers value="3" />
		<maxplayers value="4" />
		<minplaytime value="60" />
		<maxplaytime value="120" />
		<link type="boardgamecategory" id="1" value="Economic" />
		<link type="boardgamemechanic" id="2" value="Dice Rolling" />
		<link type="boardgamecategory" id="3" value="Negotiation" />
		<link type="boardgamecategory" id="4" value="Territory Building" />
		<link type="boardgamedesigner" id="5" value="Klaus Teuber" />
		<link type="boardgameartist" id="6" value="Volkan Baga" />
		<link type="boardgameartist" id="7" value="Tanja Donner" />
		<link type="boardgameartist" id="8" value="Pete Fenlon" />
		<link type="boardgamepublisher" id="9" value="KOSMOS" />
		<link type="boardgamepublisher" id="10" value="999 Games" />
		<link type="boardgamemechanic" id="11" value="Hexagon Grid" />
		<link type="boardgamemechanic" id="12" value="Income" />
		<link type="boardgamemechanic" id="13" value="Modular Board" />
		<link type="boardgamemechanic" id="14" value="Trading" />
		<statistics page="1">
			<ratings>
				<average value="7.1" />
				<averageweight value="2.3" />
			</ratings>
		</statistics>
	</item>
	<item type="boardgameexpansion" id="926"><name type="primary" value="CATAN: Seafarers"/></item>
</items>`

func TestSplitItems(t *testing.T) {
	items, err := SplitItems([]byte(thingsDoc))
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "13", items[0].ID)
	require.True(t, strings.HasPrefix(string(items[0].Body), `<item type="boardgame" id="13">`))
	require.True(t, strings.HasSuffix(string(items[0].Body), `</item>`))
	require.True(t, WellFormed(items[0].Body))

	require.Equal(t, "926", items[1].ID)
	require.Equal(t, `<item type="boardgameexpansion" id="926"><name type="primary" value="CATAN: Seafarers"/></item>`, string(items[1].Body))
}

func TestSplitItemsRejectsOtherRoots(t *testing.T) {
	_, err := SplitItems([]byte(`<plays/>`))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = SplitItems([]byte(`<error><message>Rate limit</message></error>`))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = SplitItems([]byte(`<items><item type="boardgame"/></items>`))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestParseThing(t *testing.T) {
	items, err := SplitItems([]byte(thingsDoc))
	require.NoError(t, err)

	meta, err := ParseThing(items[0].Body)
	require.NoError(t, err)
	require.Equal(t, 13, meta.ObjectID)
	require.True(t, meta.IsBoardGame())
	require.Equal(t, "CATAN", meta.Name)
	require.Equal(t, "Trade, build & settle. Roll the dice.", meta.Description)
	require.Equal(t, 1995, meta.YearPublished)
	require.Equal(t, 3, meta.MinPlayers)
	require.Equal(t, 4, meta.MaxPlayers)
	require.Equal(t, 60, meta.MinPlayTime)
	require.Equal(t, 120, meta.MaxPlayTime)
	require.Equal(t, 2.3, meta.Weight)
	require.Equal(t, "KOSMOS", meta.Publisher)
	require.Equal(t, "Klaus Teuber", meta.Designer)
	require.Equal(t, []string{"Volkan Baga", "Tanja Donner"}, meta.Artists)
	require.Equal(t, []string{"Economic", "Negotiation"}, meta.Categories)
	require.Equal(t, []string{"Dice Rolling", "Hexagon Grid", "Income", "Modular Board"}, meta.Mechanics)

	exp, err := ParseThing(items[1].Body)
	require.NoError(t, err)
	require.False(t, exp.IsBoardGame())
	require.Equal(t, "CATAN: Seafarers", exp.Name)
}

func TestParseThingRejectsGarbage(t *testing.T) {
	_, err := ParseThing([]byte(`<item type="boardgame" id="x"/>`))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)

	_, err = ParseThing([]byte(`<item type="boardgame" id="1"><minplayers value="two"/></item>`))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

const playsDoc = `<?xml version="1.0" encoding="utf-8"?>
<plays username="alice" userid="42" total="3" page="1" termsofuse="https://boardgamegeek.com/xmlapi/termsofuse">
	<play id="10" date="2024-01-01" quantity="2" length="0" incomplete="0" nowinstats="0" location="">
		<item name="CATAN" objecttype="thing" objectid="13"><subtypes><subtype value="boardgame" /></subtypes></item>
		<players>
			<player username="alice" userid="42" name="A" startposition="" color="" score="" new="0" rating="0" win="1" />
			<player username="" userid="0" name="B" startposition="" color="" score="" new="0" rating="0" win="0" />
		</players>
	</play>
	<play id="11" date="2024-03-05" quantity="1" length="0" incomplete="0" nowinstats="0" location="">
		<item name="CATAN" objecttype="thing" objectid="13" />
	</play>
</plays>`

func TestParsePlays(t *testing.T) {
	page, err := ParsePlays([]byte(playsDoc))
	require.NoError(t, err)
	require.Equal(t, 3, page.Total)
	require.Len(t, page.Sessions, 2)

	s := page.Sessions[0]
	require.Equal(t, 10, s.SessionID)
	require.Equal(t, 13, s.GameID)
	require.Equal(t, "CATAN", s.GameName)
	require.Equal(t, "2024-01-01", s.Date)
	require.Equal(t, 2, s.Quantity)
	require.Equal(t, []PlayerRecord{{Name: "A", Won: true}, {Name: "B", Won: false}}, s.Players)

	require.Empty(t, page.Sessions[1].Players)
}

func TestParsePlaysRejectsBadQuantity(t *testing.T) {
	doc := `<plays total="1"><play id="1" date="2024-01-01" quantity="0"><item objectid="1"/></play></plays>`
	_, err := ParsePlays([]byte(doc))
	require.ErrorIs(t, err, domain.ErrMalformedDocument)
}

func TestShorten(t *testing.T) {
	require.Equal(t, "short text", Shorten("  short \n\n text ", 20))
	require.Equal(t, "Hello...", Shorten("Hello world again", 10))
	require.Equal(t, "...", Shorten("Supercalifragilistic", 10))
	require.LessOrEqual(t, len(Shorten(strings.Repeat("word ", 500), 1000)), 1000)
}

func TestWellFormed(t *testing.T) {
	require.True(t, WellFormed([]byte(`<items><item id="1"/></items>`)))
	require.False(t, WellFormed([]byte(`<items><item id="1">`)))
	require.False(t, WellFormed([]byte(``)))
	require.False(t, WellFormed([]byte(`just text`)))
}
