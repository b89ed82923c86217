package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/amwatch/scraper"
)

func TestGetTrackList(t *testing.T) {
	html := `
<a class="event_selector event-status-O" id="PRX"><span class="eventName">Parx Racing</span></a>
<a class="event_selector event-status-C" id="MNR"><span class="eventName">Mountaineer</span></a>
<a class="some-other-link" id="nav-home">Home</a>`

	listings, err := scraper.GetTrackList(doc(t, html))
	require.NoError(t, err)
	require.Len(t, listings, 2)
	assert.Equal(t, "PRX", listings[0].ID)
	assert.Contains(t, listings[0].HTML, "Parx Racing")
	assert.Equal(t, "MNR", listings[1].ID)
}

func TestGetTrackListRejectsEntriesWithoutIDs(t *testing.T) {
	html := `<a class="event_selector event-status-O"><span class="eventName">No ID</span></a>`

	_, err := scraper.GetTrackList(doc(t, html))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown formatting")
}

func TestGetTrackListEmptyPage(t *testing.T) {
	_, err := scraper.GetTrackList(doc(t, `<div></div>`))
	assert.Error(t, err)
}

func TestGetNumRaces(t *testing.T) {
	html := `
<button id="race-1">1</button>
<button id="race-2">2</button>
<button id="race-10">10</button>
<button id="race-all">All</button>`

	num, err := scraper.GetNumRaces(doc(t, html))
	require.NoError(t, err)
	assert.Equal(t, 10, num)
}

func TestGetNumRacesNoButtons(t *testing.T) {
	_, err := scraper.GetNumRaces(doc(t, `<div></div>`))
	assert.Error(t, err)
}

func TestGetDiscipline(t *testing.T) {
	discipline, err := scraper.GetDiscipline(doc(t, `<li class="track_type"> Harness </li>`))
	require.NoError(t, err)
	assert.Equal(t, "Harness", discipline)

	_, err = scraper.GetDiscipline(doc(t, `<div></div>`))
	assert.Error(t, err)
}

func TestGetFocusedRaceNum(t *testing.T) {
	html := `
<button id="race-1" class="btn">1</button>
<button id="race-4" class="btn track-num-fucus">4</button>`

	num, err := scraper.GetFocusedRaceNum(doc(t, html))
	require.NoError(t, err)
	assert.Equal(t, 4, num)

	_, err = scraper.GetFocusedRaceNum(doc(t, `<button id="race-1" class="btn">1</button>`))
	assert.Error(t, err)
}
