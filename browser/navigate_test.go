package browser

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/amwatch/models"
)

type fakeSession struct {
	html      string
	current   string
	navigates int
	refreshes int
}

func (f *fakeSession) Navigate(_ context.Context, pageURL string) error {
	f.navigates++
	f.current = pageURL
	return nil
}
func (f *fakeSession) CurrentURL() string { return f.current }
func (f *fakeSession) Refresh(context.Context) error {
	f.refreshes++
	return nil
}
func (f *fakeSession) PageContent() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}
func (f *fakeSession) Cookies() []*http.Cookie { return nil }
func (f *fakeSession) AddCookie(*http.Cookie)  {}
func (f *fakeSession) Quit()                   {}

func testTrack() *models.Track {
	amw, display := "PRX", "Parx Racing"
	return &models.Track{
		Name:               "Parx Racing",
		Amwager:            &amw,
		AmwagerListDisplay: &display,
		Country:            "US",
		Timezone:           "America/New_York",
	}
}

const focusedPage = `
<button id="race-2" class="btn track-num-fucus">2</button>
<span class="eventName">Parx Racing</span>`

func TestRaceURL(t *testing.T) {
	assert.Equal(t, "https://x.example/#wager/PRX/3", RaceURL("https://x.example", "PRX", 3))
}

func TestGoToRaceNavigatesWhenElsewhere(t *testing.T) {
	session := &fakeSession{html: focusedPage, current: "https://x.example/#wager"}

	err := GoToRace(context.Background(), session, "https://x.example", testTrack(), 2)
	require.NoError(t, err)
	assert.Equal(t, 1, session.navigates)
	assert.Zero(t, session.refreshes)
	assert.Equal(t, "https://x.example/#wager/PRX/2", session.CurrentURL())
}

func TestGoToRaceRefreshesWhenAlreadyThere(t *testing.T) {
	session := &fakeSession{html: focusedPage, current: "https://x.example/#wager/PRX/2"}

	err := GoToRace(context.Background(), session, "https://x.example", testTrack(), 2)
	require.NoError(t, err)
	assert.Zero(t, session.navigates)
	assert.Equal(t, 1, session.refreshes)
}

func TestGoToRaceRequiresSiteIdentifier(t *testing.T) {
	track := testTrack()
	track.Amwager = nil

	err := GoToRace(context.Background(), &fakeSession{}, "https://x.example", track, 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no wagering site identifier")
}

func TestGoToRaceHonorsCancellation(t *testing.T) {
	// Page never reaches focus; cancellation must end the polling loop.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &fakeSession{html: `<div></div>`}

	err := GoToRace(ctx, session, "https://x.example", testTrack(), 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRaceFocused(t *testing.T) {
	page := func(html string) *goquery.Document {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		require.NoError(t, err)
		return doc
	}

	assert.True(t, raceFocused(page(`<button id="race-2" class="btn track-num-fucus">2</button>`), 2))
	assert.False(t, raceFocused(page(`<button id="race-2" class="btn">2</button>`), 2))
	assert.False(t, raceFocused(page(`<div></div>`), 2))
}

func TestTrackFocusedViaDropdown(t *testing.T) {
	html := `<button class="` + trackDropdownClass + `">Parx Racing</button>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	assert.True(t, trackFocused(doc, testTrack()))

	other := testTrack()
	display := "Somewhere Else"
	other.AmwagerListDisplay = &display
	assert.False(t, trackFocused(doc, other))
}

func TestParseCookies(t *testing.T) {
	cookies := ParseCookies("session=abc123; theme=dark; malformed")
	require.Len(t, cookies, 2)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Equal(t, "abc123", cookies[0].Value)
	assert.Equal(t, "theme", cookies[1].Name)
}
