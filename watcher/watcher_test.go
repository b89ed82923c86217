package watcher

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/models"
)

// fakeSession serves a fixed page body.
type fakeSession struct {
	html       string
	refreshes  int
	refreshErr error
}

func (f *fakeSession) Navigate(context.Context, string) error { return nil }
func (f *fakeSession) CurrentURL() string                     { return "" }
func (f *fakeSession) Refresh(context.Context) error {
	f.refreshes++
	return f.refreshErr
}
func (f *fakeSession) PageContent() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}
func (f *fakeSession) Cookies() []*http.Cookie { return nil }
func (f *fakeSession) AddCookie(*http.Cookie)  {}
func (f *fakeSession) Quit()                   {}

func testDB(t *testing.T) *bun.DB {
	t.Helper()
	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	bdb := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bdb.Close() })
	require.NoError(t, db.CreateTables(context.Background(), bdb))
	return bdb
}

func seedRace(t *testing.T, bdb *bun.DB) (*models.Race, []*models.Runner) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()

	track := &models.Track{Name: "Parx Racing", Country: "US", Timezone: "America/New_York"}
	require.NoError(t, db.AddAndCommit(ctx, bdb, track))

	loc, _ := time.LoadLocation(track.Timezone)
	meet := &models.Meet{TrackID: track.TrackID, LocalDate: now.In(loc).Format(models.DateLayout)}
	meet.DatetimeRetrieved = now
	require.NoError(t, db.AddAndCommit(ctx, bdb, meet))

	race := &models.Race{MeetID: meet.MeetID, RaceNum: 1, EstimatedPost: now.Add(time.Hour), Discipline: "Tbred"}
	race.DatetimeRetrieved = now
	require.NoError(t, db.AddAndCommit(ctx, bdb, race))

	var runners []*models.Runner
	for tab, name := range map[int]string{1: "Lucky Star", 2: "Night Train"} {
		runner := &models.Runner{RaceID: race.RaceID, Tab: tab, Name: name}
		require.NoError(t, db.AddAndCommit(ctx, bdb, runner))
		runners = append(runners, runner)
	}
	if runners[0].Tab > runners[1].Tab {
		runners[0], runners[1] = runners[1], runners[0]
	}
	return race, runners
}

func newTestWatcher(bdb *bun.DB, session *fakeSession, race *models.Race, runners []*models.Runner, mode Mode) *RaceWatcher {
	w := New(bdb, session, &config.Config{}, zap.NewNop(), race.RaceID, mode)
	w.race = race
	w.runners = runners
	return w
}

const freshLabels = `<label id="updateMinutes">0</label><label id="updateSeconds">2</label>`

const watchPage = freshLabels + `
<span class="time">0</span>
<table id="runner-view-inner-table">
  <tr><td>Lucky Star</td><td>5/2</td><td>3</td><td>1</td></tr>
  <tr><td>Night Train</td><td>9/4</td><td>4</td><td>2</td></tr>
</table>
<div data-translate-lang="wager.raceclosedmessage" style=""></div>
<table id="matrixTableOdds">
  <tr><th></th><th>TRU Odds</th><th>WIN Odds</th></tr>
  <tr><td>1</td><td>2.8</td><td>5/2</td></tr>
  <tr><td>2</td><td>4.1</td><td>4.0</td></tr>
  <tr><td>Total</td><td></td><td></td></tr>
</table>`

func TestTickSkipsStalePage(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	session := &fakeSession{html: `<label id="updateMinutes">5</label><label id="updateSeconds">0</label>`}
	w := newTestWatcher(bdb, session, race, runners, WatchToResults)

	done, err := w.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, 1, session.refreshes)

	// A skipped tick writes nothing.
	count, err := bdb.NewSelect().Model((*models.AmwagerIndividualOdds)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTickRefreshFailureAborts(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	session := &fakeSession{refreshErr: errors.New("connection reset")}
	w := newTestWatcher(bdb, session, race, runners, WatchToResults)

	_, err := w.tick(context.Background())
	assert.Error(t, err)
}

func TestTickRecordsOddsAndStopsOnClose(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	session := &fakeSession{html: watchPage}
	w := newTestWatcher(bdb, session, race, runners, WatchToClose)

	done, err := w.tick(context.Background())
	require.NoError(t, err)
	// Wagering is closed and the watch only runs to close.
	assert.True(t, done)

	count, err := bdb.NewSelect().Model((*models.AmwagerIndividualOdds)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTickEstablishesMissingRoster(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	// The preparer never got this race's roster in.
	require.NoError(t, db.DeleteModels(context.Background(), bdb, &runners))

	session := &fakeSession{html: watchPage}
	w := newTestWatcher(bdb, session, race, nil, WatchToResults)

	_, err := w.tick(context.Background())
	require.NoError(t, err)
	require.Len(t, w.runners, 2)
	assert.NotZero(t, w.runners[0].RunnerID)

	count, err := bdb.NewSelect().Model((*models.Runner)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

const resultsPage = freshLabels + `
<span class="time">0</span>
<table class="table-Result table-Result-main">
  <tr><td class="runner runner-details-close">Lucky Star</td></tr>
</table>
<div data-translate-lang="wager.raceclosedmessage" style=""></div>`

func TestTickTerminatesOnResultsWithoutRoster(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	require.NoError(t, db.DeleteModels(context.Background(), bdb, &runners))

	// The results page carries no runner table, so the roster can never be
	// established; the watch must still end once results are posted.
	session := &fakeSession{html: resultsPage}
	w := newTestWatcher(bdb, session, race, nil, WatchToResults)

	done, err := w.tick(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Empty(t, w.runners)
}

func TestTickEstablishesRosterOnStaleRender(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	require.NoError(t, db.DeleteModels(context.Background(), bdb, &runners))

	// The render-age gate only applies once the roster exists; a first read
	// of a lagging page still gets the roster in.
	stale := strings.Replace(watchPage, freshLabels,
		`<label id="updateMinutes">5</label><label id="updateSeconds">0</label>`, 1)
	session := &fakeSession{html: stale}
	w := newTestWatcher(bdb, session, race, nil, WatchToResults)

	done, err := w.tick(context.Background())
	require.NoError(t, err)
	assert.False(t, done)
	assert.Len(t, w.runners, 2)
}

func TestTickKeepsWatchingUntilResults(t *testing.T) {
	bdb := testDB(t)
	race, runners := seedRace(t, bdb)
	session := &fakeSession{html: watchPage}
	w := newTestWatcher(bdb, session, race, runners, WatchToResults)

	done, err := w.tick(context.Background())
	require.NoError(t, err)
	// Closed wagering alone does not end a watch that wants results.
	assert.False(t, done)
}
