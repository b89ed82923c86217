package prepper

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

// fakeSession serves a fixed page body for every read.
type fakeSession struct {
	html      string
	navigates int
}

func (f *fakeSession) Navigate(context.Context, string) error {
	f.navigates++
	return nil
}
func (f *fakeSession) CurrentURL() string            { return "" }
func (f *fakeSession) Refresh(context.Context) error { return nil }
func (f *fakeSession) PageContent() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.html))
}
func (f *fakeSession) Cookies() []*http.Cookie { return nil }
func (f *fakeSession) AddCookie(*http.Cookie)  {}
func (f *fakeSession) Quit()                   {}

// A one-race card whose race already has results: race 1 focused, results
// table visible, no runner table.
const postedPage = `
<button id="race-1" class="btn track-num-fucus">1</button>
<span class="eventName">Parx Racing</span>
<span class="time">5</span>
<li class="track_type">Thoroughbred</li>
<table class="table-Result table-Result-main">
  <tr><td class="runner runner-details-close">Lucky Star</td></tr>
</table>`

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

func seedTrack(t *testing.T, bdb *bun.DB) *models.Track {
	t.Helper()
	amw, display := "PRX", "Parx Racing"
	track := &models.Track{
		Name:               "Parx Racing",
		Amwager:            &amw,
		AmwagerListDisplay: &display,
		Country:            "US",
		Timezone:           "America/New_York",
	}
	require.NoError(t, db.AddAndCommit(context.Background(), bdb, track))
	return track
}

func seedTodaysMeet(t *testing.T, bdb *bun.DB, track *models.Track) *models.Meet {
	t.Helper()
	now := time.Now().UTC()
	loc, err := time.LoadLocation(track.Timezone)
	require.NoError(t, err)
	meet := &models.Meet{TrackID: track.TrackID, LocalDate: now.In(loc).Format(models.DateLayout)}
	meet.DatetimeRetrieved = now
	require.NoError(t, db.AddAndCommit(context.Background(), bdb, meet))
	return meet
}

func TestRetryStopsAfterBudget(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), 3, time.Millisecond, func() error {
		attempts++
		return errors.New("still broken")
	})
	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryReturnsFirstSuccess(t *testing.T) {
	attempts := 0
	err := retry(context.Background(), 5, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("not yet")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := retry(ctx, 10, time.Minute, func() error {
		attempts++
		cancel()
		return errors.New("broken")
	})
	require.Error(t, err)
	// Cancellation between attempts stops the loop without burning the budget.
	assert.Equal(t, 1, attempts)
}

func TestRunShortCircuitsCompletedCard(t *testing.T) {
	bdb := testDB(t)
	track := seedTrack(t, bdb)
	session := &fakeSession{html: postedPage}

	p := New(bdb, session, nil, &config.Config{BaseURL: "https://wager.test"}, zap.NewNop(), track.TrackID)
	require.NoError(t, p.Run(context.Background()))

	ctx := context.Background()
	meets, err := bdb.NewSelect().Model((*models.Meet)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, meets)

	// Every race already has results, so no race or runner rows get written.
	races, err := bdb.NewSelect().Model((*models.Race)(nil)).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, races)
}

func TestAddOneRaceSkipsPostedRace(t *testing.T) {
	bdb := testDB(t)
	track := seedTrack(t, bdb)
	meet := seedTodaysMeet(t, bdb, track)

	p := New(bdb, &fakeSession{html: postedPage}, nil,
		&config.Config{BaseURL: "https://wager.test"}, zap.NewNop(), track.TrackID)
	p.track = track
	p.meet = meet

	require.NoError(t, p.addOneRace(context.Background(), 1))

	count, err := bdb.NewSelect().Model((*models.Race)(nil)).Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestRunRollsBackMeetOnFailure(t *testing.T) {
	bdb := testDB(t)
	track := seedTrack(t, bdb)
	meet := seedTodaysMeet(t, bdb, track)
	ctx := context.Background()
	now := time.Now().UTC()

	race := &models.Race{MeetID: meet.MeetID, RaceNum: 1, EstimatedPost: now.Add(time.Hour), Discipline: "Tbred"}
	race.DatetimeRetrieved = now
	require.NoError(t, db.AddAndCommit(ctx, bdb, race))
	runner := &models.Runner{RaceID: race.RaceID, Tab: 1, Name: "Lucky Star"}
	require.NoError(t, db.AddAndCommit(ctx, bdb, runner))

	// A track id with no catalog row fails preparation straight away; the
	// partially built meet goes down with it.
	p := New(bdb, &fakeSession{html: postedPage}, nil,
		&config.Config{BaseURL: "https://wager.test"}, zap.NewNop(), track.TrackID+999)
	p.meet = meet
	require.Error(t, p.Run(ctx))

	for _, model := range []any{
		(*models.Meet)(nil),
		(*models.Race)(nil),
		(*models.Runner)(nil),
	} {
		count, err := bdb.NewSelect().Model(model).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "%T", model)
	}
}
