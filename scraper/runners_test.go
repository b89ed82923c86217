package scraper_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/amwatch/models"
	"github.com/padraicbc/amwatch/scraper"
)

const rosterHTML = `
<table id="runner-view-inner-table">
  <tr><td>Lucky Star<sup>1</sup></td><td>5/2<sup>*</sup></td><td>3</td><td>1</td></tr>
  <tr><td>Night Train</td><td>9/4</td><td>SCR</td><td>2</td></tr>
</table>`

func TestScrapeRunners(t *testing.T) {
	runners, err := scraper.ScrapeRunners(doc(t, rosterHTML), 7)
	require.NoError(t, err)
	require.Len(t, runners, 2)

	assert.Equal(t, "Lucky Star", runners[0].Name)
	assert.Equal(t, 1, runners[0].Tab)
	assert.Equal(t, 7, runners[0].RaceID)
	require.NotNil(t, runners[0].MorningLine)
	assert.InDelta(t, 3.5, *runners[0].MorningLine, 0.0001)
	assert.False(t, runners[0].Scratched)

	assert.Equal(t, "Night Train", runners[1].Name)
	assert.True(t, runners[1].Scratched)
}

func TestScrapeRace(t *testing.T) {
	html := rosterHTML +
		`<button id="race-3" class="btn track-num-fucus">3</button>` +
		`<span class="time">15</span>` +
		`<li class="track_type">Tbred</li>`
	retrieved := time.Now().UTC()

	race, err := scraper.ScrapeRace(doc(t, html), retrieved, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, race.MeetID)
	assert.Equal(t, 3, race.RaceNum)
	assert.Equal(t, "Tbred", race.Discipline)
	assert.Equal(t, retrieved.Add(15*time.Minute), race.EstimatedPost)
	assert.Equal(t, retrieved, race.DatetimeRetrieved)
}

func TestUpdateScratchedStatus(t *testing.T) {
	scratchedHTML := `
<table id="runner-view-inner-table">
  <tr><td>Lucky Star</td><td>5/2</td><td>SCR</td><td>1</td></tr>
  <tr><td>Night Train</td><td>9/4</td><td>4</td><td>2</td></tr>
</table>`
	runners := []*models.Runner{
		{Tab: 1, Name: "Lucky Star"},
		{Tab: 2, Name: "Night Train"},
	}

	require.NoError(t, scraper.UpdateScratchedStatus(doc(t, scratchedHTML), runners))
	assert.True(t, runners[0].Scratched)
	assert.False(t, runners[1].Scratched)
}

func TestUpdateScratchedStatusNameMismatchKeepsState(t *testing.T) {
	runners := []*models.Runner{
		{Tab: 1, Name: "Wrong Horse"},
		{Tab: 2, Name: "Night Train"},
	}

	err := scraper.UpdateScratchedStatus(doc(t, rosterHTML), runners)
	require.Error(t, err)
	assert.False(t, runners[0].Scratched)
	assert.False(t, runners[1].Scratched)
}

func TestUpdateScratchedStatusRosterSizeMismatch(t *testing.T) {
	runners := []*models.Runner{{Tab: 1, Name: "Lucky Star"}}

	err := scraper.UpdateScratchedStatus(doc(t, rosterHTML), runners)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unequal number of runners")
}

func TestScrapeResults(t *testing.T) {
	html := `
<table class="table-Result table-Result-main">
  <tr><td class="runner runner-details-close">2</td><td>Night Train</td><td>2</td></tr>
  <tr><td>1</td><td>Lucky Star</td><td>1</td></tr>
</table>`
	runners := []*models.Runner{
		{Tab: 1, Name: "Lucky Star"},
		{Tab: 2, Name: "Night Train"},
	}

	require.NoError(t, scraper.ScrapeResults(doc(t, html), runners))
	require.NotNil(t, runners[0].Result)
	assert.Equal(t, 1, *runners[0].Result)
	require.NotNil(t, runners[1].Result)
	assert.Equal(t, 2, *runners[1].Result)
}

func TestScrapeResultsNotVisible(t *testing.T) {
	// The table exists but lacks the visibility marker cell.
	html := `
<table class="table-Result table-Result-main">
  <tr><td>1</td><td>Lucky Star</td><td>1</td></tr>
</table>`

	err := scraper.ScrapeResults(doc(t, html), []*models.Runner{{Tab: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not visible")
}
