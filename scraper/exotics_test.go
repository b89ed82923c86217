package scraper_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/padraicbc/amwatch/scraper"
)

const totalsHTML = `
<table id="totalsLegs">
  <tr><th>Multi Leg</th><th>Multi Leg</th></tr>
  <tr><td>PK3 (25%)</td><td>$3,000</td></tr>
  <tr><td>PK4 (25%)</td><td>$800</td></tr>
</table>
<table id="totalsRace">
  <tr><th>Multi Race</th><th>Multi Race</th></tr>
  <tr><td>EX (20%)</td><td>$5,000</td></tr>
  <tr><td>TRI (25%)</td><td>$1,200</td></tr>
  <tr><td>DBL</td><td>$600</td></tr>
</table>`

func TestScrapeExoticTotals(t *testing.T) {
	totals, err := scraper.ScrapeExoticTotals(doc(t, totalsHTML), 9, testStatus())
	require.NoError(t, err)

	assert.Equal(t, 9, totals.RaceID)
	assert.Equal(t, 5000, totals.Exacta)
	assert.Equal(t, 1200, totals.Trifecta)
	assert.Equal(t, 600, totals.Double)
	assert.Equal(t, 3000, totals.Pick3)
	assert.Equal(t, 800, totals.Pick4)
	// Bet types absent from the page are zero.
	assert.Equal(t, 0, totals.Quinella)
	assert.Equal(t, 0, totals.Superfecta)
}

func TestScrapeExoticTotalsUnknownBetType(t *testing.T) {
	html := `
<table id="totalsLegs">
  <tr><th>Multi Leg</th><th>Multi Leg</th></tr>
  <tr><td>OMNI (25%)</td><td>$3,000</td></tr>
</table>
<table id="totalsRace">
  <tr><th>Multi Race</th><th>Multi Race</th></tr>
  <tr><td>EX (20%)</td><td>$5,000</td></tr>
</table>`

	_, err := scraper.ScrapeExoticTotals(doc(t, html), 9, testStatus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown bet type")
}

func TestScrapeRaceCommissions(t *testing.T) {
	html := totalsHTML + `
<table id="totalsRunner">
  <tr><th>Runner</th><th>WIN (15%)</th><th>PLC (18%)</th><th>SHW</th></tr>
  <tr><td>1</td><td>$100</td><td>$50</td><td>$25</td></tr>
</table>`

	commissions, err := scraper.ScrapeRaceCommissions(doc(t, html), 9, testStatus())
	require.NoError(t, err)

	require.NotNil(t, commissions.Exacta)
	assert.InDelta(t, 0.20, *commissions.Exacta, 0.0001)
	require.NotNil(t, commissions.Pick3)
	assert.InDelta(t, 0.25, *commissions.Pick3, 0.0001)
	require.NotNil(t, commissions.Win)
	assert.InDelta(t, 0.15, *commissions.Win, 0.0001)
	require.NotNil(t, commissions.Place)
	assert.InDelta(t, 0.18, *commissions.Place, 0.0001)

	// Unannotated bet types stay null.
	assert.Nil(t, commissions.Double)
	assert.Nil(t, commissions.Show)
	assert.Nil(t, commissions.Quinella)
}

func TestScrapePayouts(t *testing.T) {
	html := `
<table class="table-Result table-Result-Pool">
  <tr><th>Pool Name</th><th>Finish</th><th>Wager</th><th>Payout</th><th>Total Pool</th></tr>
  <tr><td>EXACTA</td><td>1-2</td><td>$2.00</td><td>$25.00</td><td>$5,000</td></tr>
  <tr><td>PICK 3</td><td>1-2-3</td><td>$1.00</td><td>$80.00</td><td>$3,000</td></tr>
  <tr><td>WIN</td><td>1</td><td>$2.00</td><td>$7.00</td><td>$9,000</td></tr>
</table>`

	payouts, err := scraper.ScrapePayouts(doc(t, html), 9, testStatus())
	require.NoError(t, err)

	assert.Equal(t, 9, payouts.RaceID)
	require.NotNil(t, payouts.Exacta)
	assert.InDelta(t, 12.5, *payouts.Exacta, 0.0001)
	require.NotNil(t, payouts.Pick3)
	assert.InDelta(t, 80.0, *payouts.Pick3, 0.0001)
	// WIN is not an exotic pool.
	assert.Nil(t, payouts.Trifecta)
	assert.Nil(t, payouts.Double)
}

func TestScrapePayoutsRejectsDuplicateBetTypes(t *testing.T) {
	// Two winning combinations for one pool: no way to pick a line.
	html := `
<table class="table-Result table-Result-Pool">
  <tr><th>Pool Name</th><th>Finish</th><th>Wager</th><th>Payout</th><th>Total Pool</th></tr>
  <tr><td>EXACTA</td><td>1-2</td><td>$2.00</td><td>$25.00</td><td>$5,000</td></tr>
  <tr><td>EXACTA</td><td>1-3</td><td>$2.00</td><td>$20.00</td><td>$5,000</td></tr>
</table>`

	_, err := scraper.ScrapePayouts(doc(t, html), 9, testStatus())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiples of same bet type")
}
