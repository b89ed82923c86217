package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/amwatch/models"
)

const (
	multiLegTotalsSel  = "table#totalsLegs"
	multiRaceTotalsSel = "table#totalsRace"
	individualTotals   = "table#totalsRunner"
	payoutTableSel     = "table.table-Result.table-Result-Pool"
)

// betTypeCodes maps the site's short bet type codes to column names.
var betTypeCodes = map[string]string{
	"EX":  "exacta",
	"QU":  "quinella",
	"TRI": "trifecta",
	"SPR": "superfecta",
	"DBL": "double",
	"PK3": "pick_3",
	"PK4": "pick_4",
	"PK5": "pick_5",
	"PK6": "pick_6",
}

// individualBetCodes maps the single-runner bet codes used by the individual
// commissions table.
var individualBetCodes = map[string]string{
	"WIN": "win",
	"PLC": "place",
	"SHW": "show",
}

// betTypeFullNames maps the payout table's spelled-out pool names.
var betTypeFullNames = map[string]string{
	"EXACTA":     "exacta",
	"QUINELLA":   "quinella",
	"TRIFECTA":   "trifecta",
	"SUPERFECTA": "superfecta",
	"DOUBLE":     "double",
	"PICK 3":     "pick_3",
	"PICK 4":     "pick_4",
	"PICK 5":     "pick_5",
	"PICK 6":     "pick_6",
}

// exoticTotalRows merges the multi-leg and multi-race totals tables into
// bet_type/total pairs. Both tables must be present.
func exoticTotalRows(doc *goquery.Document) ([][2]string, error) {
	var rows [][2]string
	for _, sel := range []string{multiLegTotalsSel, multiRaceTotalsSel} {
		t, err := parseTable(doc, sel)
		if err != nil {
			return nil, err
		}
		for i, row := range t.rows {
			if len(row) < 2 {
				return nil, fmt.Errorf("table %s row %d has no total column", sel, i)
			}
			rows = append(rows, [2]string{row[0], row[1]})
		}
	}
	return rows, nil
}

// ScrapeExoticTotals captures the race's exotic pool totals. Bet types not on
// the page record as zero; an unrecognized bet type fails the whole scrape.
func ScrapeExoticTotals(doc *goquery.Document, raceID int, status models.RaceStatus) (*models.ExoticTotals, error) {
	rows, err := exoticTotalRows(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape exotic totals: %w", err)
	}

	totals := map[string]int{}
	for _, row := range rows {
		// "EX (20%)" carries the commission; only the code matters here.
		code, _, _ := strings.Cut(row[0], " ")
		column, ok := betTypeCodes[code]
		if !ok {
			return nil, fmt.Errorf("cannot scrape exotic totals: unknown bet type %q", row[0])
		}
		amount, err := parseMoney(row[1], 0)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape exotic totals: %w", err)
		}
		totals[column] = amount
	}

	rec := &models.ExoticTotals{
		RaceID:     raceID,
		Exacta:     totals["exacta"],
		Quinella:   totals["quinella"],
		Trifecta:   totals["trifecta"],
		Superfecta: totals["superfecta"],
		Double:     totals["double"],
		Pick3:      totals["pick_3"],
		Pick4:      totals["pick_4"],
		Pick5:      totals["pick_5"],
		Pick6:      totals["pick_6"],
	}
	rec.RaceStatus = status
	return rec, nil
}

// parseCommission converts a "(15%)" annotation to a fraction.
func parseCommission(s string) (*float64, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), "%)")
	pct, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("bad commission %q: %w", s, err)
	}
	frac := pct / 100.0
	return &frac, nil
}

// ScrapeRaceCommissions captures the commission fraction per bet type. Exotic
// commissions ride along on the totals tables ("EX (20%)"), win/place/show on
// the individual totals table's column headers. Unannotated bet types are null.
func ScrapeRaceCommissions(doc *goquery.Document, raceID int, status models.RaceStatus) (*models.RaceCommission, error) {
	rows, err := exoticTotalRows(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape race commissions: %w", err)
	}

	rec := &models.RaceCommission{RaceID: raceID}
	rec.RaceStatus = status
	exoticDest := map[string]**float64{
		"exacta":     &rec.Exacta,
		"quinella":   &rec.Quinella,
		"trifecta":   &rec.Trifecta,
		"superfecta": &rec.Superfecta,
		"double":     &rec.Double,
		"pick_3":     &rec.Pick3,
		"pick_4":     &rec.Pick4,
		"pick_5":     &rec.Pick5,
		"pick_6":     &rec.Pick6,
	}

	for _, row := range rows {
		code, annotation, ok := strings.Cut(row[0], " ")
		column, known := betTypeCodes[code]
		if !known {
			return nil, fmt.Errorf("cannot scrape race commissions: unknown bet type %q", row[0])
		}
		if !ok {
			continue
		}
		frac, err := parseCommission(annotation)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape race commissions: %w", err)
		}
		*exoticDest[column] = frac
	}

	// Individual commissions: headers read "WIN (15%)", one column per bet.
	t, err := parseTable(doc, individualTotals)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape race commissions: cannot add individual commissions: %w", err)
	}
	individualDest := map[string]**float64{
		"win":   &rec.Win,
		"place": &rec.Place,
		"show":  &rec.Show,
	}
	for _, h := range t.header {
		if h == "Runner" {
			continue
		}
		code, annotation, ok := strings.Cut(h, " ")
		column, known := individualBetCodes[code]
		if !known {
			return nil, fmt.Errorf("cannot scrape race commissions: unknown bet type %q", h)
		}
		if !ok {
			continue
		}
		frac, err := parseCommission(annotation)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape race commissions: %w", err)
		}
		*individualDest[column] = frac
	}

	return rec, nil
}

// ScrapePayouts captures settled exotic payouts per dollar wagered from the
// results pool table. A bet type listed twice (multiple winning combinations)
// fails the scrape rather than guessing which line applies.
func ScrapePayouts(doc *goquery.Document, raceID int, status models.RaceStatus) (*models.PayoutPerDollar, error) {
	t, err := parseTable(doc, payoutTableSel)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape payout table: %w", err)
	}

	rec := &models.PayoutPerDollar{RaceID: raceID}
	rec.RaceStatus = status
	dest := map[string]**float64{
		"exacta":     &rec.Exacta,
		"quinella":   &rec.Quinella,
		"trifecta":   &rec.Trifecta,
		"superfecta": &rec.Superfecta,
		"double":     &rec.Double,
		"pick_3":     &rec.Pick3,
		"pick_4":     &rec.Pick4,
		"pick_5":     &rec.Pick5,
		"pick_6":     &rec.Pick6,
	}

	seen := map[string]bool{}
	for i := range t.rows {
		name, err := t.cell(i, "Pool Name")
		if err != nil {
			return nil, fmt.Errorf("cannot scrape payout table: %w", err)
		}
		if seen[name] {
			return nil, fmt.Errorf("cannot scrape payout table: multiples of same bet type found: %q", name)
		}
		seen[name] = true

		// Pools other than the known exotics (WIN, PLACE, ...) are skipped.
		column, ok := betTypeFullNames[name]
		if !ok {
			continue
		}

		wagerText, err := t.cell(i, "Wager")
		if err != nil {
			return nil, fmt.Errorf("cannot scrape payout table: %w", err)
		}
		payoutText, err := t.cell(i, "Payout")
		if err != nil {
			return nil, fmt.Errorf("cannot scrape payout table: %w", err)
		}
		wager, err := parseMoneyFloat(wagerText)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape payout table: %w", err)
		}
		payout, err := parseMoneyFloat(payoutText)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape payout table: %w", err)
		}
		if wager == nil || payout == nil || *wager == 0 {
			continue
		}
		perDollar := *payout / *wager
		*dest[column] = &perDollar
	}

	return rec, nil
}
