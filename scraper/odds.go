package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/amwatch/models"
)

const (
	oddsTableSel     = "table#matrixTableOdds"
	doubleMatrixSel  = "div#DBL-Matrix"
	exactaMatrixSel  = "div#EX-Matrix"
	quinellaMatrix   = "div#QU-Matrix"
	doubleFairClass  = "dblMatrixPrice"
	exactaFairClass  = "exaMatrixPrice"
	quinellaFairCls  = "quMatrixPrice"
	willpaysTableSel = "table#matrixTableWillpays"
)

// oddsRowsByTab parses the odds matrix and indexes its rows by runner tab.
// The last row of the table is pool totals, not a runner.
func oddsRowsByTab(doc *goquery.Document) (*table, map[int]int, error) {
	t, err := parseTable(doc, oddsTableSel)
	if err != nil {
		return nil, nil, err
	}
	if len(t.rows) < 2 {
		return nil, nil, fmt.Errorf("odds table has no runner rows")
	}
	t.rows = t.rows[:len(t.rows)-1]

	rowByTab := make(map[int]int, len(t.rows))
	for i, row := range t.rows {
		if len(row) == 0 {
			return nil, nil, fmt.Errorf("odds table row %d is empty", i)
		}
		tab, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, nil, fmt.Errorf("odds table row %d has bad tab %q", i, row[0])
		}
		rowByTab[tab] = i
	}
	return t, rowByTab, nil
}

// ScrapeOdds captures each runner's current win odds and TRU odds. Every
// supplied runner must appear in the table.
func ScrapeOdds(doc *goquery.Document, runners []*models.Runner, status models.RaceStatus) ([]*models.AmwagerIndividualOdds, error) {
	t, rowByTab, err := oddsRowsByTab(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape odds: %w", err)
	}

	out := make([]*models.AmwagerIndividualOdds, 0, len(runners))
	for _, runner := range runners {
		row, ok := rowByTab[runner.Tab]
		if !ok {
			return nil, fmt.Errorf("cannot scrape odds: no row for tab %d", runner.Tab)
		}
		rec := &models.AmwagerIndividualOdds{RunnerID: runner.RunnerID}
		rec.RaceStatus = status
		for _, f := range []struct {
			column string
			dest   **float64
		}{
			{"TRU Odds", &rec.TruOdds},
			{"WIN Odds", &rec.Odds},
		} {
			text, err := t.cell(row, f.column)
			if err != nil {
				return nil, fmt.Errorf("cannot scrape odds: %w", err)
			}
			if *f.dest, err = parseOdds(text); err != nil {
				return nil, fmt.Errorf("cannot scrape odds: %w", err)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// ScrapeIndividualPools captures each runner's win/place/show pool totals.
// Missing amounts are recorded as zero.
func ScrapeIndividualPools(doc *goquery.Document, runners []*models.Runner, status models.RaceStatus) ([]*models.IndividualPool, error) {
	t, rowByTab, err := oddsRowsByTab(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape individual pools: %w", err)
	}

	out := make([]*models.IndividualPool, 0, len(runners))
	for _, runner := range runners {
		row, ok := rowByTab[runner.Tab]
		if !ok {
			return nil, fmt.Errorf("cannot scrape individual pools: no row for tab %d", runner.Tab)
		}
		rec := &models.IndividualPool{RunnerID: runner.RunnerID}
		rec.RaceStatus = status
		for _, f := range []struct {
			column string
			dest   **int
		}{
			{"WIN $", &rec.Win},
			{"PLC $", &rec.Place},
			{"SHW $", &rec.Show},
		} {
			text, err := t.cell(row, f.column)
			if err != nil {
				return nil, fmt.Errorf("cannot scrape individual pools: %w", err)
			}
			amount, err := parseMoney(text, 0)
			if err != nil {
				return nil, fmt.Errorf("cannot scrape individual pools: %w", err)
			}
			*f.dest = &amount
		}
		out = append(out, rec)
	}
	return out, nil
}

// pairPrice is one cell of a two-runner odds matrix: the combination's price
// and the site's fair value estimate when shown.
type pairPrice struct {
	runner1ID, runner2ID int
	odds                 *float64
	fairValue            *float64
}

// scrapeTwoRunnerMatrix reads a combination-price matrix. The first column
// holds runner 1's tab; the header holds runner 2's tabs. Prices and fair
// values live in separate spans inside each cell, the fair value carrying
// fairClass. Tabs are swapped for runner ids and same-runner combinations are
// dropped.
func scrapeTwoRunnerMatrix(doc *goquery.Document, sel, fairClass string,
	runners1, runners2 []*models.Runner) ([]pairPrice, error) {

	node := doc.Find(sel).First().Find("table").First()
	if node.Length() == 0 {
		return nil, fmt.Errorf("unable to find table %s", sel)
	}

	idByTab1 := make(map[int]int, len(runners1))
	for _, runner := range runners1 {
		idByTab1[runner.Tab] = runner.RunnerID
	}
	idByTab2 := idByTab1
	if runners2 != nil {
		idByTab2 = make(map[int]int, len(runners2))
		for _, runner := range runners2 {
			idByTab2[runner.Tab] = runner.RunnerID
		}
	}

	// Header: the corner "1/2" label then runner 2 tabs.
	var header []int
	var headerErr error
	node.Find("tr").First().Find("th,td").Each(func(i int, cell *goquery.Selection) {
		if i == 0 || headerErr != nil {
			return
		}
		tab, err := strconv.Atoi(clean(cell.Text()))
		if err != nil {
			headerErr = fmt.Errorf("bad tab %q in matrix header", clean(cell.Text()))
			return
		}
		header = append(header, tab)
	})
	if headerErr != nil {
		return nil, headerErr
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("matrix %s has no header tabs", sel)
	}

	var prices []pairPrice
	seen1 := make(map[int]bool)
	var rowErr error
	node.Find("tr").Each(func(rowNum int, tr *goquery.Selection) {
		if rowNum == 0 || rowErr != nil {
			return
		}
		cells := tr.Find("td")
		if cells.Length() != len(header)+1 {
			rowErr = fmt.Errorf("matrix row %d has %d cells, want %d", rowNum, cells.Length(), len(header)+1)
			return
		}
		tab1, err := strconv.Atoi(clean(cells.Eq(0).Text()))
		if err != nil {
			rowErr = fmt.Errorf("bad tab %q in matrix row %d", clean(cells.Eq(0).Text()), rowNum)
			return
		}
		seen1[tab1] = true
		for i, tab2 := range header {
			if tab1 == tab2 && runners2 == nil {
				continue
			}
			cell := cells.Eq(i + 1)
			fairText := clean(cell.Find("span." + fairClass).Text())
			oddsCell := cell.Clone()
			oddsCell.Find("span." + fairClass).Remove()

			price := pairPrice{}
			if price.odds, err = parseOdds(clean(oddsCell.Text())); err != nil {
				rowErr = fmt.Errorf("matrix cell %d/%d: %w", tab1, tab2, err)
				return
			}
			if price.fairValue, err = parseOdds(fairText); err != nil {
				rowErr = fmt.Errorf("matrix cell %d/%d fair value: %w", tab1, tab2, err)
				return
			}

			id1, ok1 := idByTab1[tab1]
			id2, ok2 := idByTab2[tab2]
			if !ok1 || !ok2 {
				rowErr = fmt.Errorf("runner tabs in table do not match supplied runners: %d/%d", tab1, tab2)
				return
			}
			price.runner1ID, price.runner2ID = id1, id2
			prices = append(prices, price)
		}
	})
	if rowErr != nil {
		return nil, rowErr
	}

	// Every supplied runner must have a line in the matrix.
	if len(seen1) != len(idByTab1) {
		return nil, fmt.Errorf("runner tabs in table do not match supplied runners: got %d rows, want %d",
			len(seen1), len(idByTab1))
	}
	header2 := make(map[int]bool, len(header))
	for _, tab := range header {
		header2[tab] = true
	}
	if len(header2) != len(idByTab2) {
		return nil, fmt.Errorf("runner tabs in table do not match supplied runners: got %d columns, want %d",
			len(header2), len(idByTab2))
	}
	return prices, nil
}

// ScrapeDoubleOdds captures double prices: runner 1 from this race, runner 2
// from the meet's next race.
func ScrapeDoubleOdds(doc *goquery.Document, runners1, runners2 []*models.Runner, status models.RaceStatus) ([]*models.DoubleOdds, error) {
	prices, err := scrapeTwoRunnerMatrix(doc, doubleMatrixSel, doubleFairClass, runners1, runners2)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape double odds: %w", err)
	}
	out := make([]*models.DoubleOdds, len(prices))
	for i, p := range prices {
		out[i] = &models.DoubleOdds{
			Runner1ID:     p.runner1ID,
			Runner2ID:     p.runner2ID,
			Odds:          p.odds,
			FairValueOdds: p.fairValue,
		}
		out[i].RaceStatus = status
	}
	return out, nil
}

// ScrapeExactaOdds captures exacta prices for every ordered runner pair.
func ScrapeExactaOdds(doc *goquery.Document, runners []*models.Runner, status models.RaceStatus) ([]*models.ExactaOdds, error) {
	prices, err := scrapeTwoRunnerMatrix(doc, exactaMatrixSel, exactaFairClass, runners, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape exacta odds: %w", err)
	}
	out := make([]*models.ExactaOdds, len(prices))
	for i, p := range prices {
		out[i] = &models.ExactaOdds{
			Runner1ID:     p.runner1ID,
			Runner2ID:     p.runner2ID,
			Odds:          p.odds,
			FairValueOdds: p.fairValue,
		}
		out[i].RaceStatus = status
	}
	return out, nil
}

// ScrapeQuinellaOdds captures quinella prices for every runner pair.
func ScrapeQuinellaOdds(doc *goquery.Document, runners []*models.Runner, status models.RaceStatus) ([]*models.QuinellaOdds, error) {
	prices, err := scrapeTwoRunnerMatrix(doc, quinellaMatrix, quinellaFairCls, runners, nil)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape quinella odds: %w", err)
	}
	out := make([]*models.QuinellaOdds, len(prices))
	for i, p := range prices {
		out[i] = &models.QuinellaOdds{
			Runner1ID:     p.runner1ID,
			Runner2ID:     p.runner2ID,
			Odds:          p.odds,
			FairValueOdds: p.fairValue,
		}
		out[i].RaceStatus = status
	}
	return out, nil
}

// ScrapeWillpays captures projected multi-leg payouts, normalized to a
// one-dollar stake from the bet amount in each column header ("$1 DBL").
func ScrapeWillpays(doc *goquery.Document, runners []*models.Runner, status models.RaceStatus) ([]*models.WillpayPerDollar, error) {
	t, err := parseTable(doc, willpaysTableSel)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape willpays: %w", err)
	}

	// Column headers after the tab column are "$<amount> <bet type>".
	type betColumn struct {
		index  int
		amount float64
		assign func(*models.WillpayPerDollar, *float64)
	}
	assigners := map[string]func(*models.WillpayPerDollar, *float64){
		"DBL": func(w *models.WillpayPerDollar, v *float64) { w.Double = v },
		"PK3": func(w *models.WillpayPerDollar, v *float64) { w.Pick3 = v },
		"PK4": func(w *models.WillpayPerDollar, v *float64) { w.Pick4 = v },
		"PK5": func(w *models.WillpayPerDollar, v *float64) { w.Pick5 = v },
		"PK6": func(w *models.WillpayPerDollar, v *float64) { w.Pick6 = v },
	}
	var columns []betColumn
	for i, h := range t.header {
		if i == 0 {
			continue
		}
		amountText, betType, ok := strings.Cut(h, " ")
		if !ok {
			return nil, fmt.Errorf("cannot scrape willpays: bad column header %q", h)
		}
		amount, err := strconv.ParseFloat(strings.TrimPrefix(amountText, "$"), 64)
		if err != nil || amount == 0 {
			return nil, fmt.Errorf("cannot scrape willpays: bad bet amount in header %q", h)
		}
		assign, ok := assigners[betType]
		if !ok {
			return nil, fmt.Errorf("cannot scrape willpays: unknown bet type in header %q", h)
		}
		columns = append(columns, betColumn{index: i, amount: amount, assign: assign})
	}

	idByTab := make(map[int]int, len(runners))
	for _, runner := range runners {
		idByTab[runner.Tab] = runner.RunnerID
	}

	var out []*models.WillpayPerDollar
	for _, row := range t.rows {
		// A trailing results row repeats finishing positions, not tabs.
		if row[0] == "Results" {
			continue
		}
		tab, err := strconv.Atoi(row[0])
		if err != nil {
			return nil, fmt.Errorf("cannot scrape willpays: bad tab %q", row[0])
		}
		id, ok := idByTab[tab]
		if !ok {
			return nil, fmt.Errorf("cannot scrape willpays: no supplied runner with tab %d", tab)
		}
		rec := &models.WillpayPerDollar{RunnerID: id}
		rec.RaceStatus = status
		for _, col := range columns {
			if col.index >= len(row) {
				return nil, fmt.Errorf("cannot scrape willpays: row for tab %d too short", tab)
			}
			v, err := parseMoneyFloat(row[col.index])
			if err != nil {
				return nil, fmt.Errorf("cannot scrape willpays: %w", err)
			}
			if v != nil {
				perDollar := *v / col.amount
				col.assign(rec, &perDollar)
			}
		}
		out = append(out, rec)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("cannot scrape willpays: no runner rows in table")
	}
	return out, nil
}
