package scraper

import (
	"fmt"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/amwatch/models"
)

// runnerRow is one row of the runners table. Column order on the page is
// fixed: name, morning line, current odds, tab.
type runnerRow struct {
	name        string
	morningLine string
	odds        string
	tab         int
}

func runnerRows(doc *goquery.Document) ([]runnerRow, error) {
	node := doc.Find(runnersTableSel).First()
	if node.Length() == 0 {
		return nil, fmt.Errorf("unable to find table %s", runnersTableSel)
	}
	var rows []runnerRow
	var rowErr error
	node.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 || rowErr != nil {
			return
		}
		text := func(i int) string {
			// Superscript annotations pollute the cell text; drop them.
			cell := cells.Eq(i).Clone()
			cell.Find("sup").Remove()
			return clean(cell.Text())
		}
		tab, err := strconv.Atoi(text(3))
		if err != nil {
			rowErr = fmt.Errorf("bad runner tab %q: %w", text(3), err)
			return
		}
		rows = append(rows, runnerRow{
			name:        text(0),
			morningLine: text(1),
			odds:        text(2),
			tab:         tab,
		})
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("table %s has no rows", runnersTableSel)
	}
	return rows, nil
}

// ScrapeRace builds the Race row for the currently focused page.
// The estimated post is the capture time plus the advertised countdown.
func ScrapeRace(doc *goquery.Document, retrieved time.Time, meetID int) (*models.Race, error) {
	raceNum, err := GetFocusedRaceNum(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape race: %w", err)
	}
	mtp, err := GetMTP(doc, retrieved)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape race: %w", err)
	}
	discipline, err := GetDiscipline(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape race: %w", err)
	}

	race := &models.Race{
		MeetID:        meetID,
		RaceNum:       raceNum,
		EstimatedPost: retrieved.Add(time.Duration(mtp) * time.Minute),
		Discipline:    discipline,
	}
	race.DatetimeRetrieved = retrieved
	return race, nil
}

// ScrapeRunners extracts the race's roster. A runner showing SCR for odds is
// already scratched.
func ScrapeRunners(doc *goquery.Document, raceID int) ([]*models.Runner, error) {
	rows, err := runnerRows(doc)
	if err != nil {
		return nil, fmt.Errorf("cannot scrape runners: %w", err)
	}
	runners := make([]*models.Runner, 0, len(rows))
	for _, row := range rows {
		ml, err := parseOdds(row.morningLine)
		if err != nil {
			return nil, fmt.Errorf("cannot scrape runners: %w", err)
		}
		runners = append(runners, &models.Runner{
			RaceID:      raceID,
			Tab:         row.tab,
			Name:        row.name,
			MorningLine: ml,
			Scratched:   row.odds == "SCR",
		})
	}
	return runners, nil
}

// UpdateScratchedStatus refreshes each runner's scratched flag from the page.
// The scraped roster must match the supplied one exactly (length, tabs and
// names); on mismatch the supplied runners are left untouched.
func UpdateScratchedStatus(doc *goquery.Document, runners []*models.Runner) error {
	rows, err := runnerRows(doc)
	if err != nil {
		return fmt.Errorf("cannot update runner scratched status: %w", err)
	}
	if len(rows) != len(runners) {
		return fmt.Errorf("cannot update runner scratched status: unequal number of runners between scraped (%d) and supplied (%d)",
			len(rows), len(runners))
	}
	byTab := make(map[int]runnerRow, len(rows))
	for _, row := range rows {
		byTab[row.tab] = row
	}

	scratched := make(map[int]bool, len(runners))
	for _, runner := range runners {
		row, ok := byTab[runner.Tab]
		if !ok {
			return fmt.Errorf("cannot update runner scratched status: could not find runner id %d, tab %d in table",
				runner.RunnerID, runner.Tab)
		}
		if row.name != runner.Name {
			return fmt.Errorf("cannot update runner scratched status: names do not match, tab %d: %q vs scraped %q",
				runner.Tab, runner.Name, row.name)
		}
		scratched[runner.Tab] = row.odds == "SCR"
	}
	// Apply only after the whole roster checked out.
	for _, runner := range runners {
		if scratched[runner.Tab] {
			runner.Scratched = true
		}
	}
	return nil
}

// ScrapeResults reads finishing positions off the results table and applies
// them to the matching runners.
func ScrapeResults(doc *goquery.Document, runners []*models.Runner) error {
	if !resultsVisible(doc) {
		return fmt.Errorf("cannot scrape results: results table not visible")
	}
	node := doc.Find(resultsTableSel).First()

	// Column order: position, runner name, tab, then payouts.
	type result struct {
		position int
		tab      int
	}
	var results []result
	node.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 3 {
			return
		}
		pos, err := strconv.Atoi(clean(cells.Eq(0).Text()))
		if err != nil {
			return
		}
		tab, err := strconv.Atoi(clean(cells.Eq(2).Text()))
		if err != nil {
			return
		}
		results = append(results, result{position: pos, tab: tab})
	})
	if len(results) == 0 {
		return fmt.Errorf("cannot scrape results: no finishing positions in table")
	}

	for _, res := range results {
		for _, runner := range runners {
			if runner.Tab == res.tab {
				pos := res.position
				runner.Result = &pos
			}
		}
	}
	return nil
}
