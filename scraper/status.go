package scraper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/amwatch/models"
)

// Selectors for the status signals. The runner and result tables cannot both
// be visible at once; which one is present tells us whether results are in.
const (
	runnersTableSel = "table#runner-view-inner-table"
	resultsTableSel = "table.table-Result.table-Result-main"
	mtpSpanSel      = "span.time"
	closedBannerSel = `div[data-translate-lang="wager.raceclosedmessage"]`
	ticketErrorSel  = "div.am-intro-ticketerror.error.error-ticket"
)

// GetRaceStatus computes the race's tri-state status from the page. Stages
// run in order (mtp, results, wagering) and the first failure wins.
func GetRaceStatus(doc *goquery.Document, retrieved time.Time) (models.RaceStatus, error) {
	status := models.RaceStatus{}
	status.DatetimeRetrieved = retrieved

	posted, err := resultsPosted(doc)
	if err != nil {
		return status, fmt.Errorf("cannot obtain race status: %w", err)
	}
	status.ResultsPosted = posted

	if posted {
		// Results cannot post while wagering is open, and the countdown is
		// meaningless once they do.
		status.WageringClosed = true
		status.MTP = 0
		return status, nil
	}

	mtp, err := GetMTP(doc, retrieved)
	if err != nil {
		return status, fmt.Errorf("cannot obtain race status: %w", err)
	}
	status.MTP = mtp

	closed, err := wageringClosed(doc)
	if err != nil {
		return status, fmt.Errorf("cannot obtain race status: %w", err)
	}
	status.WageringClosed = closed
	return status, nil
}

// resultsPosted derives the results state from table presence. Exactly one of
// the runners/results tables must be visible; anything else means the page
// layout assumption is broken.
func resultsPosted(doc *goquery.Document) (bool, error) {
	_, runnersErr := parseTable(doc, runnersTableSel)
	haveRunners := runnersErr == nil

	if resultsVisible(doc) {
		if haveRunners {
			return false, errors.New("unknown state, both runners and results tables exist")
		}
		return true, nil
	}
	if !haveRunners {
		return false, errors.New("unknown state, neither runners or results tables exist")
	}
	return false, nil
}

// The results table is filled with junk while hidden; only the presence of
// the runner-details-close cell marks it as genuinely visible.
func resultsVisible(doc *goquery.Document) bool {
	table := doc.Find(resultsTableSel).First()
	if table.Length() == 0 {
		return false
	}
	return table.Find("td.runner.runner-details-close").Length() > 0
}

func wageringClosed(doc *goquery.Document) (bool, error) {
	banner := doc.Find(closedBannerSel).First()
	if banner.Length() == 0 {
		return false, errors.New("cannot determine wagering status: no closed-race banner")
	}
	style, _ := banner.Attr("style")
	switch strings.TrimSpace(style) {
	case "display: none;":
		return false, nil
	case "":
		return true, nil
	}
	if strings.Contains(doc.Find(ticketErrorSel).Text(), "No wagering permitted") {
		return true, nil
	}
	return false, fmt.Errorf("cannot determine wagering status: unknown formatting %q", style)
}

// GetMTP reads the countdown element. A bare integer is taken directly;
// otherwise the text is a post time on the local clock, which is converted to
// minutes until its next occurrence after retrieved.
func GetMTP(doc *goquery.Document, retrieved time.Time) (int, error) {
	span := doc.Find(mtpSpanSel).First()
	if span.Length() == 0 {
		return 0, errors.New("could not find post time element in page")
	}
	text := clean(span.Text())

	if mtp, err := strconv.Atoi(text); err == nil {
		return mtp, nil
	}
	return postTimeToMTP(text, retrieved)
}

func postTimeToMTP(text string, retrieved time.Time) (int, error) {
	clock, err := time.Parse("3:04 PM", text)
	if err != nil {
		clock, err = time.Parse("15:04", text)
		if err != nil {
			return 0, fmt.Errorf("unknown time format: %q", text)
		}
	}

	local := retrieved.In(time.Local)
	post := time.Date(local.Year(), local.Month(), local.Day(),
		clock.Hour(), clock.Minute(), 0, 0, time.Local)
	// The site shows the next occurrence of that wall-clock time.
	if !post.After(retrieved) {
		post = post.AddDate(0, 0, 1)
	}
	return int(post.UTC().Sub(retrieved).Minutes()), nil
}
