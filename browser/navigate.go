package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/models"
)

// trackDropdownClass is the mobile track selector button; its label is one of
// two places the focused track's display name appears.
const trackDropdownClass = "am-intro-race-mobile btn dropdowntrack dropdown-toggle dropdown-small btn-track-xs"

// RaceURL is the wagering page address for one race of a track.
func RaceURL(baseURL, amwagerID string, raceNum int) string {
	return fmt.Sprintf("%s/#wager/%s/%d", baseURL, amwagerID, raceNum)
}

// GoToRace brings the session onto the given race's page and confirms both
// focus signals: the race selector highlights raceNum and the page names the
// track. The page is single-page-app style and can lag behind the URL, so
// after navigating we poll with refreshes until both signals agree or the
// focus wait runs out.
func GoToRace(ctx context.Context, s Session, baseURL string, track *models.Track, raceNum int) error {
	if track.Amwager == nil {
		return fmt.Errorf("track %q has no wagering site identifier", track.Name)
	}
	target := RaceURL(baseURL, *track.Amwager, raceNum)

	if s.CurrentURL() != target {
		if err := s.Navigate(ctx, target); err != nil {
			return fmt.Errorf("going to race %d at %q: %w", raceNum, track.Name, err)
		}
	} else {
		if err := s.Refresh(ctx); err != nil {
			return fmt.Errorf("going to race %d at %q: %w", raceNum, track.Name, err)
		}
	}

	deadline := time.Now().Add(config.FocusWait)
	for {
		doc, err := s.PageContent()
		if err != nil {
			return fmt.Errorf("going to race %d at %q: %w", raceNum, track.Name, err)
		}
		if raceFocused(doc, raceNum) && trackFocused(doc, track) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("going to race %d at %q: page did not focus in %s",
				raceNum, track.Name, config.FocusWait)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
		}
		if err := s.Refresh(ctx); err != nil {
			return fmt.Errorf("going to race %d at %q: %w", raceNum, track.Name, err)
		}
	}
}

func raceFocused(doc *goquery.Document, raceNum int) bool {
	button := doc.Find(fmt.Sprintf("button#race-%d", raceNum)).First()
	if button.Length() == 0 {
		return false
	}
	class, _ := button.Attr("class")
	// The class name carries the site's own spelling.
	return strings.Contains(class, "track-num-fucus")
}

// trackFocused checks both places the page shows the focused track's name.
func trackFocused(doc *goquery.Document, track *models.Track) bool {
	if track.AmwagerListDisplay == nil {
		return false
	}
	want := *track.AmwagerListDisplay

	var names []string
	doc.Find("button").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		class, _ := b.Attr("class")
		if class == trackDropdownClass {
			names = append(names, strings.TrimSpace(b.Text()))
			return false
		}
		return true
	})
	if event := doc.Find("span.eventName").First(); event.Length() > 0 {
		names = append(names, strings.TrimSpace(event.Text()))
	}

	for _, name := range names {
		if name == want {
			return true
		}
	}
	return false
}
