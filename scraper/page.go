package scraper

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// TrackListing is one entry of the site's wagering track list.
type TrackListing struct {
	ID   string
	HTML string
}

// GetTrackList extracts the tracks currently offering wagering.
func GetTrackList(doc *goquery.Document) ([]TrackListing, error) {
	var listings []TrackListing
	var badEntry bool
	doc.Find("a").Each(func(_ int, a *goquery.Selection) {
		class, _ := a.Attr("class")
		if !strings.HasPrefix(class, "event_selector event-status") {
			return
		}
		id, ok := a.Attr("id")
		if !ok {
			badEntry = true
			return
		}
		html, _ := goquery.OuterHtml(a)
		listings = append(listings, TrackListing{ID: id, HTML: html})
	})
	if badEntry {
		return nil, errors.New("unknown formatting in race list")
	}
	if len(listings) == 0 {
		return nil, errors.New("could not find track list in page")
	}
	return listings, nil
}

// GetNumRaces reads the highest race number off the race selector buttons.
func GetNumRaces(doc *goquery.Document) (int, error) {
	max := 0
	doc.Find("button").Each(func(_ int, b *goquery.Selection) {
		id, ok := b.Attr("id")
		if !ok || !strings.HasPrefix(id, "race-") {
			return
		}
		text := clean(b.Text())
		if text == "All" {
			return
		}
		if n, err := strconv.Atoi(text); err == nil && n > max {
			max = n
		}
	})
	if max == 0 {
		return 0, errors.New("could not find number of races for this track")
	}
	return max, nil
}

// GetFocusedRaceNum reads which race the page is currently showing.
// "track-num-fucus" is the site's own spelling.
func GetFocusedRaceNum(doc *goquery.Document) (int, error) {
	var num int
	var found bool
	doc.Find("button").EachWithBreak(func(_ int, b *goquery.Selection) bool {
		class, _ := b.Attr("class")
		if !strings.Contains(class, "track-num-fucus") {
			return true
		}
		n, err := strconv.Atoi(clean(b.Text()))
		if err != nil {
			return true
		}
		num, found = n, true
		return false
	})
	if !found {
		return 0, errors.New("unknown race focus status")
	}
	return num, nil
}

// GetDiscipline reads the race discipline tag.
func GetDiscipline(doc *goquery.Document) (string, error) {
	tag := doc.Find("li.track_type").First()
	if tag.Length() == 0 {
		return "", errors.New("cannot find race discipline")
	}
	return clean(tag.Text()), nil
}

// GetSecondsSinceUpdate reads the page's own staleness indicator.
func GetSecondsSinceUpdate(doc *goquery.Document) (int, error) {
	minutes := doc.Find("label#updateMinutes").First()
	seconds := doc.Find("label#updateSeconds").First()
	if minutes.Length() == 0 || seconds.Length() == 0 {
		return 0, errors.New("could not find time since update on page")
	}
	m, err := strconv.Atoi(clean(minutes.Text()))
	if err != nil {
		return 0, fmt.Errorf("could not find time since update on page: %w", err)
	}
	s, err := strconv.Atoi(clean(seconds.Text()))
	if err != nil {
		return 0, fmt.Errorf("could not find time since update on page: %w", err)
	}
	return m*60 + s, nil
}
