package models

import (
	"errors"
	"fmt"
	"time"
)

// FreshnessWindow is how old a capture timestamp may be before it is logged
// as suspicious. Older timestamps are permitted, never rejected.
const FreshnessWindow = 15 * time.Second

// ErrStale marks a timestamp older than the freshness window. Callers treat
// it as a warning, not a rejection.
var ErrStale = errors.New("stale datetime_retrieved")

// Retrieved stamps a row with its capture time. Embedded by every scraped model.
type Retrieved struct {
	DatetimeRetrieved time.Time `bun:"datetime_retrieved,notnull" json:"datetimeRetrieved"`
}

// CheckRetrieved validates the capture timestamp: it must carry a UTC-equivalent
// zone and must not be in the future. A timestamp beyond the freshness window
// returns ErrStale wrapped so callers can log rather than abort.
func (r Retrieved) CheckRetrieved(now time.Time) error {
	if r.DatetimeRetrieved.IsZero() {
		return errors.New("datetime_retrieved not set")
	}
	if _, offset := r.DatetimeRetrieved.Zone(); offset != 0 {
		return errors.New("datetime_retrieved not UTC")
	}
	if r.DatetimeRetrieved.After(now) {
		return fmt.Errorf("datetime_retrieved %s is in the future", r.DatetimeRetrieved)
	}
	if r.DatetimeRetrieved.Before(now.Add(-FreshnessWindow)) {
		return fmt.Errorf("%w: retrieved %s, now %s", ErrStale, r.DatetimeRetrieved, now)
	}
	return nil
}

// RaceStatus is the tri-state race status stamped onto every fact row.
// Results cannot post while wagering remains open.
type RaceStatus struct {
	Retrieved

	MTP            int  `bun:"mtp,notnull" json:"mtp"`
	WageringClosed bool `bun:"wagering_closed,notnull" json:"wageringClosed"`
	ResultsPosted  bool `bun:"results_posted,notnull" json:"resultsPosted"`
}

// CheckStatus validates the whole status record at once. The record is only
// checked after every field is set, so there is no assignment-order hazard.
func (s RaceStatus) CheckStatus(now time.Time) error {
	if s.MTP < 0 {
		return fmt.Errorf("mtp must be non-negative, got %d", s.MTP)
	}
	if s.ResultsPosted && !s.WageringClosed {
		return errors.New("wagering must be closed if results are posted")
	}
	return s.CheckRetrieved(now)
}

// Status exposes the embedded status for interface-based validation.
func (s RaceStatus) Status() RaceStatus { return s }
