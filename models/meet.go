package models

import "github.com/uptrace/bun"

// DateLayout is the storage format for local calendar dates.
const DateLayout = "2006-01-02"

// Meet is one day's racing card at one track, keyed by the track's local date.
type Meet struct {
	bun.BaseModel `bun:"table:meets,alias:m"`
	Retrieved

	MeetID    int    `bun:"meet_id,pk,autoincrement" json:"meetID"`
	TrackID   int    `bun:"track_id,notnull,unique:meets_no_dupes" json:"trackID"`
	// Stored as plain text: a DATE decltype would make the sqlite driver
	// hand the column back as a time.Time, breaking string date compares.
	LocalDate string `bun:"local_date,notnull,unique:meets_no_dupes" json:"localDate"`

	Track *Track  `bun:"rel:belongs-to,join:track_id=track_id" json:"-"`
	Races []*Race `bun:"rel:has-many,join:meet_id=meet_id" json:"-"`
}
