package models

import "github.com/uptrace/bun"

// Track is a venue in the catalog, keyed by name with per-vendor identifiers.
// AmwagerListDisplay is the label the wagering site shows in its track list and
// is used to confirm page focus.
type Track struct {
	bun.BaseModel `bun:"table:tracks,alias:t"`

	TrackID            int     `bun:"track_id,pk,autoincrement" json:"trackID"`
	Name               string  `bun:"name,notnull,unique" json:"name"`
	Amwager            *string `bun:"amwager,unique" json:"amwager,omitempty"`
	AmwagerListDisplay *string `bun:"amwager_list_display" json:"amwagerListDisplay,omitempty"`
	RacingAndSports    *string `bun:"racing_and_sports,unique" json:"racingAndSports,omitempty"`
	Country            string  `bun:"country,notnull" json:"country"`
	Timezone           string  `bun:"timezone,notnull" json:"timezone"`
	Ignore             bool    `bun:"ignore,notnull,default:false" json:"ignore"`

	Meets []*Meet `bun:"rel:has-many,join:track_id=track_id" json:"-"`
}

// Discipline is a race code (Thoroughbred, Harness, Greyhound) with the
// wagering site's alias for it.
type Discipline struct {
	bun.BaseModel `bun:"table:disciplines,alias:d"`

	DisciplineID int     `bun:"discipline_id,pk,autoincrement" json:"disciplineID"`
	Name         string  `bun:"name,notnull,unique" json:"name"`
	Amwager      *string `bun:"amwager,unique" json:"amwager,omitempty"`
	// RacingAndSports is the stats provider's code for the discipline.
	RacingAndSports *string `bun:"racing_and_sports" json:"racingAndSports,omitempty"`
}
