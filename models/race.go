package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Race is one race of a meet. EstimatedPost is UTC.
type Race struct {
	bun.BaseModel `bun:"table:races,alias:rc"`
	Retrieved

	RaceID        int       `bun:"race_id,pk,autoincrement" json:"raceID"`
	MeetID        int       `bun:"meet_id,notnull,unique:races_no_dupes" json:"meetID"`
	RaceNum       int       `bun:"race_num,notnull,unique:races_no_dupes" json:"raceNum"`
	EstimatedPost time.Time `bun:"estimated_post,notnull" json:"estimatedPost"`
	DisciplineID  int       `bun:"discipline_id,notnull" json:"disciplineID"`

	// Discipline carries the vendor tag scraped off the page until the
	// validation layer resolves it to DisciplineID.
	Discipline string `bun:"-" json:"-"`

	Meet    *Meet     `bun:"rel:belongs-to,join:meet_id=meet_id" json:"-"`
	Runners []*Runner `bun:"rel:has-many,join:race_id=race_id" json:"-"`
}
