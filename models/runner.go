package models

import "github.com/uptrace/bun"

// Runner is a single entrant, keyed by (race, tab). Scratched and Result are
// the only fields mutated after creation.
type Runner struct {
	bun.BaseModel `bun:"table:runners,alias:rn"`

	RunnerID    int      `bun:"runner_id,pk,autoincrement" json:"runnerID"`
	RaceID      int      `bun:"race_id,notnull,unique:runners_no_dupes" json:"raceID"`
	Tab         int      `bun:"tab,notnull,unique:runners_no_dupes" json:"tab"`
	Name        string   `bun:"name,notnull" json:"name"`
	Age         *int     `bun:"age" json:"age,omitempty"`
	Sex         *string  `bun:"sex" json:"sex,omitempty"`
	MorningLine *float64 `bun:"morning_line" json:"morningLine,omitempty"`
	Scratched   bool     `bun:"scratched,notnull,default:false" json:"scratched"`
	Result      *int     `bun:"result" json:"result,omitempty"`

	Race *Race `bun:"rel:belongs-to,join:race_id=race_id" json:"-"`
}
