package models

import "github.com/uptrace/bun"

// Fact tables are append-only time series: each row is an immutable snapshot
// keyed by its subject and datetime_retrieved, with the race status at capture
// time stamped on. Uniqueness constraints make re-ingesting a snapshot an
// integrity error rather than a silent duplicate.

// AmwagerIndividualOdds is one runner's win odds and TRU odds at one instant.
type AmwagerIndividualOdds struct {
	bun.BaseModel `bun:"table:amwager_individual_odds,alias:ao"`
	RaceStatus

	ID       int      `bun:"id,pk,autoincrement" json:"id"`
	RunnerID int      `bun:"runner_id,notnull" json:"runnerID"`
	Odds     *float64 `bun:"odds" json:"odds,omitempty"`
	TruOdds  *float64 `bun:"tru_odds" json:"truOdds,omitempty"`
}

// IndividualPool is one runner's win/place/show pool totals at one instant.
type IndividualPool struct {
	bun.BaseModel `bun:"table:individual_pools,alias:ip"`
	RaceStatus

	ID       int  `bun:"id,pk,autoincrement" json:"id"`
	RunnerID int  `bun:"runner_id,notnull" json:"runnerID"`
	Win      *int `bun:"win" json:"win,omitempty"`
	Place    *int `bun:"place" json:"place,omitempty"`
	Show     *int `bun:"show" json:"show,omitempty"`
}

// ExoticTotals is a race's exotic pool totals at one instant, one column per
// bet type. Bet types absent from the page are zero.
type ExoticTotals struct {
	bun.BaseModel `bun:"table:exotic_totals,alias:et"`
	RaceStatus

	ID         int `bun:"id,pk,autoincrement" json:"id"`
	RaceID     int `bun:"race_id,notnull" json:"raceID"`
	Exacta     int `bun:"exacta,notnull,default:0" json:"exacta"`
	Quinella   int `bun:"quinella,notnull,default:0" json:"quinella"`
	Trifecta   int `bun:"trifecta,notnull,default:0" json:"trifecta"`
	Superfecta int `bun:"superfecta,notnull,default:0" json:"superfecta"`
	Double     int `bun:"double,notnull,default:0" json:"double"`
	Pick3      int `bun:"pick_3,notnull,default:0" json:"pick3"`
	Pick4      int `bun:"pick_4,notnull,default:0" json:"pick4"`
	Pick5      int `bun:"pick_5,notnull,default:0" json:"pick5"`
	Pick6      int `bun:"pick_6,notnull,default:0" json:"pick6"`
}

// RaceCommission is the commission fraction charged per bet type at one
// instant. Bet types not offered are null.
type RaceCommission struct {
	bun.BaseModel `bun:"table:race_commissions,alias:rcm"`
	RaceStatus

	ID         int      `bun:"id,pk,autoincrement" json:"id"`
	RaceID     int      `bun:"race_id,notnull" json:"raceID"`
	Win        *float64 `bun:"win" json:"win,omitempty"`
	Place      *float64 `bun:"place" json:"place,omitempty"`
	Show       *float64 `bun:"show" json:"show,omitempty"`
	Exacta     *float64 `bun:"exacta" json:"exacta,omitempty"`
	Quinella   *float64 `bun:"quinella" json:"quinella,omitempty"`
	Trifecta   *float64 `bun:"trifecta" json:"trifecta,omitempty"`
	Superfecta *float64 `bun:"superfecta" json:"superfecta,omitempty"`
	Double     *float64 `bun:"double" json:"double,omitempty"`
	Pick3      *float64 `bun:"pick_3" json:"pick3,omitempty"`
	Pick4      *float64 `bun:"pick_4" json:"pick4,omitempty"`
	Pick5      *float64 `bun:"pick_5" json:"pick5,omitempty"`
	Pick6      *float64 `bun:"pick_6" json:"pick6,omitempty"`
}

// DoubleOdds is a two-runner double price: runner 1 in this race, runner 2 in
// the next race of the same meet.
type DoubleOdds struct {
	bun.BaseModel `bun:"table:double_odds,alias:do"`
	RaceStatus

	ID            int      `bun:"id,pk,autoincrement" json:"id"`
	Runner1ID     int      `bun:"runner_1_id,notnull" json:"runner1ID"`
	Runner2ID     int      `bun:"runner_2_id,notnull" json:"runner2ID"`
	Odds          *float64 `bun:"odds" json:"odds,omitempty"`
	FairValueOdds *float64 `bun:"fair_value_odds" json:"fairValueOdds,omitempty"`
}

// ExactaOdds is a two-runner exacta price; both runners belong to the same race.
type ExactaOdds struct {
	bun.BaseModel `bun:"table:exacta_odds,alias:eo"`
	RaceStatus

	ID            int      `bun:"id,pk,autoincrement" json:"id"`
	Runner1ID     int      `bun:"runner_1_id,notnull" json:"runner1ID"`
	Runner2ID     int      `bun:"runner_2_id,notnull" json:"runner2ID"`
	Odds          *float64 `bun:"odds" json:"odds,omitempty"`
	FairValueOdds *float64 `bun:"fair_value_odds" json:"fairValueOdds,omitempty"`
}

// QuinellaOdds is a two-runner quinella price; both runners belong to the same race.
type QuinellaOdds struct {
	bun.BaseModel `bun:"table:quinella_odds,alias:qo"`
	RaceStatus

	ID            int      `bun:"id,pk,autoincrement" json:"id"`
	Runner1ID     int      `bun:"runner_1_id,notnull" json:"runner1ID"`
	Runner2ID     int      `bun:"runner_2_id,notnull" json:"runner2ID"`
	Odds          *float64 `bun:"odds" json:"odds,omitempty"`
	FairValueOdds *float64 `bun:"fair_value_odds" json:"fairValueOdds,omitempty"`
}

// WillpayPerDollar is a runner's projected multi-leg payout per dollar wagered.
type WillpayPerDollar struct {
	bun.BaseModel `bun:"table:willpays_per_dollar,alias:wp"`
	RaceStatus

	ID       int      `bun:"id,pk,autoincrement" json:"id"`
	RunnerID int      `bun:"runner_id,notnull" json:"runnerID"`
	Double   *float64 `bun:"double" json:"double,omitempty"`
	Pick3    *float64 `bun:"pick_3" json:"pick3,omitempty"`
	Pick4    *float64 `bun:"pick_4" json:"pick4,omitempty"`
	Pick5    *float64 `bun:"pick_5" json:"pick5,omitempty"`
	Pick6    *float64 `bun:"pick_6" json:"pick6,omitempty"`
}

// PayoutPerDollar is a race's settled payout per dollar for each exotic bet
// type, recorded once results post.
type PayoutPerDollar struct {
	bun.BaseModel `bun:"table:payouts_per_dollar,alias:pp"`
	RaceStatus

	ID         int      `bun:"id,pk,autoincrement" json:"id"`
	RaceID     int      `bun:"race_id,notnull" json:"raceID"`
	Exacta     *float64 `bun:"exacta" json:"exacta,omitempty"`
	Quinella   *float64 `bun:"quinella" json:"quinella,omitempty"`
	Trifecta   *float64 `bun:"trifecta" json:"trifecta,omitempty"`
	Superfecta *float64 `bun:"superfecta" json:"superfecta,omitempty"`
	Double     *float64 `bun:"double" json:"double,omitempty"`
	Pick3      *float64 `bun:"pick_3" json:"pick3,omitempty"`
	Pick4      *float64 `bun:"pick_4" json:"pick4,omitempty"`
	Pick5      *float64 `bun:"pick_5" json:"pick5,omitempty"`
	Pick6      *float64 `bun:"pick_6" json:"pick6,omitempty"`
}

// Pair returns the two referenced runners in table order.
func (d *DoubleOdds) Pair() (int, int)   { return d.Runner1ID, d.Runner2ID }
func (e *ExactaOdds) Pair() (int, int)   { return e.Runner1ID, e.Runner2ID }
func (q *QuinellaOdds) Pair() (int, int) { return q.Runner1ID, q.Runner2ID }
