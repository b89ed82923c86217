package models

import "github.com/uptrace/bun"

// RunnerStat holds the stats provider's pre-race figures for one runner.
// One row per runner, written once during meet preparation.
type RunnerStat struct {
	bun.BaseModel `bun:"table:runner_stats,alias:rs"`
	Retrieved

	ID       int `bun:"id,pk,autoincrement" json:"id"`
	RunnerID int `bun:"runner_id,notnull,unique" json:"runnerID"`

	Form3Starts        *string  `bun:"form_3_starts" json:"form3Starts,omitempty"`
	Form5Starts        *string  `bun:"form_5_starts" json:"form5Starts,omitempty"`
	Weight             *float64 `bun:"weight" json:"weight,omitempty"`
	BarrierPosition    *int     `bun:"barrier_position" json:"barrierPosition,omitempty"`
	CareerBest         *float64 `bun:"career_best" json:"careerBest,omitempty"`
	SeasonBest         *float64 `bun:"season_best" json:"seasonBest,omitempty"`
	JockeyRating       *float64 `bun:"jockey_rating" json:"jockeyRating,omitempty"`
	TrainerRating      *float64 `bun:"trainer_rating" json:"trainerRating,omitempty"`
	DaysSinceLastWin   *int     `bun:"days_since_last_win" json:"daysSinceLastWin,omitempty"`
	RunsSinceLastWin   *int     `bun:"runs_since_last_win" json:"runsSinceLastWin,omitempty"`
	DaysSinceLastRun   *int     `bun:"days_since_last_run" json:"daysSinceLastRun,omitempty"`
	PredictedRating    *float64 `bun:"predicted_rating" json:"predictedRating,omitempty"`
	BaseRunRating      *float64 `bun:"base_run_rating" json:"baseRunRating,omitempty"`
	BestRating12Months *float64 `bun:"best_rating_12_months" json:"bestRating12Months,omitempty"`
	LastStartRating    *float64 `bun:"last_start_rating" json:"lastStartRating,omitempty"`
	WPSCareer          *string  `bun:"wps_career" json:"wpsCareer,omitempty"`
	WPSCourse          *string  `bun:"wps_course" json:"wpsCourse,omitempty"`
	WPSDistance        *string  `bun:"wps_distance" json:"wpsDistance,omitempty"`
	WPS12Month         *string  `bun:"wps_12_month" json:"wps12Month,omitempty"`
	FinalRating        *float64 `bun:"final_rating" json:"finalRating,omitempty"`
	SpeedMapPace       *string  `bun:"speed_map_pace" json:"speedMapPace,omitempty"`
	EarlySpeedFigure   *float64 `bun:"early_speed_figure" json:"earlySpeedFigure,omitempty"`
	FinalSpeedFigure   *float64 `bun:"final_speed_figure" json:"finalSpeedFigure,omitempty"`

	Runner *Runner `bun:"rel:belongs-to,join:runner_id=runner_id" json:"-"`
}
