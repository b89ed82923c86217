package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"

	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/models"
)

// Setup opens the SQLite database at the configured path.
func Setup(cfg *config.Config) *bun.DB {
	sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DBPath)
	if err != nil {
		log.Fatal("failed to open database:", err)
	}
	db := bun.NewDB(sqldb, sqlitedialect.New())

	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		log.Fatal("failed to enable foreign keys:", err)
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	return db
}

// CreateTables creates all tables in dependency order, then the unique
// indexes that make re-ingesting an identical snapshot fail at write time
// instead of duplicating rows.
func CreateTables(ctx context.Context, db *bun.DB) error {
	tables := []interface{}{
		(*models.Track)(nil),
		(*models.Discipline)(nil),
		(*models.Meet)(nil),
		(*models.Race)(nil),
		(*models.Runner)(nil),
		(*models.AmwagerIndividualOdds)(nil),
		(*models.IndividualPool)(nil),
		(*models.ExoticTotals)(nil),
		(*models.RaceCommission)(nil),
		(*models.DoubleOdds)(nil),
		(*models.ExactaOdds)(nil),
		(*models.QuinellaOdds)(nil),
		(*models.WillpayPerDollar)(nil),
		(*models.PayoutPerDollar)(nil),
		(*models.RunnerStat)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("creating table for %T: %w", model, err)
		}
	}
	if err := createFactIndexes(ctx, db); err != nil {
		return err
	}

	return seedDisciplines(ctx, db)
}

// createFactIndexes installs the composite uniqueness constraints on the fact
// time series: one row per subject per capture instant. These include
// datetime_retrieved and so cannot be expressed as model tags, which are
// shared through the embedded status struct.
func createFactIndexes(ctx context.Context, db *bun.DB) error {
	type idx struct {
		name    string
		model   interface{}
		columns []string
	}
	indexes := []idx{
		{"amw_odds_no_dupes", (*models.AmwagerIndividualOdds)(nil), []string{"runner_id", "datetime_retrieved"}},
		{"ind_pool_no_dupes", (*models.IndividualPool)(nil), []string{"runner_id", "datetime_retrieved"}},
		{"exotic_totals_no_dupes", (*models.ExoticTotals)(nil), []string{"race_id", "datetime_retrieved"}},
		{"race_comm_no_dupes", (*models.RaceCommission)(nil), []string{"race_id", "datetime_retrieved"}},
		{"double_odds_no_dupes", (*models.DoubleOdds)(nil), []string{"runner_1_id", "runner_2_id", "datetime_retrieved"}},
		{"exacta_odds_no_dupes", (*models.ExactaOdds)(nil), []string{"runner_1_id", "runner_2_id", "datetime_retrieved"}},
		{"quinella_odds_no_dupes", (*models.QuinellaOdds)(nil), []string{"runner_1_id", "runner_2_id", "datetime_retrieved"}},
		{"willpay_no_dupes", (*models.WillpayPerDollar)(nil), []string{"runner_id", "datetime_retrieved"}},
		{"payout_no_dupes", (*models.PayoutPerDollar)(nil), []string{"race_id", "datetime_retrieved"}},
	}
	for _, i := range indexes {
		_, err := db.NewCreateIndex().
			Model(i.model).
			Unique().
			IfNotExists().
			Index(i.name).
			Column(i.columns...).
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("creating index %s: %w", i.name, err)
		}
	}
	return nil
}

// seedDisciplines installs the known discipline aliases. Idempotent.
func seedDisciplines(ctx context.Context, db *bun.DB) error {
	str := func(s string) *string { return &s }
	disciplines := []*models.Discipline{
		{Name: "Thoroughbred", Amwager: str("Tbred"), RacingAndSports: str("r")},
		{Name: "Harness", Amwager: str("Harness"), RacingAndSports: str("h")},
		{Name: "Greyhound", Amwager: str("Grey"), RacingAndSports: str("g")},
	}
	_, err := db.NewInsert().
		Model(&disciplines).
		On("CONFLICT (name) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seeding disciplines: %w", err)
	}
	return nil
}
