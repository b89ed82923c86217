package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/uptrace/bun"

	"github.com/padraicbc/amwatch/models"
)

// Store operations are transactional: every batch either commits whole or
// rolls back whole. Validation runs before the transaction opens so
// relationship lookups never observe the batch's own uncommitted rows.

// AddAndCommit validates and inserts the given models (pointers to structs or
// to slices of structs) in a single transaction.
func AddAndCommit(ctx context.Context, db *bun.DB, ms ...any) error {
	if err := validateAll(ctx, db, ms); err != nil {
		return fmt.Errorf("could not add to database: %w", err)
	}
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range ms {
			if isEmptySlice(m) {
				continue
			}
			if _, err := tx.NewInsert().Model(m).Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not add to database: %w", err)
	}
	return nil
}

// UpdateModels validates and re-writes the given models by primary key in a
// single transaction.
func UpdateModels(ctx context.Context, db *bun.DB, ms ...any) error {
	if err := validateAll(ctx, db, ms); err != nil {
		return fmt.Errorf("could not update database: %w", err)
	}
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range ms {
			if isEmptySlice(m) {
				continue
			}
			q := tx.NewUpdate().Model(m).WherePK()
			if isSlice(m) {
				q = q.Bulk()
			}
			if _, err := q.Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not update database: %w", err)
	}
	return nil
}

// CreateFromRecords builds entities from JSON-encoded records and inserts
// them through the normal validation path. dest is a pointer to a slice of
// the entity type and carries the created rows afterwards.
func CreateFromRecords(ctx context.Context, db *bun.DB, records []byte, dest any) error {
	if err := json.Unmarshal(records, dest); err != nil {
		return fmt.Errorf("could not create models from records: %w", err)
	}
	return AddAndCommit(ctx, db, dest)
}

// DeleteModels removes the given models by primary key in a single transaction.
func DeleteModels(ctx context.Context, db *bun.DB, ms ...any) error {
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range ms {
			if isEmptySlice(m) {
				continue
			}
			if _, err := tx.NewDelete().Model(m).WherePK().Exec(ctx); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("could not delete from database: %w", err)
	}
	return nil
}

// DeleteMeet removes a meet and everything under it: races, runners, and all
// fact rows referencing those runners or races. Used by the preparer to roll
// back a partially created meet as one unit.
func DeleteMeet(ctx context.Context, db *bun.DB, meet *models.Meet) error {
	err := db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		raceIDs := tx.NewSelect().
			Model((*models.Race)(nil)).
			Column("race_id").
			Where("meet_id = ?", meet.MeetID)
		runnerIDs := tx.NewSelect().
			Model((*models.Runner)(nil)).
			Column("runner_id").
			Where("race_id IN (?)", raceIDs)

		byRunner := []any{
			(*models.AmwagerIndividualOdds)(nil),
			(*models.IndividualPool)(nil),
			(*models.WillpayPerDollar)(nil),
			(*models.RunnerStat)(nil),
		}
		for _, m := range byRunner {
			if _, err := tx.NewDelete().Model(m).
				Where("runner_id IN (?)", runnerIDs).Exec(ctx); err != nil {
				return err
			}
		}
		byPair := []any{
			(*models.DoubleOdds)(nil),
			(*models.ExactaOdds)(nil),
			(*models.QuinellaOdds)(nil),
		}
		for _, m := range byPair {
			if _, err := tx.NewDelete().Model(m).
				Where("runner_1_id IN (?)", runnerIDs).
				WhereOr("runner_2_id IN (?)", runnerIDs).Exec(ctx); err != nil {
				return err
			}
		}
		byRace := []any{
			(*models.ExoticTotals)(nil),
			(*models.RaceCommission)(nil),
			(*models.PayoutPerDollar)(nil),
		}
		for _, m := range byRace {
			if _, err := tx.NewDelete().Model(m).
				Where("race_id IN (?)", raceIDs).Exec(ctx); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().Model((*models.Runner)(nil)).
			Where("race_id IN (?)", raceIDs).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Race)(nil)).
			Where("meet_id = ?", meet.MeetID).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model(meet).WherePK().Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("could not delete meet %d: %w", meet.MeetID, err)
	}
	return nil
}

// validateAll walks each argument, descending into slices, and validates every
// element.
func validateAll(ctx context.Context, db *bun.DB, ms []any) error {
	for _, m := range ms {
		v := reflect.ValueOf(m)
		for v.Kind() == reflect.Pointer && !v.IsNil() && v.Elem().Kind() == reflect.Slice {
			v = v.Elem()
		}
		if v.Kind() == reflect.Slice {
			for i := 0; i < v.Len(); i++ {
				if err := Validate(ctx, db, v.Index(i).Interface()); err != nil {
					return err
				}
			}
			continue
		}
		if err := Validate(ctx, db, m); err != nil {
			return err
		}
	}
	return nil
}

func isSlice(m any) bool {
	v := reflect.ValueOf(m)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v.Kind() == reflect.Slice
}

func isEmptySlice(m any) bool {
	v := reflect.ValueOf(m)
	for v.Kind() == reflect.Pointer && !v.IsNil() {
		v = v.Elem()
	}
	return v.Kind() == reflect.Slice && v.Len() == 0
}
