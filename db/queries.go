package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/amwatch/models"
)

// TrackByAmwager resolves a track by the wagering site's identifier.
func TrackByAmwager(ctx context.Context, db bun.IDB, amwagerID string) (*models.Track, error) {
	track := new(models.Track)
	err := db.NewSelect().Model(track).Where("amwager = ?", amwagerID).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("looking up track %q: %w", amwagerID, err)
	}
	return track, nil
}

// TrackByID resolves a track by catalog id.
func TrackByID(ctx context.Context, db bun.IDB, id int) (*models.Track, error) {
	track := new(models.Track)
	err := db.NewSelect().Model(track).Where("track_id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find track with id %d: %w", id, err)
	}
	return track, nil
}

// AllTracks returns the full track catalog.
func AllTracks(ctx context.Context, db bun.IDB) ([]*models.Track, error) {
	var tracks []*models.Track
	if err := db.NewSelect().Model(&tracks).Scan(ctx); err != nil {
		return nil, fmt.Errorf("listing tracks: %w", err)
	}
	return tracks, nil
}

// TodaysMeets returns meets whose local_date is today in their own track's
// timezone. The candidate window spans a day either side of the observer's
// date so tracks across the date line are not missed.
func TodaysMeets(ctx context.Context, db bun.IDB, now time.Time) ([]*models.Meet, error) {
	today := now.UTC()
	lo := today.AddDate(0, 0, -1).Format(models.DateLayout)
	hi := today.AddDate(0, 0, 1).Format(models.DateLayout)

	var meets []*models.Meet
	err := db.NewSelect().Model(&meets).
		Relation("Track").
		Relation("Races").
		Where("local_date >= ?", lo).
		Where("local_date <= ?", hi).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing meets: %w", err)
	}

	out := meets[:0]
	for _, meet := range meets {
		loc, err := time.LoadLocation(meet.Track.Timezone)
		if err != nil {
			return nil, fmt.Errorf("meet %d has unresolvable timezone: %w", meet.MeetID, err)
		}
		if meet.LocalDate == now.In(loc).Format(models.DateLayout) {
			out = append(out, meet)
		}
	}
	return out, nil
}

// DisciplineByID resolves a discipline by catalog id.
func DisciplineByID(ctx context.Context, db bun.IDB, id int) (*models.Discipline, error) {
	discipline := new(models.Discipline)
	err := db.NewSelect().Model(discipline).Where("discipline_id = ?", id).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find discipline with id %d: %w", id, err)
	}
	return discipline, nil
}

// RaceByID loads a race with its meet, track and runners.
func RaceByID(ctx context.Context, db bun.IDB, id int) (*models.Race, error) {
	race := new(models.Race)
	err := db.NewSelect().Model(race).
		Relation("Meet").
		Relation("Meet.Track").
		Relation("Runners").
		Where("rc.race_id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not find race with id %d: %w", id, err)
	}
	sortRunnersByTab(race.Runners)
	return race, nil
}

// NextRace returns the race following raceNum in the same meet, runners
// sorted by tab, or nil if the meet has no further race.
func NextRace(ctx context.Context, db bun.IDB, meetID, raceNum int) (*models.Race, error) {
	race := new(models.Race)
	err := db.NewSelect().Model(race).
		Relation("Runners").
		Where("meet_id = ?", meetID).
		Where("race_num = ?", raceNum+1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // absence is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("looking up race after %d in meet %d: %w", raceNum, meetID, err)
	}
	sortRunnersByTab(race.Runners)
	return race, nil
}

// HasResults reports whether any runner of the race carries a finishing position.
func HasResults(ctx context.Context, db bun.IDB, raceID int) (bool, error) {
	count, err := db.NewSelect().Model((*models.Runner)(nil)).
		Where("race_id = ?", raceID).
		Where("result IS NOT NULL").
		Count(ctx)
	if err != nil {
		return false, fmt.Errorf("checking results for race %d: %w", raceID, err)
	}
	return count > 0, nil
}

// RunnerCount returns how many runners a race has.
func RunnerCount(ctx context.Context, db bun.IDB, raceID int) (int, error) {
	count, err := db.NewSelect().Model((*models.Runner)(nil)).
		Where("race_id = ?", raceID).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting runners for race %d: %w", raceID, err)
	}
	return count, nil
}

// MeetRaces loads a meet's races with runners, in race order.
func MeetRaces(ctx context.Context, db bun.IDB, meetID int) ([]*models.Race, error) {
	var races []*models.Race
	err := db.NewSelect().Model(&races).
		Relation("Runners").
		Where("meet_id = ?", meetID).
		Order("race_num ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing races for meet %d: %w", meetID, err)
	}
	for _, race := range races {
		sortRunnersByTab(race.Runners)
	}
	return races, nil
}

func sortRunnersByTab(runners []*models.Runner) {
	sort.Slice(runners, func(i, j int) bool { return runners[i].Tab < runners[j].Tab })
}
