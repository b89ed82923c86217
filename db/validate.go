package db

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/models"
)

// The validation layer guards every write. Each check either passes, returns
// an integrity error that aborts the enclosing transaction, or logs a warning
// (stale timestamps, off-by-one meet dates) without rejecting the row.
//
// Validation runs once per record with every field already set, so there is no
// ordering hazard between related fields. Relationship lookups use the plain
// *bun.DB handle, isolated from the transaction the write will run in.

type statusCarrier interface {
	Status() models.RaceStatus
}

// Validate checks one model against the data-model invariants.
func Validate(ctx context.Context, db bun.IDB, model any) error {
	now := time.Now().UTC()

	switch m := model.(type) {
	case *models.Track:
		return validateTrack(m)
	case *models.Meet:
		return validateMeet(ctx, db, m, now)
	case *models.Race:
		return validateRace(ctx, db, m, now)
	case *models.Runner:
		return validateRunner(m)
	case *models.ExactaOdds:
		return validateSameRacePair(ctx, db, m, m.Runner1ID, m.Runner2ID, now)
	case *models.QuinellaOdds:
		return validateSameRacePair(ctx, db, m, m.Runner1ID, m.Runner2ID, now)
	case *models.DoubleOdds:
		return validateConsecutivePair(ctx, db, m, m.Runner1ID, m.Runner2ID, now)
	case *models.RunnerStat:
		return warnIfStale(m.CheckRetrieved(now))
	case statusCarrier:
		return warnIfStale(m.Status().CheckStatus(now))
	}
	return nil
}

// warnIfStale downgrades freshness-window violations to a logged warning.
func warnIfStale(err error) error {
	if errors.Is(err, models.ErrStale) {
		zap.L().Warn("timestamp beyond freshness window", zap.Error(err))
		return nil
	}
	return err
}

func validateTrack(t *models.Track) error {
	if _, err := time.LoadLocation(t.Timezone); err != nil {
		return fmt.Errorf("not a valid timezone %q: %w", t.Timezone, err)
	}
	return nil
}

func validateMeet(ctx context.Context, db bun.IDB, m *models.Meet, now time.Time) error {
	if err := warnIfStale(m.CheckRetrieved(now)); err != nil {
		return err
	}
	if _, err := time.Parse(models.DateLayout, m.LocalDate); err != nil {
		return fmt.Errorf("invalid meet local_date %q: %w", m.LocalDate, err)
	}

	track := new(models.Track)
	if err := db.NewSelect().Model(track).Where("track_id = ?", m.TrackID).Scan(ctx); err != nil {
		return fmt.Errorf("could not verify local_date, track %d: %w", m.TrackID, err)
	}
	loc, err := time.LoadLocation(track.Timezone)
	if err != nil {
		return fmt.Errorf("could not verify local_date: %w", err)
	}
	// Warn only. Idempotence logic downstream depends on slightly-off-date
	// meets still being creatable.
	if actual := now.In(loc).Format(models.DateLayout); m.LocalDate != actual {
		zap.L().Warn("meet date does not match the track's current date",
			zap.Int("track_id", m.TrackID),
			zap.String("local_date", m.LocalDate),
			zap.String("current_local_date", actual),
		)
	}
	return nil
}

func validateRace(ctx context.Context, db bun.IDB, r *models.Race, now time.Time) error {
	if err := warnIfStale(r.CheckRetrieved(now)); err != nil {
		return err
	}
	if r.RaceNum < 1 {
		return fmt.Errorf("race_num must be positive, got %d", r.RaceNum)
	}
	if r.DisciplineID == 0 {
		id, err := ResolveDiscipline(ctx, db, r.Discipline)
		if err != nil {
			return err
		}
		r.DisciplineID = id
	}

	if r.EstimatedPost.IsZero() {
		return errors.New("race estimated_post not set")
	}
	meet := new(models.Meet)
	err := db.NewSelect().Model(meet).
		Relation("Track").
		Where("m.meet_id = ?", r.MeetID).
		Scan(ctx)
	if err != nil {
		return fmt.Errorf("could not find meet %d: %w", r.MeetID, err)
	}
	loc, err := time.LoadLocation(meet.Track.Timezone)
	if err != nil {
		return fmt.Errorf("could not verify estimated_post: %w", err)
	}
	postDate := r.EstimatedPost.In(loc).Format(models.DateLayout)
	if postDate < meet.LocalDate {
		return fmt.Errorf("race estimated post %s before meet date %s", postDate, meet.LocalDate)
	}
	if postDate != meet.LocalDate {
		zap.L().Warn("race estimated post not on meet date",
			zap.Int("meet_id", r.MeetID),
			zap.String("post_date", postDate),
			zap.String("meet_date", meet.LocalDate),
		)
	}
	if r.EstimatedPost.Before(now) {
		zap.L().Warn("estimated post appears to be in the past",
			zap.Time("estimated_post", r.EstimatedPost), zap.Time("now", now))
	} else if r.EstimatedPost.After(now.Add(24 * time.Hour)) {
		zap.L().Warn("estimated post more than one day in the future",
			zap.Time("estimated_post", r.EstimatedPost), zap.Time("now", now))
	}
	return nil
}

func validateRunner(r *models.Runner) error {
	if r.Tab < 1 {
		return fmt.Errorf("runner tab must be positive, got %d", r.Tab)
	}
	if r.Age != nil && *r.Age < 1 {
		return fmt.Errorf("runner age must be positive, got %d", *r.Age)
	}
	if r.Result != nil && *r.Result < 1 {
		return fmt.Errorf("runner result must be positive, got %d", *r.Result)
	}
	return nil
}

func validateSameRacePair(ctx context.Context, db bun.IDB, m statusCarrier, id1, id2 int, now time.Time) error {
	if err := warnIfStale(m.Status().CheckStatus(now)); err != nil {
		return err
	}
	runners, err := RunnersByIDs(ctx, db, []int{id1, id2})
	if err != nil {
		return err
	}
	if HasDuplicates(runners) {
		return fmt.Errorf("duplicate runners: %d, %d", id1, id2)
	}
	same, err := AreOfSameRace(runners)
	if err != nil {
		return err
	}
	if !same {
		return fmt.Errorf("runners %d and %d are of different races", id1, id2)
	}
	return nil
}

func validateConsecutivePair(ctx context.Context, db bun.IDB, m statusCarrier, id1, id2 int, now time.Time) error {
	if err := warnIfStale(m.Status().CheckStatus(now)); err != nil {
		return err
	}
	runners, err := RunnersByIDs(ctx, db, []int{id1, id2})
	if err != nil {
		return err
	}
	consecutive, err := AreConsecutiveRaces(runners)
	if err != nil {
		return err
	}
	if !consecutive {
		return fmt.Errorf("runners %d and %d are not of consecutive races", id1, id2)
	}
	return nil
}

// RunnersByIDs resolves runner ids with their races loaded, preserving the
// input order. Fails if any id is unresolvable.
func RunnersByIDs(ctx context.Context, db bun.IDB, ids []int) ([]*models.Runner, error) {
	var found []*models.Runner
	err := db.NewSelect().Model(&found).
		Relation("Race").
		Where("rn.runner_id IN (?)", bun.In(ids)).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("looking up runners %v: %w", ids, err)
	}
	byID := make(map[int]*models.Runner, len(found))
	for _, r := range found {
		byID[r.RunnerID] = r
	}
	out := make([]*models.Runner, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unable to find all runners with ids %v", ids)
		}
		out = append(out, r)
	}
	return out, nil
}

// AreOfSameRace reports whether every runner belongs to the first runner's race.
func AreOfSameRace(runners []*models.Runner) (bool, error) {
	if len(runners) == 0 {
		return false, errors.New("no runners supplied")
	}
	for _, r := range runners {
		if r.RaceID != runners[0].RaceID {
			return false, nil
		}
	}
	return true, nil
}

// AreConsecutiveRaces reports whether each runner's race follows the previous
// runner's race within the same meet. The input must already be in race order;
// out-of-order input is a false negative by design.
func AreConsecutiveRaces(runners []*models.Runner) (bool, error) {
	if len(runners) < 2 {
		return false, errors.New("need at least two runners")
	}
	previous := runners[0]
	for _, r := range runners[1:] {
		if previous.Race == nil || r.Race == nil {
			return false, errors.New("runner race not loaded")
		}
		if r.Race.MeetID != previous.Race.MeetID || r.Race.RaceNum != previous.Race.RaceNum+1 {
			return false, nil
		}
		previous = r
	}
	return true, nil
}

// HasDuplicates reports whether any two runners share an id.
func HasDuplicates(runners []*models.Runner) bool {
	ids := make([]int, 0, len(runners))
	for _, r := range runners {
		ids = append(ids, r.RunnerID)
	}
	sort.Ints(ids)
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			return true
		}
	}
	return false
}

// ResolveDiscipline accepts a discipline name or the wagering site's alias and
// returns the catalog id.
func ResolveDiscipline(ctx context.Context, db bun.IDB, nameOrAlias string) (int, error) {
	if nameOrAlias == "" {
		return 0, errors.New("discipline not set")
	}
	d := new(models.Discipline)
	err := db.NewSelect().Model(d).
		Where("name = ?", nameOrAlias).
		WhereOr("amwager = ?", nameOrAlias).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return 0, fmt.Errorf("cannot find discipline entry %q: %w", nameOrAlias, err)
	}
	return d.DisciplineID, nil
}
