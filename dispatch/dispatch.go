// Package dispatch runs the scraping campaign: it decides which tracks need
// meets prepared and which races need watching, and keeps a bounded pool of
// tasks doing it.
package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/browser"
	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/db"
	applog "github.com/padraicbc/amwatch/logger"
	"github.com/padraicbc/amwatch/models"
	"github.com/padraicbc/amwatch/prepper"
	"github.com/padraicbc/amwatch/scraper"
	"github.com/padraicbc/amwatch/stats"
	"github.com/padraicbc/amwatch/watcher"
)

// task is a running prepper or watcher. done closes when its goroutine ends.
type task struct {
	name string
	done chan struct{}
}

func (t *task) alive() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Dispatcher owns the root authenticated session and spawns every task from
// its cookies.
type Dispatcher struct {
	db     *bun.DB
	cfg    *config.Config
	logger *zap.Logger
	root   browser.Session
	stats  *stats.Client

	// Per-task-kind loggers: each kind keeps its own durable log stream.
	prepLog  *zap.Logger
	watchLog *zap.Logger

	mu      sync.Mutex
	running []*task

	lastRefresh time.Time
}

func New(database *bun.DB, cfg *config.Config, logger *zap.Logger,
	root browser.Session, statsClient *stats.Client) (*Dispatcher, error) {
	prepLog, err := applog.NewTask(cfg.LogDir, "meet_prepper", cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating meet prepper logger: %w", err)
	}
	watchLog, err := applog.NewTask(cfg.LogDir, "race_watcher", cfg.Debug)
	if err != nil {
		return nil, fmt.Errorf("creating race watcher logger: %w", err)
	}
	return &Dispatcher{
		db:       database,
		cfg:      cfg,
		logger:   logger,
		root:     root,
		stats:    statsClient,
		prepLog:  prepLog,
		watchLog: watchLog,
	}, nil
}

// RunningTasks reports the names of tasks currently alive, for diagnostics.
func (d *Dispatcher) RunningTasks() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var names []string
	for _, t := range d.running {
		if t.alive() {
			names = append(names, t.name)
		}
	}
	return names
}

// Run drives the whole campaign: track selection, the gap report, meet
// preparation, then race watching until today's card resolves.
func (d *Dispatcher) Run(ctx context.Context) error {
	tracks, missing, err := d.selectTracks(ctx)
	if err != nil {
		return err
	}
	if err := WriteMissingReport(d.cfg.LogDir, missing); err != nil {
		d.logger.Error("could not write missing tracks report", zap.Error(err))
	}
	d.logger.Info("track selection complete",
		zap.Int("to_prep", len(tracks)), zap.Int("missing", len(missing)))
	if d.cfg.MissingOnly {
		return nil
	}

	if err := d.prepMeets(ctx, tracks); err != nil {
		return err
	}

	races, err := d.racesWithoutResults(ctx)
	if err != nil {
		return err
	}
	return d.watchRaces(ctx, races)
}

// selectTracks reads the site's live track list and pairs it against the
// catalog. Listings with no catalog row are reported as missing; ignored
// tracks and tracks whose meet already exists are skipped.
func (d *Dispatcher) selectTracks(ctx context.Context) ([]*models.Track, []MissingTrack, error) {
	if err := d.root.Navigate(ctx, d.cfg.BaseURL+"/#wager"); err != nil {
		return nil, nil, fmt.Errorf("loading track list: %w", err)
	}
	d.lastRefresh = time.Now()
	doc, err := d.root.PageContent()
	if err != nil {
		return nil, nil, err
	}
	listings, err := scraper.GetTrackList(doc)
	if err != nil {
		return nil, nil, err
	}

	catalog, err := db.AllTracks(ctx, d.db)
	if err != nil {
		return nil, nil, err
	}
	byAmwager := make(map[string]*models.Track, len(catalog))
	for _, track := range catalog {
		if track.Amwager != nil {
			byAmwager[*track.Amwager] = track
		}
	}

	meets, err := db.TodaysMeets(ctx, d.db, time.Now())
	if err != nil {
		return nil, nil, err
	}
	hasMeet := make(map[int]bool, len(meets))
	for _, meet := range meets {
		hasMeet[meet.TrackID] = true
	}

	var toPrep []*models.Track
	var missing []MissingTrack
	for _, listing := range listings {
		track, ok := byAmwager[listing.ID]
		if !ok {
			d.logger.Warn("track not in catalog", zap.String("amwager", listing.ID))
			missing = append(missing, MissingTrack{AmwagerID: listing.ID, Listing: listing.HTML})
			continue
		}
		if track.Ignore || hasMeet[track.TrackID] {
			continue
		}
		toPrep = append(toPrep, track)
	}
	return toPrep, missing, nil
}

// prepMeets runs a prepper per track, at most MaxPreppers at a time, until
// every track has been attempted.
func (d *Dispatcher) prepMeets(ctx context.Context, tracks []*models.Track) error {
	var active []*task
	for len(tracks) > 0 || len(active) > 0 {
		active = reap(active)

		for len(tracks) > 0 && len(active) < d.cfg.MaxPreppers {
			track := tracks[0]
			tracks = tracks[1:]
			t, err := d.spawnPrepper(ctx, track)
			if err != nil {
				d.logger.Error("failed to start meet prepper",
					zap.String("track", track.Name), zap.Error(err))
				continue
			}
			active = append(active, t)
		}

		if err := d.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

// watchRaces starts a watcher for each race as its post approaches, at most
// MaxWatchers at a time, and returns when the card is done.
func (d *Dispatcher) watchRaces(ctx context.Context, races []*models.Race) error {
	var active []*task
	for len(races) > 0 || len(active) > 0 {
		active = reap(active)

		remaining := races[:0]
		for _, race := range races {
			if len(active) >= d.cfg.MaxWatchers {
				remaining = append(remaining, race)
				continue
			}
			now := time.Now().UTC()
			if race.EstimatedPost.Sub(now) > config.PostLookahead {
				remaining = append(remaining, race)
				continue
			}
			// Past post with nobody in it: there will never be results.
			if !race.EstimatedPost.After(now) && len(race.Runners) == 0 {
				d.logger.Info("dropping empty past-post race", zap.Int("race_id", race.RaceID))
				continue
			}
			t, err := d.spawnWatcher(ctx, race)
			if err != nil {
				d.logger.Error("failed to start race watcher",
					zap.Int("race_id", race.RaceID), zap.Error(err))
				continue
			}
			active = append(active, t)
		}
		races = remaining

		if err := d.pause(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) spawnPrepper(ctx context.Context, track *models.Track) (*task, error) {
	session, err := browser.New(d.cfg.BaseURL, d.root.Cookies())
	if err != nil {
		return nil, err
	}
	p := prepper.New(d.db, session, d.stats, d.cfg, d.prepLog, track.TrackID)
	return d.spawn(fmt.Sprintf("prepper:%s", track.Name), func() { _ = p.Run(ctx) }), nil
}

func (d *Dispatcher) spawnWatcher(ctx context.Context, race *models.Race) (*task, error) {
	session, err := browser.New(d.cfg.BaseURL, d.root.Cookies())
	if err != nil {
		return nil, err
	}
	w := watcher.New(d.db, session, d.cfg, d.watchLog, race.RaceID, watcher.WatchToResults)
	return d.spawn(fmt.Sprintf("watcher:race-%d", race.RaceID), func() { _ = w.Run(ctx) }), nil
}

func (d *Dispatcher) spawn(name string, run func()) *task {
	t := &task{name: name, done: make(chan struct{})}
	d.mu.Lock()
	d.running = append(d.running, t)
	d.mu.Unlock()
	go func() {
		defer close(t.done)
		run()
	}()
	return t
}

// pause waits one scheduling pass and keeps the root session's login alive.
func (d *Dispatcher) pause(ctx context.Context) error {
	if time.Since(d.lastRefresh) > config.SessionRefreshAfter {
		if err := d.root.Refresh(ctx); err != nil {
			d.logger.Warn("root session refresh failed", zap.Error(err))
		}
		d.lastRefresh = time.Now()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(config.SchedulePass):
		return nil
	}
}

// racesWithoutResults lists today's races still missing results, runners
// loaded, across all of today's meets.
func (d *Dispatcher) racesWithoutResults(ctx context.Context) ([]*models.Race, error) {
	meets, err := db.TodaysMeets(ctx, d.db, time.Now())
	if err != nil {
		return nil, err
	}
	var races []*models.Race
	for _, meet := range meets {
		if meet.Track != nil && meet.Track.Ignore {
			continue
		}
		meetRaces, err := db.MeetRaces(ctx, d.db, meet.MeetID)
		if err != nil {
			return nil, err
		}
		for _, race := range meetRaces {
			done, err := db.HasResults(ctx, d.db, race.RaceID)
			if err != nil {
				return nil, err
			}
			if !done {
				races = append(races, race)
			}
		}
	}
	return races, nil
}

func reap(tasks []*task) []*task {
	out := tasks[:0]
	for _, t := range tasks {
		if t.alive() {
			out = append(out, t)
		}
	}
	return out
}
