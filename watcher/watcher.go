// Package watcher follows a single race through post time, recording odds,
// pools and exotic prices each tick until the race resolves.
package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/browser"
	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/models"
	"github.com/padraicbc/amwatch/scraper"
)

// Mode says when a watch ends.
type Mode int

const (
	// WatchToResults keeps watching until results post and are recorded.
	WatchToResults Mode = iota
	// WatchToClose stops once wagering closes; results are someone else's job.
	WatchToClose
)

// RaceWatcher polls one race's page. It owns its session and quits it on exit.
type RaceWatcher struct {
	db      *bun.DB
	session browser.Session
	cfg     *config.Config
	logger  *zap.Logger

	raceID int
	mode   Mode

	race    *models.Race
	runners []*models.Runner
	// runners of the meet's following race, when it exists; enables doubles.
	nextRunners []*models.Runner
}

func New(database *bun.DB, session browser.Session, cfg *config.Config,
	logger *zap.Logger, raceID int, mode Mode) *RaceWatcher {
	return &RaceWatcher{
		db:      database,
		session: session,
		cfg:     cfg,
		logger:  logger.With(zap.Int("race_id", raceID)),
		raceID:  raceID,
		mode:    mode,
	}
}

// Run watches the race until it resolves, the mode's stop condition hits, or
// the context ends.
func (w *RaceWatcher) Run(ctx context.Context) error {
	defer w.session.Quit()

	if err := w.setup(ctx); err != nil {
		w.logger.Error("could not start race watch", zap.Error(err))
		return err
	}

	ticker := time.NewTicker(config.WatchInterval)
	defer ticker.Stop()
	for {
		done, err := w.tick(ctx)
		if err != nil {
			w.logger.Error("race watch aborted", zap.Error(err))
			return err
		}
		if done {
			w.logger.Info("race watch complete")
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *RaceWatcher) setup(ctx context.Context) error {
	race, err := db.RaceByID(ctx, w.db, w.raceID)
	if err != nil {
		return err
	}
	w.race = race
	// A race the preparer could not fully build may still lack its roster;
	// the first successful page read establishes it (see tick).
	w.runners = race.Runners

	next, err := db.NextRace(ctx, w.db, race.MeetID, race.RaceNum)
	if err != nil {
		return err
	}
	if next != nil && len(next.Runners) > 0 {
		w.nextRunners = next.Runners
	}

	return browser.GoToRace(ctx, w.session, w.cfg.BaseURL, race.Meet.Track, race.RaceNum)
}

// tick performs one capture: refresh, roster if still missing, staleness gate,
// status, facts, runner updates. All fact rows of the tick share one
// datetime_retrieved.
func (w *RaceWatcher) tick(ctx context.Context) (bool, error) {
	if err := w.session.Refresh(ctx); err != nil {
		return false, err
	}
	doc, err := w.session.PageContent()
	if err != nil {
		return false, err
	}
	retrieved := time.Now().UTC()

	// A tick without a roster only tries to establish it; everything else
	// waits for the next pass. Once established, the page's own render age
	// gates the tick: a stale render would stamp old prices with a fresh
	// timestamp, so skip instead of scraping.
	establishing := len(w.runners) == 0
	if establishing {
		if err := w.establishRoster(ctx, doc); err != nil {
			w.logger.Warn("could not establish runner roster", zap.Error(err))
		}
	} else {
		age, err := scraper.GetSecondsSinceUpdate(doc)
		if err != nil || age > config.StaleAfterSeconds {
			w.logger.Warn("page render stale, skipping tick",
				zap.Int("age_seconds", age), zap.Error(err))
			return false, nil
		}
	}

	status, err := scraper.GetRaceStatus(doc, retrieved)
	if err != nil {
		w.logger.Warn("could not obtain race status", zap.Error(err))
		return false, nil
	}

	// The termination check does not depend on having a roster: a resolved
	// race whose runner table never came back must still end the watch.
	if establishing {
		return w.terminal(status), nil
	}

	w.scrapeFacts(ctx, doc, status)
	if err := w.updateRunners(ctx, doc, status); err != nil {
		return false, err
	}
	return w.terminal(status), nil
}

func (w *RaceWatcher) terminal(status models.RaceStatus) bool {
	if w.mode == WatchToClose {
		return status.WageringClosed || status.ResultsPosted
	}
	return status.ResultsPosted
}

// establishRoster scrapes and persists the race's runners once. Later ticks
// only update scratches and results.
func (w *RaceWatcher) establishRoster(ctx context.Context, doc *goquery.Document) error {
	runners, err := scraper.ScrapeRunners(doc, w.race.RaceID)
	if err != nil {
		return err
	}
	if err := db.AddAndCommit(ctx, w.db, &runners); err != nil {
		return err
	}
	w.runners = runners
	return nil
}

// scrapeFacts captures every fact table of the tick. Each table commits on
// its own; a malformed table costs that table, not the tick.
func (w *RaceWatcher) scrapeFacts(ctx context.Context, doc *goquery.Document, status models.RaceStatus) {
	commit := func(name string, m any, err error) {
		if err != nil {
			w.logger.Warn("scrape failed", zap.String("table", name), zap.Error(err))
			return
		}
		if err := db.AddAndCommit(ctx, w.db, m); err != nil {
			w.logger.Warn("commit failed", zap.String("table", name), zap.Error(err))
		}
	}

	odds, err := scraper.ScrapeOdds(doc, w.runners, status)
	commit("individual odds", &odds, err)

	pools, err := scraper.ScrapeIndividualPools(doc, w.runners, status)
	commit("individual pools", &pools, err)

	exacta, err := scraper.ScrapeExactaOdds(doc, w.runners, status)
	commit("exacta odds", &exacta, err)

	quinella, err := scraper.ScrapeQuinellaOdds(doc, w.runners, status)
	commit("quinella odds", &quinella, err)

	exotics, err := scraper.ScrapeExoticTotals(doc, w.race.RaceID, status)
	commit("exotic totals", exotics, err)

	willpays, err := scraper.ScrapeWillpays(doc, w.runners, status)
	commit("willpays", &willpays, err)

	commissions, err := scraper.ScrapeRaceCommissions(doc, w.race.RaceID, status)
	commit("race commissions", commissions, err)

	if w.nextRunners != nil {
		doubles, err := scraper.ScrapeDoubleOdds(doc, w.runners, w.nextRunners, status)
		commit("double odds", &doubles, err)
	}
	if status.ResultsPosted {
		payouts, err := scraper.ScrapePayouts(doc, w.race.RaceID, status)
		commit("payouts", payouts, err)
	}
}

// updateRunners refreshes scratches and, once posted, finishing positions.
// A scrape failure keeps the previous roster state; a store failure ends the
// watch since every later tick would write against bad runner rows.
func (w *RaceWatcher) updateRunners(ctx context.Context, doc *goquery.Document, status models.RaceStatus) error {
	if err := scraper.UpdateScratchedStatus(doc, w.runners); err != nil {
		w.logger.Warn("could not update scratches, keeping previous", zap.Error(err))
	}
	if status.ResultsPosted {
		if err := scraper.ScrapeResults(doc, w.runners); err != nil {
			w.logger.Warn("could not scrape results", zap.Error(err))
		}
	}
	if err := db.UpdateModels(ctx, w.db, &w.runners); err != nil {
		return fmt.Errorf("could not store runner updates: %w", err)
	}
	return nil
}
