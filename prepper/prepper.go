// Package prepper builds a meet's skeleton ahead of race time: the meet row,
// every race still to run, each race's roster, and the stats provider's
// figures for thoroughbred cards.
package prepper

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/padraicbc/amwatch/browser"
	"github.com/padraicbc/amwatch/config"
	"github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/models"
	"github.com/padraicbc/amwatch/scraper"
	"github.com/padraicbc/amwatch/stats"
)

// Retry budgets. Page scrapes get many quick retries since the site re-renders
// constantly; the stats provider gets a few slow ones.
const (
	scrapeTries    = 10
	scrapeInterval = 2 * time.Second
	domainTries    = 2
	domainInterval = 10 * time.Second
	statsTries     = 5
	statsInterval  = 30 * time.Second
)

// MeetPrepper prepares one track's meet for today. It owns its session and
// quits it when done.
type MeetPrepper struct {
	db      *bun.DB
	session browser.Session
	stats   *stats.Client
	cfg     *config.Config
	logger  *zap.Logger

	trackID int
	track   *models.Track
	meet    *models.Meet
}

func New(database *bun.DB, session browser.Session, statsClient *stats.Client,
	cfg *config.Config, logger *zap.Logger, trackID int) *MeetPrepper {
	return &MeetPrepper{
		db:      database,
		session: session,
		stats:   statsClient,
		cfg:     cfg,
		logger:  logger.With(zap.Int("track_id", trackID)),
		trackID: trackID,
	}
}

// Run prepares the meet. A failure after the meet row exists rolls the whole
// meet back so a later pass can start clean.
func (p *MeetPrepper) Run(ctx context.Context) error {
	defer p.session.Quit()

	err := p.prepare(ctx)
	if err == nil {
		return nil
	}
	p.logger.Error("meet preparation failed", zap.Error(err))
	if p.meet != nil {
		if delErr := db.DeleteMeet(ctx, p.db, p.meet); delErr != nil {
			p.logger.Error("could not roll back partial meet",
				zap.Int("meet_id", p.meet.MeetID), zap.Error(delErr))
		}
	}
	return err
}

func (p *MeetPrepper) prepare(ctx context.Context) error {
	track, err := db.TrackByID(ctx, p.db, p.trackID)
	if err != nil {
		return err
	}
	p.track = track

	if err := p.prepareDomain(ctx); err != nil {
		return err
	}
	if err := p.addMeet(ctx); err != nil {
		return err
	}
	numRaces, err := p.numRaces(ctx)
	if err != nil {
		return err
	}
	if p.allRacesComplete(ctx, numRaces) {
		p.logger.Info("all races already complete, nothing to prepare")
		return nil
	}
	p.addRacesAndRunners(ctx, numRaces)
	p.addStats(ctx)
	return nil
}

// retry runs op under a constant backoff.
func retry(ctx context.Context, tries uint64, interval time.Duration, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), tries-1), ctx)
	return backoff.Retry(op, policy)
}

// prepareDomain loads the site root so the session's cookies take effect.
func (p *MeetPrepper) prepareDomain(ctx context.Context) error {
	return retry(ctx, domainTries, domainInterval, func() error {
		return p.session.Navigate(ctx, p.cfg.BaseURL)
	})
}

// addMeet creates the meet row. The meet's local date is race 1's estimated
// post expressed in the track's own timezone.
func (p *MeetPrepper) addMeet(ctx context.Context) error {
	loc, err := time.LoadLocation(p.track.Timezone)
	if err != nil {
		return fmt.Errorf("track %q has bad timezone: %w", p.track.Name, err)
	}
	return retry(ctx, scrapeTries, scrapeInterval, func() error {
		if err := browser.GoToRace(ctx, p.session, p.cfg.BaseURL, p.track, 1); err != nil {
			return err
		}
		doc, err := p.session.PageContent()
		if err != nil {
			return err
		}
		retrieved := time.Now().UTC()
		race, err := scraper.ScrapeRace(doc, retrieved, 0)
		if err != nil {
			return err
		}

		meet := &models.Meet{
			TrackID:   p.track.TrackID,
			LocalDate: race.EstimatedPost.In(loc).Format(models.DateLayout),
		}
		meet.DatetimeRetrieved = retrieved
		if err := db.AddAndCommit(ctx, p.db, meet); err != nil {
			return fmt.Errorf("could not add meet to database: %w", err)
		}
		p.meet = meet
		return nil
	})
}

func (p *MeetPrepper) numRaces(ctx context.Context) (int, error) {
	var numRaces int
	err := retry(ctx, scrapeTries, scrapeInterval, func() error {
		if err := browser.GoToRace(ctx, p.session, p.cfg.BaseURL, p.track, 1); err != nil {
			return err
		}
		doc, err := p.session.PageContent()
		if err != nil {
			return err
		}
		numRaces, err = scraper.GetNumRaces(doc)
		return err
	})
	return numRaces, err
}

func (p *MeetPrepper) resultsPosted(ctx context.Context, raceNum int) (bool, error) {
	var posted bool
	err := retry(ctx, scrapeTries, scrapeInterval, func() error {
		if err := browser.GoToRace(ctx, p.session, p.cfg.BaseURL, p.track, raceNum); err != nil {
			return err
		}
		doc, err := p.session.PageContent()
		if err != nil {
			return err
		}
		status, err := scraper.GetRaceStatus(doc, time.Now().UTC())
		if err != nil {
			return err
		}
		posted = status.ResultsPosted
		return nil
	})
	return posted, err
}

// allRacesComplete short-circuits the card when both the first and last race
// already have results.
func (p *MeetPrepper) allRacesComplete(ctx context.Context, numRaces int) bool {
	first, err := p.resultsPosted(ctx, 1)
	if err != nil || !first {
		return false
	}
	last, err := p.resultsPosted(ctx, numRaces)
	return err == nil && last
}

// addRacesAndRunners adds every race still to run. A race that fails keeps the
// rest of the card going.
func (p *MeetPrepper) addRacesAndRunners(ctx context.Context, numRaces int) {
	for raceNum := 1; raceNum <= numRaces; raceNum++ {
		if err := p.addOneRace(ctx, raceNum); err != nil {
			p.logger.Error("error while adding race and runners to meet",
				zap.Int("race_num", raceNum), zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func (p *MeetPrepper) addOneRace(ctx context.Context, raceNum int) error {
	posted, err := p.resultsPosted(ctx, raceNum)
	if err != nil {
		return err
	}
	if posted {
		return nil
	}

	var race *models.Race
	err = retry(ctx, scrapeTries, scrapeInterval, func() error {
		if err := browser.GoToRace(ctx, p.session, p.cfg.BaseURL, p.track, raceNum); err != nil {
			return err
		}
		doc, err := p.session.PageContent()
		if err != nil {
			return err
		}
		r, err := scraper.ScrapeRace(doc, time.Now().UTC(), p.meet.MeetID)
		if err != nil {
			return err
		}
		if err := db.AddAndCommit(ctx, p.db, r); err != nil {
			return err
		}
		race = r
		return nil
	})
	if err != nil {
		return err
	}

	return retry(ctx, scrapeTries, scrapeInterval, func() error {
		if err := browser.GoToRace(ctx, p.session, p.cfg.BaseURL, p.track, raceNum); err != nil {
			return err
		}
		doc, err := p.session.PageContent()
		if err != nil {
			return err
		}
		runners, err := scraper.ScrapeRunners(doc, race.RaceID)
		if err != nil {
			return err
		}
		return db.AddAndCommit(ctx, p.db, &runners)
	})
}

// addStats pulls the stats provider's figures. The provider only carries
// custom form data for thoroughbred cards; anything else is skipped, and a
// failure here never fails the meet.
func (p *MeetPrepper) addStats(ctx context.Context) {
	if p.track.RacingAndSports == nil {
		return
	}
	races, err := db.MeetRaces(ctx, p.db, p.meet.MeetID)
	if err != nil || len(races) == 0 {
		p.logger.Warn("no races to fetch stats for", zap.Error(err))
		return
	}
	discipline, err := db.DisciplineByID(ctx, p.db, races[0].DisciplineID)
	if err != nil {
		p.logger.Warn("could not resolve meet discipline", zap.Error(err))
		return
	}
	if discipline.Name != "Thoroughbred" || discipline.RacingAndSports == nil {
		return
	}

	meet := *p.meet
	meet.Track = p.track
	meet.Races = races
	err = retry(ctx, statsTries, statsInterval, func() error {
		runnerStats, err := p.stats.ScrapeMeet(ctx, &meet, *discipline.RacingAndSports)
		if err != nil {
			return err
		}
		return db.AddAndCommit(ctx, p.db, &runnerStats)
	})
	if err != nil {
		p.logger.Error("could not get stats provider data", zap.Error(err))
	}
}
