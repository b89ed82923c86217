// Package stats pulls pre-race runner figures from the racingandsports.com
// form guide and matches them onto stored runners.
package stats

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/padraicbc/amwatch/models"
)

// nameMatchThreshold is the minimum similarity for a form guide horse to be
// taken as one of our runners. Formatting differs slightly between sites.
const nameMatchThreshold = 0.85

// maxUnmatchedFraction bounds how many form guide rows may fail to match
// before a race pairing is rejected outright.
const maxUnmatchedFraction = 0.2

// columnQueries are the column group requests sent per meet. The provider
// renders one HTML table per race for each request; tables for the same race
// are merged on the Tab and Horse columns.
var columnQueries = []string{
	`[{"name":"HTab","title":"Tab"},{"name":"HName","title":"Horse"},{"name":"FormFigs3","title":"Form L3"},{"name":"FormFigs5","title":"Form L5"},{"name":"HWeight","title":"Wgt"},{"name":"HBP","title":"BP"},{"name":"CarBest","title":"Car Best"},{"name":"SeaBest","title":"Sea Best"},{"name":"JRat","title":"JRat"},{"name":"TRat","title":"TRat"},{"name":"DLW","title":"DLW"},{"name":"RLW","title":"RLW"},{"name":"DLR","title":"DLR"},{"name":"PredRat","title":"EST"},{"name":"Brr","title":"BRR"},{"name":"BestRat12m","title":"BR12"},{"name":"LSRat","title":"LSRat"}]`,
	`[{"name":"HTab","title":"Tab"},{"name":"HName","title":"Horse"},{"name":"WPSCar","title":"Car"},{"name":"WPSCrs","title":"Crs"},{"name":"WPSDist","title":"Dist"},{"name":"WPS12m","title":"12m"},{"name":"NRat","title":"NR"},{"name":"Pace","title":"P"},{"name":"AES","title":"AES"},{"name":"AFS","title":"AFS"}]`,
}

// Client fetches form guides. Requests run behind a rate limiter and a
// circuit breaker; the provider is slow to recover once it starts failing.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	http := resty.New()
	http.SetBaseURL(baseURL)
	http.SetTimeout(30 * time.Second)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "racing-and-sports",
		Timeout: 2 * time.Minute,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("stats provider breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})

	return &Client{
		http:    http,
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Every(2*time.Second), 1),
		logger:  logger,
	}
}

// guideRow is one horse's row of the merged form guide: column title to cell.
type guideRow map[string]string

// guideRace is one race's merged form guide rows, in table order.
type guideRace []guideRow

// ScrapeMeet fetches the meet's form guide and returns one stat row per
// matched runner. The meet must be loaded with its track and its races'
// runners; discipline is the provider's discipline code. Races whose rosters
// cannot be matched confidently are skipped.
func (c *Client) ScrapeMeet(ctx context.Context, meet *models.Meet, discipline string) ([]*models.RunnerStat, error) {
	if meet.Track == nil || len(meet.Races) == 0 {
		return nil, fmt.Errorf("meet %d not loaded with track and races", meet.MeetID)
	}
	if meet.Track.RacingAndSports == nil {
		return nil, fmt.Errorf("track %q has no stats provider identifier", meet.Track.Name)
	}

	retrieved := time.Now().UTC()
	races, err := c.fetchGuide(ctx, discipline, meet.Track.Country, *meet.Track.RacingAndSports)
	if err != nil {
		return nil, err
	}

	var out []*models.RunnerStat
	for _, guide := range races {
		race := matchRace(meet.Races, guide)
		if race == nil {
			continue
		}
		for _, row := range guide {
			runner := matchRunner(race.Runners, row["Horse"])
			if runner == nil {
				continue
			}
			stat := buildStat(runner.RunnerID, row)
			stat.DatetimeRetrieved = retrieved
			out = append(out, stat)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no form guide races matched meet %d", meet.MeetID)
	}
	return out, nil
}

// fetchGuide retrieves every column group and merges the per-race tables.
func (c *Client) fetchGuide(ctx context.Context, discipline, country, course string) ([]guideRace, error) {
	var merged []guideRace
	for _, cols := range columnQueries {
		races, err := c.fetchTables(ctx, discipline, country, course, cols)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			merged = races
			continue
		}
		if len(races) != len(merged) {
			return nil, fmt.Errorf("form guide query returned %d races, earlier query returned %d",
				len(races), len(merged))
		}
		for i, race := range races {
			merged[i] = mergeRace(merged[i], race)
		}
	}
	return merged, nil
}

func (c *Client) fetchTables(ctx context.Context, discipline, country, course, cols string) ([]guideRace, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(map[string]string{
				"discipline": discipline,
				"country":    country,
				"course":     course,
				"cols":       cols,
			}).
			Get("/form-guide/GenerateRaceGuide")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("form guide request failed: %s", resp.Status())
		}
		return resp.String(), nil
	})
	if err != nil {
		return nil, fmt.Errorf("could not fetch form guide for course %s: %w", course, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body.(string)))
	if err != nil {
		return nil, fmt.Errorf("parsing form guide: %w", err)
	}
	return parseGuideTables(doc)
}

// parseGuideTables reads every race table of a form guide page. The second
// header row carries the column titles.
func parseGuideTables(doc *goquery.Document) ([]guideRace, error) {
	var races []guideRace
	doc.Find("table").Each(func(_ int, tbl *goquery.Selection) {
		rows := tbl.Find("tr")
		if rows.Length() < 2 {
			return
		}
		var titles []string
		rows.Eq(1).Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			titles = append(titles, clean(cell.Text()))
		})
		if len(titles) < 2 || titles[0] != "Tab" || titles[1] != "Horse" {
			return
		}
		var race guideRace
		rows.Slice(2, rows.Length()).Each(func(_ int, tr *goquery.Selection) {
			cells := tr.Find("td")
			if cells.Length() != len(titles) {
				return
			}
			row := guideRow{}
			cells.Each(func(i int, cell *goquery.Selection) {
				row[titles[i]] = clean(cell.Text())
			})
			race = append(race, row)
		})
		if len(race) > 0 {
			races = append(races, race)
		}
	})
	if len(races) == 0 {
		return nil, fmt.Errorf("no race tables in form guide page")
	}
	return races, nil
}

func mergeRace(into, from guideRace) guideRace {
	byKey := make(map[string]guideRow, len(from))
	for _, row := range from {
		byKey[row["Tab"]+"|"+row["Horse"]] = row
	}
	for _, row := range into {
		if other, ok := byKey[row["Tab"]+"|"+row["Horse"]]; ok {
			for k, v := range other {
				row[k] = v
			}
		}
	}
	return into
}

// matchRace finds the stored race whose roster the guide race belongs to. A
// pairing needs at least 80% of guide horses matching stored runner names.
func matchRace(races []*models.Race, guide guideRace) *models.Race {
	for _, race := range races {
		unmatched := 0
		for _, row := range guide {
			if matchRunner(race.Runners, row["Horse"]) == nil {
				unmatched++
			}
		}
		if float64(unmatched)/float64(len(guide)) <= maxUnmatchedFraction {
			return race
		}
	}
	return nil
}

func matchRunner(runners []*models.Runner, horse string) *models.Runner {
	for _, runner := range runners {
		if similarName(horse, runner.Name) {
			return runner
		}
	}
	return nil
}

func similarName(a, b string) bool {
	a, b = normalizeName(a), normalizeName(b)
	if a == "" || b == "" {
		return false
	}
	return matchr.JaroWinkler(a, b, false) >= nameMatchThreshold
}

// normalizeName lowercases and strips everything but letters, digits and
// spaces. Form guides decorate names with punctuation and parenthesized
// country suffixes; the whole parenthesized segment goes, not just the parens.
func normalizeName(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '(':
			depth++
		case r == ')':
			if depth > 0 {
				depth--
			}
		case depth > 0:
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// buildStat maps guide columns onto a stat row. Placeholder cells stay null.
func buildStat(runnerID int, row guideRow) *models.RunnerStat {
	stat := &models.RunnerStat{RunnerID: runnerID}

	str := func(title string, dest **string) {
		if v, ok := row[title]; ok && !nullish(v) {
			s := v
			*dest = &s
		}
	}
	flt := func(title string, dest **float64) {
		if v, ok := row[title]; ok && !nullish(v) {
			if f, err := strconv.ParseFloat(strings.NewReplacer("$", "", ",", "", "%", "").Replace(v), 64); err == nil {
				*dest = &f
			}
		}
	}
	num := func(title string, dest **int) {
		if v, ok := row[title]; ok && !nullish(v) {
			if n, err := strconv.Atoi(v); err == nil {
				*dest = &n
			}
		}
	}

	str("Form L3", &stat.Form3Starts)
	str("Form L5", &stat.Form5Starts)
	flt("Wgt", &stat.Weight)
	num("BP", &stat.BarrierPosition)
	flt("Car Best", &stat.CareerBest)
	flt("Sea Best", &stat.SeasonBest)
	flt("JRat", &stat.JockeyRating)
	flt("TRat", &stat.TrainerRating)
	num("DLW", &stat.DaysSinceLastWin)
	num("RLW", &stat.RunsSinceLastWin)
	num("DLR", &stat.DaysSinceLastRun)
	flt("EST", &stat.PredictedRating)
	flt("BRR", &stat.BaseRunRating)
	flt("BR12", &stat.BestRating12Months)
	flt("LSRat", &stat.LastStartRating)
	str("Car", &stat.WPSCareer)
	str("Crs", &stat.WPSCourse)
	str("Dist", &stat.WPSDistance)
	str("12m", &stat.WPS12Month)
	flt("NR", &stat.FinalRating)
	str("P", &stat.SpeedMapPace)
	flt("AES", &stat.EarlySpeedFigure)
	flt("AFS", &stat.FinalSpeedFigure)
	return stat
}

func nullish(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "--", "None", "none", "SCR", "nan", "NaN":
		return true
	}
	return false
}
