// Package config loads application settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	// SQLite database path. Set from the CLI positional argument.
	DBPath string

	// Directory receiving the per-task log files.
	LogDir string

	// When set, only the track-catalog gap report is produced.
	MissingOnly bool

	// Wagering site and stats provider endpoints.
	BaseURL      string
	StatsBaseURL string

	// Cookie header for an authenticated wagering site session, e.g.
	// "PHPSESSID=abc; remember=1". The site has no scriptable login.
	Cookies string

	// Scheduling
	MaxPreppers int
	MaxWatchers int

	// Ops endpoint (localhost diagnostics). Empty disables it.
	OpsAddr string

	Debug bool
}

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win. CLI-surface
// values (db path, log dir, missing-only) are set by the caller afterwards.
func Load() *Config {
	v := newViper()

	// Defaults
	v.SetDefault("BASE_URL", "https://pro.amwager.com")
	v.SetDefault("STATS_BASE_URL", "https://www.racingandsports.com.au")
	v.SetDefault("MAX_PREPPERS", 4)
	v.SetDefault("MAX_WATCHERS", 12)
	v.SetDefault("OPS_ADDR", "127.0.0.1:9100")
	v.SetDefault("DEBUG", false)

	cfg := &Config{
		BaseURL:      v.GetString("BASE_URL"),
		StatsBaseURL: v.GetString("STATS_BASE_URL"),
		Cookies:      v.GetString("AMW_COOKIES"),
		MaxPreppers:  v.GetInt("MAX_PREPPERS"),
		MaxWatchers:  v.GetInt("MAX_WATCHERS"),
		OpsAddr:      v.GetString("OPS_ADDR"),
		Debug:        v.GetBool("DEBUG"),
	}

	cfg.validate()
	return cfg
}

// Tunables that are fixed rather than configured: the site behaviour they
// track does not vary by deployment.
const (
	// Dispatcher pass interval and watcher tick.
	SchedulePass  = 15 * time.Second
	WatchInterval = 10 * time.Second

	// A race enters watching once its estimated post is this close.
	PostLookahead = 15 * time.Minute

	// Page renders older than this force a refresh instead of a scrape.
	StaleAfterSeconds = 30

	// The shared session is refreshed after this much idle time.
	SessionRefreshAfter = 10 * time.Minute

	// Bounded wait for the page to focus the requested track/race.
	FocusWait = 10 * time.Second
)

func (c *Config) validate() {
	if c.MaxPreppers < 1 || c.MaxWatchers < 1 {
		log.Fatal("config: MAX_PREPPERS and MAX_WATCHERS must be at least 1")
	}
}

func newViper() *viper.Viper {
	// Silently load .env – OK if the file doesn't exist (production uses real env vars).
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using environment variables only")
	}

	v := viper.New()
	v.AutomaticEnv()
	return v
}
