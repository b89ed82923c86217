// cmd/addtrack/main.go
// Creates or updates one track in the catalog. The missing-tracks report
// names the wagering site identifiers still needing an entry here.
//
// Usage:
//
//	go run ./cmd/addtrack -name "Gulfstream Park" -amwager GPX \
//	    -display "Gulfstream Park" -country USA -timezone America/New_York
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/padraicbc/amwatch/config"
	bundb "github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/models"
)

func main() {
	dbPath := flag.String("db", "amwatch.db", "SQLite database path")
	name := flag.String("name", "", "track name (required)")
	amwager := flag.String("amwager", "", "wagering site identifier (required)")
	display := flag.String("display", "", "track list display name (defaults to -name)")
	rns := flag.String("rns", "", "stats provider course identifier")
	country := flag.String("country", "", "country (required)")
	timezone := flag.String("timezone", "", "IANA timezone (required)")
	ignore := flag.Bool("ignore", false, "exclude the track from scraping")
	flag.Parse()

	if *name == "" || *amwager == "" || *country == "" || *timezone == "" {
		log.Fatal("-name, -amwager, -country and -timezone are required")
	}
	if _, err := time.LoadLocation(*timezone); err != nil {
		log.Fatal("bad timezone:", err)
	}
	if *display == "" {
		*display = *name
	}

	cfg := config.Load()
	cfg.DBPath = *dbPath
	db := bundb.Setup(cfg)
	defer db.Close()

	ctx := context.Background()
	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatal("create tables:", err)
	}

	track := &models.Track{
		Name:               *name,
		Amwager:            amwager,
		AmwagerListDisplay: display,
		Country:            *country,
		Timezone:           *timezone,
		Ignore:             *ignore,
	}
	if *rns != "" {
		track.RacingAndSports = rns
	}

	_, err := db.NewInsert().Model(track).
		On("CONFLICT (name) DO UPDATE").
		Set("amwager = EXCLUDED.amwager").
		Set("amwager_list_display = EXCLUDED.amwager_list_display").
		Set("racing_and_sports = EXCLUDED.racing_and_sports").
		Set("country = EXCLUDED.country").
		Set("timezone = EXCLUDED.timezone").
		Set("ignore = EXCLUDED.ignore").
		Exec(ctx)
	if err != nil {
		log.Fatal("insert track:", err)
	}

	fmt.Printf("track %q saved\n", *name)
}
