// cmd/loadtracks/main.go
// Bulk-loads the track catalog from a JSON file. Existing rows are left
// untouched, so re-running against the same file is safe.
//
// Usage:
//
//	go run ./cmd/loadtracks -db amwatch.db -file tracks.json
//
// The file is a JSON array of track objects:
//
//	[{"name": "Gulfstream Park", "amwager": "GPX",
//	  "amwagerListDisplay": "Gulfstream Park", "racingAndSports": "gulfstream-park",
//	  "country": "USA", "timezone": "America/New_York"}]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"github.com/uptrace/bun"

	"github.com/padraicbc/amwatch/config"
	bundb "github.com/padraicbc/amwatch/db"
	"github.com/padraicbc/amwatch/models"
)

const batchSize = 500

func main() {
	ctx := context.Background()

	dbPath := flag.String("db", "amwatch.db", "SQLite database path")
	file := flag.String("file", "", "JSON track catalog (required)")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}
	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	var tracks []models.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		log.Fatalf("parse catalog: %v", err)
	}
	for i, track := range tracks {
		if track.Name == "" || track.Country == "" || track.Timezone == "" {
			log.Fatalf("track %d: name, country and timezone are required", i)
		}
		if _, err := time.LoadLocation(track.Timezone); err != nil {
			log.Fatalf("track %q: bad timezone: %v", track.Name, err)
		}
	}

	cfg := config.Load()
	cfg.DBPath = *dbPath
	db := bundb.Setup(cfg)
	defer db.Close()

	if err := bundb.CreateTables(ctx, db); err != nil {
		log.Fatalf("create tables: %v", err)
	}

	total := 0
	for start := 0; start < len(tracks); start += batchSize {
		end := start + batchSize
		if end > len(tracks) {
			end = len(tracks)
		}
		n, err := bulkInsert(ctx, db, tracks[start:end])
		if err != nil {
			log.Fatalf("insert tracks: %v", err)
		}
		total += n
	}
	log.Printf("%d of %d tracks loaded (rest already present)", total, len(tracks))
}

// bulkInsert inserts a batch, skipping rows that already exist.
func bulkInsert(ctx context.Context, db *bun.DB, rows []models.Track) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	res, err := db.NewInsert().Model(&rows).On("CONFLICT DO NOTHING").Exec(ctx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
