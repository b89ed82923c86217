package dispatch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/olekukonko/tablewriter"
)

// MissingTrack is a wagering site listing with no catalog entry. These are
// the gaps to fill by hand before the track's meets can be scraped.
type MissingTrack struct {
	AmwagerID string
	Listing   string
}

// WriteMissingReport renders the catalog gap report and appends it to
// missing_tracks.log under logDir (stdout when logDir is empty).
func WriteMissingReport(logDir string, missing []MissingTrack) error {
	var out io.Writer = os.Stdout
	if logDir != "" {
		f, err := os.OpenFile(filepath.Join(logDir, "missing_tracks.log"),
			os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening missing tracks report: %w", err)
		}
		defer f.Close()
		out = f
	}

	if len(missing) == 0 {
		fmt.Fprintln(out, "no missing tracks")
		return nil
	}

	sort.Slice(missing, func(i, j int) bool { return missing[i].AmwagerID < missing[j].AmwagerID })

	table := tablewriter.NewWriter(out)
	table.Header("Amwager ID", "Listing")
	for _, m := range missing {
		table.Append(m.AmwagerID, m.Listing)
	}
	return table.Render()
}
