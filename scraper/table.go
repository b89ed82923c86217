// Package scraper extracts race data from the wagering site's rendered pages.
// Every extraction returns an explicit error describing which structural
// assumption failed; callers decide whether to retry, skip or abort.
package scraper

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// table is a parsed HTML table: header texts and row cells, whitespace-trimmed.
type table struct {
	header []string
	rows   [][]string
}

// parseTable reads the first table matching sel. Header cells come from the
// first row containing th elements (or the first row when there is none).
func parseTable(doc *goquery.Document, sel string) (*table, error) {
	node := doc.Find(sel).First()
	if node.Length() == 0 {
		return nil, fmt.Errorf("unable to find table %s", sel)
	}
	if !strings.HasPrefix(goquery.NodeName(node), "table") {
		inner := node.Find("table").First()
		if inner.Length() == 0 {
			return nil, fmt.Errorf("unable to find table inside %s", sel)
		}
		node = inner
	}

	t := &table{}
	node.Find("tr").Each(func(_ int, row *goquery.Selection) {
		if ths := row.Find("th"); ths.Length() > 0 && t.header == nil {
			ths.Each(func(_ int, cell *goquery.Selection) {
				t.header = append(t.header, clean(cell.Text()))
			})
			return
		}
		var cells []string
		row.Find("td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, clean(cell.Text()))
		})
		if len(cells) > 0 {
			t.rows = append(t.rows, cells)
		}
	})
	if t.header == nil && len(t.rows) > 0 {
		t.header = t.rows[0]
		t.rows = t.rows[1:]
	}
	if len(t.rows) == 0 {
		return nil, fmt.Errorf("table %s has no rows", sel)
	}
	return t, nil
}

// column returns the index of the named header or an error.
func (t *table) column(name string) (int, error) {
	for i, h := range t.header {
		if h == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("table has no column %q (header: %v)", name, t.header)
}

// cell returns row i's value in the named column.
func (t *table) cell(i int, name string) (string, error) {
	col, err := t.column(name)
	if err != nil {
		return "", err
	}
	if col >= len(t.rows[i]) {
		return "", fmt.Errorf("row %d has no column %q", i, name)
	}
	return t.rows[i][col], nil
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// isNullish reports page placeholders for missing values.
func isNullish(s string) bool {
	switch strings.TrimSpace(s) {
	case "", "-", "--", "None", "none", "SCR", "nan", "NaN":
		return true
	}
	return false
}

// parseOdds converts a displayed odds string to decimal odds. Fractional
// prices convert per '9/4' == (9 / 4) + 1; placeholders return nil.
func parseOdds(s string) (*float64, error) {
	if isNullish(s) {
		return nil, nil
	}
	s = strings.TrimSpace(s)
	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err := strconv.ParseFloat(strings.TrimSpace(num), 64)
		if err != nil {
			return nil, fmt.Errorf("cannot clean odds %q: %w", s, err)
		}
		d, err := strconv.ParseFloat(strings.TrimSpace(den), 64)
		if err != nil || d == 0 {
			return nil, fmt.Errorf("cannot clean odds %q: bad denominator", s)
		}
		v := n/d + 1
		return &v, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot clean odds %q: %w", s, err)
	}
	return &v, nil
}

// parseMoney strips currency formatting and converts to an integer amount.
// Placeholders return the given fallback.
func parseMoney(s string, fallback int) (int, error) {
	if isNullish(s) {
		return fallback, nil
	}
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot clean monetary value %q: %w", s, err)
	}
	return int(v), nil
}

// parseMoneyFloat is parseMoney keeping fractional amounts; placeholders
// return nil.
func parseMoneyFloat(s string) (*float64, error) {
	if isNullish(s) {
		return nil, nil
	}
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot clean monetary value %q: %w", s, err)
	}
	return &v, nil
}
