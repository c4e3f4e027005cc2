package catalog

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"
)

// nightDateLayouts are the accepted spellings of a night date, most specific
// first.
var nightDateLayouts = []string{"2006/01/02", "2006/1/2"}

func parseNightDate(s string) (time.Time, error) {
	for _, layout := range nightDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// LoadDates reads the campaign night list, one date per line. Lines starting
// with # are comments.
func LoadDates(path string) ([]time.Time, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: dates: %w", err)
	}
	defer f.Close()

	var dates []time.Time
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		date, err := parseNightDate(line)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s:%d: %w", path, lineNo, err)
		}
		dates = append(dates, date)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(dates) == 0 {
		return nil, fmt.Errorf("catalog: %s: no nights listed", path)
	}
	return dates, nil
}
