package catalog

import (
	"bufio"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/richardjcool/MMTQueue/core/ephemeris"
)

// TwilightSource provides night bounds for allocation accounting.
type TwilightSource interface {
	TwilightBounds(date time.Time) (ephemeris.Night, error)
}

// LoadAllocations reads the allocated-time log and returns the granted hours
// per program. Each line is "date program"; a night's grant is its
// twilight-to-twilight length. Nights within a day of the campaign bounds
// belong to the current run and are excluded.
func LoadAllocations(path string, src TwilightSource, startDay, endDay time.Time) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: allocated time: %w", err)
	}
	defer f.Close()

	allocated := make(map[string]float64)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			return nil, fmt.Errorf("catalog: %s:%d: expected \"date program\"", path, lineNo)
		}
		date, err := parseNightDate(fields[0])
		if err != nil {
			return nil, fmt.Errorf("catalog: %s:%d: %w", path, lineNo, err)
		}
		if withinDay(date, startDay) || withinDay(date, endDay) {
			continue
		}
		night, err := src.TwilightBounds(date)
		if err != nil {
			return nil, fmt.Errorf("catalog: %s:%d: %w", path, lineNo, err)
		}
		allocated[fields[1]] += night.Length().Hours()
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return allocated, nil
}

func withinDay(a, b time.Time) bool {
	return math.Abs(a.Sub(b).Seconds()) < 24*3600
}
