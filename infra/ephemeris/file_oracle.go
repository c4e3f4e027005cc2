// Package ephemeris loads the precomputed ephemeris bundle that backs the
// core oracle interface. The bundle is produced offline for the campaign's
// date range and carries twilight bounds, per-target visibility series, and
// the lunar track.
package ephemeris

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	coreeph "github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/model"
)

const nightKeyLayout = "2006/01/02"

// TargetKey formats a sky position the way the bundle keys its visibility
// series.
func TargetKey(pos model.SkyPosition) string {
	return fmt.Sprintf("%.6f_%.6f", pos.RA, pos.Dec)
}

type bundleNight struct {
	EveningTwilight time.Time `json:"evening_twilight"`
	MorningTwilight time.Time `json:"morning_twilight"`
}

type bundleSeries struct {
	Times       []time.Time `json:"times"`
	Observable  []bool      `json:"observable"`
	Parallactic []float64   `json:"parallactic"`
}

type bundleMoon struct {
	Times []time.Time `json:"times"`
	RA    []float64   `json:"ra"`
	Dec   []float64   `json:"dec"`
	Age   []float64   `json:"age"`
	Rises []time.Time `json:"rises"`
	Sets  []time.Time `json:"sets"`
}

type bundle struct {
	Nights  map[string]bundleNight  `json:"nights"`
	Targets map[string]bundleSeries `json:"targets"`
	Moon    bundleMoon              `json:"moon"`
}

// FileOracle implements the core ephemeris oracle from a JSON bundle.
type FileOracle struct {
	nights  map[string]bundleNight
	targets map[string]coreeph.Timeline
	moon    bundleMoon
}

// LoadBundle reads and validates an ephemeris bundle.
func LoadBundle(path string) (*FileOracle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ephemeris: %w", err)
	}
	var b bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("ephemeris: %s: %w", path, err)
	}
	if len(b.Nights) == 0 {
		return nil, fmt.Errorf("ephemeris: %s: bundle holds no nights", path)
	}

	targets := make(map[string]coreeph.Timeline, len(b.Targets))
	for key, s := range b.Targets {
		if len(s.Times) != len(s.Observable) || len(s.Times) != len(s.Parallactic) {
			return nil, fmt.Errorf("ephemeris: %s: target %s: ragged series", path, key)
		}
		if !sort.SliceIsSorted(s.Times, func(i, j int) bool { return s.Times[i].Before(s.Times[j]) }) {
			return nil, fmt.Errorf("ephemeris: %s: target %s: series not time-ordered", path, key)
		}
		targets[key] = coreeph.Timeline{
			Times:       s.Times,
			Observable:  s.Observable,
			Parallactic: s.Parallactic,
		}
	}

	m := b.Moon
	if len(m.Times) != len(m.RA) || len(m.Times) != len(m.Dec) || len(m.Times) != len(m.Age) {
		return nil, fmt.Errorf("ephemeris: %s: ragged lunar track", path)
	}
	sort.Slice(m.Rises, func(i, j int) bool { return m.Rises[i].Before(m.Rises[j]) })
	sort.Slice(m.Sets, func(i, j int) bool { return m.Sets[i].Before(m.Sets[j]) })

	return &FileOracle{nights: b.Nights, targets: targets, moon: m}, nil
}

// TwilightBounds returns the night for the given date.
func (o *FileOracle) TwilightBounds(date time.Time) (coreeph.Night, error) {
	key := date.UTC().Format(nightKeyLayout)
	n, ok := o.nights[key]
	if !ok {
		return coreeph.Night{}, fmt.Errorf("ephemeris: no night %s in bundle", key)
	}
	return coreeph.Night{
		Date:            date,
		EveningTwilight: n.EveningTwilight,
		MorningTwilight: n.MorningTwilight,
	}, nil
}

// VisibilitySeries returns the target's samples covering the window plus an
// hour of slack, so end-of-slot checks just past the window still resolve.
func (o *FileOracle) VisibilitySeries(pos model.SkyPosition, from time.Time, window time.Duration) (coreeph.Timeline, error) {
	key := TargetKey(pos)
	full, ok := o.targets[key]
	if !ok {
		return coreeph.Timeline{}, fmt.Errorf("ephemeris: no series for target %s", key)
	}
	until := from.Add(window + time.Hour)

	lo := sort.Search(len(full.Times), func(i int) bool { return !full.Times[i].Before(from) })
	hi := sort.Search(len(full.Times), func(i int) bool { return full.Times[i].After(until) })
	if lo >= hi {
		return coreeph.Timeline{}, fmt.Errorf("ephemeris: target %s has no samples in [%s, %s]", key, from, until)
	}
	return coreeph.Timeline{
		Times:       full.Times[lo:hi],
		Observable:  full.Observable[lo:hi],
		Parallactic: full.Parallactic[lo:hi],
	}, nil
}

// MoonPosition returns the lunar RA and Dec in degrees at the nearest sample.
func (o *FileOracle) MoonPosition(t time.Time) (float64, float64) {
	i := nearestTime(o.moon.Times, t)
	if i < 0 {
		return 0, 0
	}
	return o.moon.RA[i], o.moon.Dec[i]
}

// MoonAge returns the days since new moon at the nearest sample.
func (o *FileOracle) MoonAge(t time.Time) float64 {
	i := nearestTime(o.moon.Times, t)
	if i < 0 {
		return 0
	}
	return o.moon.Age[i]
}

// IsMoonUp reports whether the most recent lunar event before t was a rise.
func (o *FileOracle) IsMoonUp(t time.Time) bool {
	lastRise, okRise := latestNotAfter(o.moon.Rises, t)
	lastSet, okSet := latestNotAfter(o.moon.Sets, t)
	switch {
	case !okRise:
		return false
	case !okSet:
		return true
	default:
		return lastRise.After(lastSet)
	}
}

// latestNotAfter returns the latest element of sorted times that is not after
// t.
func latestNotAfter(times []time.Time, t time.Time) (time.Time, bool) {
	i := sort.Search(len(times), func(i int) bool { return times[i].After(t) })
	if i == 0 {
		return time.Time{}, false
	}
	return times[i-1], true
}

// nearestTime returns the index of the sample closest to t, or -1 for an
// empty track.
func nearestTime(times []time.Time, t time.Time) int {
	if len(times) == 0 {
		return -1
	}
	i := sort.Search(len(times), func(i int) bool { return !times[i].Before(t) })
	if i == 0 {
		return 0
	}
	if i == len(times) {
		return len(times) - 1
	}
	if times[i].Sub(t) < t.Sub(times[i-1]) {
		return i
	}
	return i - 1
}
