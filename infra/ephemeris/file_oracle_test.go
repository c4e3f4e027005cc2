package ephemeris

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/richardjcool/MMTQueue/core/model"
)

var (
	evening = time.Date(2016, 3, 1, 2, 0, 0, 0, time.UTC)
	morning = evening.Add(9 * time.Hour)
	target  = model.SkyPosition{RA: 214.875, Dec: 52.825}
)

func writeBundle(t *testing.T, b bundle) string {
	t.Helper()
	data, err := json.Marshal(b)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "ephemeris.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleBundle() bundle {
	series := bundleSeries{}
	for ts := evening.Add(-time.Hour); !ts.After(morning.Add(2 * time.Hour)); ts = ts.Add(15 * time.Minute) {
		series.Times = append(series.Times, ts)
		series.Observable = append(series.Observable, true)
		series.Parallactic = append(series.Parallactic, 40.0)
	}
	moon := bundleMoon{
		Times: []time.Time{evening, morning},
		RA:    []float64{30, 32},
		Dec:   []float64{-10, -9},
		Age:   []float64{3.0, 3.4},
		Rises: []time.Time{evening.Add(3 * time.Hour)},
		Sets:  []time.Time{evening.Add(-2 * time.Hour), morning.Add(-time.Hour)},
	}
	return bundle{
		Nights: map[string]bundleNight{
			"2016/03/01": {EveningTwilight: evening, MorningTwilight: morning},
		},
		Targets: map[string]bundleSeries{TargetKey(target): series},
		Moon:    moon,
	}
}

func TestLoadBundleAndTwilight(t *testing.T) {
	oracle, err := LoadBundle(writeBundle(t, sampleBundle()))
	require.NoError(t, err)

	night, err := oracle.TwilightBounds(time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, evening, night.EveningTwilight)
	assert.Equal(t, morning, night.MorningTwilight)

	_, err = oracle.TwilightBounds(time.Date(2016, 3, 2, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err, "dates outside the bundle must fail loudly")
}

func TestVisibilitySeriesWindow(t *testing.T) {
	oracle, err := LoadBundle(writeBundle(t, sampleBundle()))
	require.NoError(t, err)

	tl, err := oracle.VisibilitySeries(target, evening, morning.Sub(evening))
	require.NoError(t, err)
	require.NotEmpty(t, tl.Times)

	assert.False(t, tl.Times[0].Before(evening), "no samples before the window")
	last := tl.Times[len(tl.Times)-1]
	// An hour of slack allows end-of-slot checks just past morning twilight.
	assert.False(t, last.After(morning.Add(time.Hour)))
	assert.True(t, last.After(morning.Add(-30*time.Minute)))

	_, err = oracle.VisibilitySeries(model.SkyPosition{RA: 1, Dec: 2}, evening, time.Hour)
	assert.Error(t, err, "unknown targets must fail loudly")
}

func TestMoonLookups(t *testing.T) {
	oracle, err := LoadBundle(writeBundle(t, sampleBundle()))
	require.NoError(t, err)

	ra, dec := oracle.MoonPosition(evening.Add(time.Minute))
	assert.Equal(t, 30.0, ra)
	assert.Equal(t, -10.0, dec)
	assert.InDelta(t, 3.4, oracle.MoonAge(morning), 1e-9)

	// Set at evening-2h, rise at evening+3h, set again at morning-1h.
	assert.False(t, oracle.IsMoonUp(evening))
	assert.True(t, oracle.IsMoonUp(evening.Add(4*time.Hour)))
	assert.False(t, oracle.IsMoonUp(morning.Add(-30*time.Minute)))
}

func TestLoadBundleRejectsRaggedSeries(t *testing.T) {
	b := sampleBundle()
	key := TargetKey(target)
	s := b.Targets[key]
	s.Observable = s.Observable[:1]
	b.Targets[key] = s
	_, err := LoadBundle(writeBundle(t, b))
	assert.Error(t, err)
}

func TestLoadBundleRejectsUnorderedSeries(t *testing.T) {
	b := sampleBundle()
	key := TargetKey(target)
	s := b.Targets[key]
	s.Times[0], s.Times[1] = s.Times[1], s.Times[0]
	b.Targets[key] = s
	_, err := LoadBundle(writeBundle(t, b))
	assert.Error(t, err)
}
