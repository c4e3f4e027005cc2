package ephemeris

import (
	"sort"
	"time"

	"github.com/richardjcool/MMTQueue/core/astro"
)

// Timeline is a time-indexed visibility series for one target. Times are
// sorted ascending; Observable and Parallactic are parallel to Times, with
// parallactic angles in degrees.
type Timeline struct {
	Times       []time.Time
	Observable  []bool
	Parallactic []float64
}

// Empty reports whether the timeline has no samples.
func (tl Timeline) Empty() bool { return len(tl.Times) == 0 }

// NearestIndex returns the index of the sample closest in absolute time to t.
// Lookups are nearest-neighbor, never interpolated.
func (tl Timeline) NearestIndex(t time.Time) int {
	n := len(tl.Times)
	i := sort.Search(n, func(j int) bool { return !tl.Times[j].Before(t) })
	if i == 0 {
		return 0
	}
	if i == n {
		return n - 1
	}
	before := t.Sub(tl.Times[i-1])
	after := tl.Times[i].Sub(t)
	if before <= after {
		return i - 1
	}
	return i
}

// ObservableAt reports whether the target is observable at t: the nearest
// sample's visibility flag must be set and the rotator must sit strictly
// inside the limit interval for the given position angle.
func (tl Timeline) ObservableAt(t time.Time, positionAngle, rotLow, rotHigh float64) bool {
	if tl.Empty() {
		return false
	}
	i := tl.NearestIndex(t)
	if !tl.Observable[i] {
		return false
	}
	rot := astro.RotatorAngle(tl.Parallactic[i], positionAngle)
	return astro.InRotatorLimits(rot, rotLow, rotHigh)
}
