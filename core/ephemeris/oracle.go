// Package ephemeris defines the boundary to the ephemeris oracle and the
// sampled timelines the scheduler queries during a night.
package ephemeris

import (
	"time"

	"github.com/richardjcool/MMTQueue/core/model"
)

// Night bounds the schedulable window of one calendar date.
type Night struct {
	Date            time.Time
	EveningTwilight time.Time
	MorningTwilight time.Time
}

// Length returns the schedulable night length.
func (n Night) Length() time.Duration {
	return n.MorningTwilight.Sub(n.EveningTwilight)
}

// MoonEphemeris answers lunar queries at arbitrary instants.
type MoonEphemeris interface {
	// MoonPosition returns the lunar RA/Dec in degrees.
	MoonPosition(t time.Time) (ra, dec float64)
	// MoonAge returns the signed moon age in days.
	MoonAge(t time.Time) float64
	// IsMoonUp reports whether the most recent horizon event before t was a
	// rise rather than a set.
	IsMoonUp(t time.Time) bool
}

// Oracle is the external ephemeris collaborator. All series are materialized
// before scheduling begins; no call blocks on I/O during a run.
type Oracle interface {
	MoonEphemeris

	// TwilightBounds returns the schedulable window for a calendar date.
	TwilightBounds(date time.Time) (Night, error)
	// VisibilitySeries returns the sampled visibility timeline for a target
	// over the given window.
	VisibilitySeries(pos model.SkyPosition, from time.Time, window time.Duration) (Timeline, error)
}
