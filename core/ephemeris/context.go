package ephemeris

import (
	"fmt"
	"time"

	"github.com/richardjcool/MMTQueue/core/model"
)

// NightContext holds everything the weight engine needs for one night: the
// twilight bounds, one timeline per request id, and the lunar ephemeris. It
// is read-only for the duration of the night.
type NightContext struct {
	Night     Night
	Timelines map[string]Timeline
	Moon      MoonEphemeris
}

// BuildNightContext materializes the per-target timelines for a date by
// querying the oracle once per request over the full twilight window.
func BuildNightContext(oracle Oracle, date time.Time, requests []model.ObservationRequest) (*NightContext, error) {
	night, err := oracle.TwilightBounds(date)
	if err != nil {
		return nil, fmt.Errorf("twilight bounds for %s: %w", date.Format("2006/01/02"), err)
	}
	ctx := &NightContext{
		Night:     night,
		Timelines: make(map[string]Timeline, len(requests)),
		Moon:      oracle,
	}
	for _, r := range requests {
		tl, err := oracle.VisibilitySeries(r.Position, night.EveningTwilight, night.Length())
		if err != nil {
			return nil, fmt.Errorf("visibility series for %s: %w", r.ID, err)
		}
		ctx.Timelines[r.ID] = tl
	}
	return ctx, nil
}
