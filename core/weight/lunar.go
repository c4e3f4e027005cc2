package weight

import (
	"math"
	"time"

	"github.com/richardjcool/MMTQueue/core/astro"
	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/model"
)

// Lunar admissibility thresholds. Separations in degrees, ages in days.
const (
	greyMaxAge    = 9.0
	darkMaxAge    = 4.5
	minSeparation = 90.0
	tooCloseDeg   = 10.0
)

// lunarFlag returns 1 when the projected window satisfies the request's lunar
// condition and 0 otherwise. The moon counts as up when it is up at either
// end of the window; the separation is averaged over both ends. Anything
// closer than tooCloseDeg is rejected regardless of condition.
func lunarFlag(req *model.ObservationRequest, start, end time.Time, moon ephemeris.MoonEphemeris) float64 {
	moonUp := moon.IsMoonUp(start) || moon.IsMoonUp(end)
	age := moon.MoonAge(start)

	ra1, dec1 := moon.MoonPosition(start)
	ra2, dec2 := moon.MoonPosition(end)
	d1 := astro.Separation(ra1, dec1, req.Position.RA, req.Position.Dec)
	d2 := astro.Separation(ra2, dec2, req.Position.RA, req.Position.Dec)
	dist := (d1 + d2) / 2

	flag := 0.0
	switch {
	case req.Lunar == model.LunarBright || !moonUp:
		// Bright time was requested, or the moon stays down throughout.
		flag = 1
	case req.Lunar == model.LunarGrey && math.Abs(age) < greyMaxAge && dist > minSeparation:
		flag = 1
	case req.Lunar == model.LunarDark && math.Abs(age) < darkMaxAge && dist > minSeparation:
		flag = 1
	}

	if dist < tooCloseDeg {
		flag = 0
	}
	return flag
}
