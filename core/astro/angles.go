// Package astro provides the small spherical-geometry utilities shared by the
// weight engine and the visibility checks.
package astro

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const degToRad = math.Pi / 180

// smallAngleRad is the threshold below which the arccos separation loses
// precision and the planar approximation is used instead (~1 arcsec).
const smallAngleRad = 0.000004848

// Separation returns the angular distance in degrees between two sky
// positions given in degrees.
func Separation(ra1, dec1, ra2, dec2 float64) float64 {
	ra1 *= degToRad
	dec1 *= degToRad
	ra2 *= degToRad
	dec2 *= degToRad

	y := math.Cos(dec1) * math.Cos(dec2)
	z := math.Sin(dec1) * math.Sin(dec2)
	x := math.Cos(ra1 - ra2)

	rad := math.Acos(z + y*x)
	if rad < smallAngleRad {
		rad = math.Sqrt(math.Pow(math.Cos(dec1)*(ra1-ra2), 2) +
			math.Pow(dec1-dec2, 2))
	}
	return rad / degToRad
}

// RotatorAngle returns the instrument rotator angle in degrees for a given
// parallactic angle and mask position angle, wrapped into [-180, 180).
func RotatorAngle(parallactic, positionAngle float64) float64 {
	rot := parallactic - positionAngle
	if rot < -180 {
		rot += 360
	}
	return rot
}

// InRotatorLimits reports whether the rotator angle lies strictly inside the
// limit interval.
func InRotatorLimits(rot, low, high float64) bool {
	return rot > low && rot < high
}

// ParseHMS converts a sexagesimal "HH:MM:SS.s" right ascension string into
// decimal degrees (hours scaled by 15).
func ParseHMS(s string) (float64, error) {
	v, err := parseSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("right ascension %q: %w", s, err)
	}
	return v * 15, nil
}

// ParseDMS converts a sexagesimal "±DD:MM:SS.s" declination string into
// decimal degrees.
func ParseDMS(s string) (float64, error) {
	v, err := parseSexagesimal(s)
	if err != nil {
		return 0, fmt.Errorf("declination %q: %w", s, err)
	}
	return v, nil
}

func parseSexagesimal(s string) (float64, error) {
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1.0
		s = s[1:]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("expected three colon-separated fields")
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return sign * (vals[0] + vals[1]/60 + vals[2]/3600), nil
}
