package model

import (
	"fmt"
	"time"
)

// ObsClass identifies the instrument configuration of a request. Each class
// carries a fixed setup overhead charged once per scheduled slot.
type ObsClass int

const (
	ClassImaging ObsClass = iota
	ClassLongslit
	ClassMask
)

// ParseObsClass converts a catalog obstype string into an ObsClass.
func ParseObsClass(s string) (ObsClass, error) {
	switch s {
	case "imaging":
		return ClassImaging, nil
	case "longslit":
		return ClassLongslit, nil
	case "mask":
		return ClassMask, nil
	default:
		return 0, fmt.Errorf("unknown obstype %q", s)
	}
}

func (c ObsClass) String() string {
	switch c {
	case ClassImaging:
		return "imaging"
	case ClassLongslit:
		return "longslit"
	case ClassMask:
		return "mask"
	default:
		return fmt.Sprintf("ObsClass(%d)", int(c))
	}
}

// Overhead returns the instrument setup time for the class. An unrecognized
// class is a configuration error and aborts the run.
func (c ObsClass) Overhead() (time.Duration, error) {
	switch c {
	case ClassImaging:
		return 120 * time.Second, nil
	case ClassLongslit, ClassMask:
		return 1800 * time.Second, nil
	default:
		return 0, fmt.Errorf("unknown observation class %d", int(c))
	}
}

// LunarCondition is the requester's tolerance for moon brightness.
type LunarCondition int

const (
	LunarBright LunarCondition = iota
	LunarGrey
	LunarDark
)

// ParseLunarCondition converts a catalog moon string into a LunarCondition.
func ParseLunarCondition(s string) (LunarCondition, error) {
	switch s {
	case "bright":
		return LunarBright, nil
	case "grey", "gray":
		return LunarGrey, nil
	case "dark":
		return LunarDark, nil
	default:
		return 0, fmt.Errorf("unknown moon condition %q", s)
	}
}

func (l LunarCondition) String() string {
	switch l {
	case LunarBright:
		return "bright"
	case LunarGrey:
		return "grey"
	case LunarDark:
		return "dark"
	default:
		return fmt.Sprintf("LunarCondition(%d)", int(l))
	}
}

// SkyPosition is a target location in decimal degrees.
type SkyPosition struct {
	RA  float64 // right ascension, 0..360
	Dec float64 // declination, -90..90
}

// ObservationRequest is one target's observation specification. Requests are
// loaded once per campaign and never mutated.
type ObservationRequest struct {
	ID                string
	Program           string // owning program (PI)
	Position          SkyPosition
	Visits            int     // requested visit count
	ExposureMinutes   float64 // exposure time per single exposure
	ExposuresPerVisit int
	Class             ObsClass
	Lunar             LunarCondition
	PositionAngle     float64 // rotator PA in degrees, meaningful for mask class only
	Priority          int     // lower is more important
}

// Validate checks numeric ranges and enumerated fields on load so failures
// surface before any weight computation.
func (r ObservationRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("request without id")
	}
	if r.Program == "" {
		return fmt.Errorf("request %s: missing program id", r.ID)
	}
	if r.Visits <= 0 {
		return fmt.Errorf("request %s: visit count must be positive", r.ID)
	}
	if r.ExposureMinutes <= 0 {
		return fmt.Errorf("request %s: exposure time must be positive", r.ID)
	}
	if r.ExposuresPerVisit <= 0 {
		return fmt.Errorf("request %s: exposures per visit must be positive", r.ID)
	}
	if r.Priority <= 0 {
		return fmt.Errorf("request %s: priority must be positive", r.ID)
	}
	if _, err := r.Class.Overhead(); err != nil {
		return fmt.Errorf("request %s: %w", r.ID, err)
	}
	return nil
}

// VisitDuration returns the on-sky time of a single visit, excluding the
// per-slot overhead.
func (r ObservationRequest) VisitDuration() time.Duration {
	secs := r.ExposureMinutes * 60 * float64(r.ExposuresPerVisit)
	return time.Duration(secs * float64(time.Second))
}

// SlotDuration returns the charged time for n visits observed back to back:
// the overhead applies once per slot, not per visit.
func (r ObservationRequest) SlotDuration(n int) (time.Duration, error) {
	overhead, err := r.Class.Overhead()
	if err != nil {
		return 0, err
	}
	return time.Duration(n)*r.VisitDuration() + overhead, nil
}

// RotatorPA returns the position angle used for the rotator limit check.
// Non-mask requests observe at PA 0.
func (r ObservationRequest) RotatorPA() float64 {
	if r.Class == ClassMask {
		return r.PositionAngle
	}
	return 0
}
