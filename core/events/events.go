package events

import (
	"time"

	"github.com/richardjcool/MMTQueue/core/model"
)

// EntryScheduled is published each time the night scheduler commits a slot.
type EntryScheduled struct {
	Pass   int
	Entry  model.ScheduleEntry
	Weight float64
}

// IdleStep is published when no admissible candidate exists at an instant and
// the simulated clock jumps forward.
type IdleStep struct {
	Pass int
	Time time.Time
}

// NightDone is published after a night has been fully scheduled.
type NightDone struct {
	Pass    int
	Date    time.Time
	Entries int
}

// PassDone is published after a full campaign pass with its fairness outcome.
type PassDone struct {
	Pass           int
	Entries        int
	ProgramsServed int
	Programs       int
	AllServed      bool
}
