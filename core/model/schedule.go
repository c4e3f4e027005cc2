package model

import "time"

// ScheduleEntry is one committed slot in the output schedule. Entries are
// append-only; the campaign balancer keeps the set from the final pass.
type ScheduleEntry struct {
	Start     time.Time
	Duration  time.Duration
	RequestID string
	Visits    int // visits completed in this slot
}

// End returns the instant the slot finishes.
func (e ScheduleEntry) End() time.Time {
	return e.Start.Add(e.Duration)
}
