package metrics

import (
	"time"

	"github.com/richardjcool/MMTQueue/core/model"
)

// ScheduledSlot represents one committed schedule entry to be recorded.
type ScheduledSlot struct {
	Pass      int
	RequestID string
	Program   string
	Start     time.Time
	Duration  time.Duration
	Visits    int
	Weight    float64
}

// SchedulerSink records scheduling outcomes for observability purposes.
type SchedulerSink interface {
	RecordScheduledSlot(slot ScheduledSlot) error
}

// PassSummary captures the fairness outcome of one campaign pass.
type PassSummary struct {
	RunID          string
	Pass           int
	Entries        int
	IdleSteps      int
	Programs       int
	ProgramsServed int
	MeanUsage      float64 // mean usage ratio across requests
	StddevUsage    float64
	Time           time.Time
}

// PassRecorder is implemented by sinks able to record per-pass summaries.
type PassRecorder interface {
	RecordPassSummary(s PassSummary) error
}

// IdleRecorder is implemented by sinks that count idle-skip steps.
type IdleRecorder interface {
	RecordIdleStep(pass int, at time.Time) error
}

// UsageRecorder records per-program usage ratios at the end of a pass.
type UsageRecorder interface {
	RecordProgramUsage(program string, ratio float64) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordScheduledSlot(ScheduledSlot) error  { return nil }
func (NopSink) RecordPassSummary(PassSummary) error      { return nil }
func (NopSink) RecordIdleStep(int, time.Time) error      { return nil }
func (NopSink) RecordProgramUsage(string, float64) error { return nil }

// SlotFromEntry builds a ScheduledSlot from a schedule entry and its winning
// weight.
func SlotFromEntry(pass int, program string, e model.ScheduleEntry, weight float64) ScheduledSlot {
	return ScheduledSlot{
		Pass:      pass,
		RequestID: e.RequestID,
		Program:   program,
		Start:     e.Start,
		Duration:  e.Duration,
		Visits:    e.Visits,
		Weight:    weight,
	}
}
