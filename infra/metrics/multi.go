package metrics

import (
	"time"

	coremetrics "github.com/richardjcool/MMTQueue/core/metrics"
)

// MultiSink fans scheduling records out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.SchedulerSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.SchedulerSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduledSlot forwards the slot to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordScheduledSlot(slot coremetrics.ScheduledSlot) error {
	for _, s := range m.Sinks {
		if err := s.RecordScheduledSlot(slot); err != nil {
			return err
		}
	}
	return nil
}

// RecordIdleStep forwards idle steps when supported by the sink.
func (m *MultiSink) RecordIdleStep(pass int, at time.Time) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.IdleRecorder); ok {
			if err := rec.RecordIdleStep(pass, at); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPassSummary forwards pass summaries when supported by the sink.
func (m *MultiSink) RecordPassSummary(sum coremetrics.PassSummary) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.PassRecorder); ok {
			if err := rec.RecordPassSummary(sum); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordProgramUsage forwards usage ratios when supported by the sink.
func (m *MultiSink) RecordProgramUsage(program string, ratio float64) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.UsageRecorder); ok {
			if err := rec.RecordProgramUsage(program, ratio); err != nil {
				return err
			}
		}
	}
	return nil
}
