package campaign

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/core/model"
)

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

// fakeOracle serves a 4-hour night per date with every target visible except
// positions listed in hidden. The moon stays down and far away.
type fakeOracle struct {
	hidden map[float64]bool // keyed by RA
}

func (o fakeOracle) TwilightBounds(date time.Time) (ephemeris.Night, error) {
	evening := date.Add(2 * time.Hour)
	return ephemeris.Night{
		Date:            date,
		EveningTwilight: evening,
		MorningTwilight: evening.Add(4 * time.Hour),
	}, nil
}

func (o fakeOracle) VisibilitySeries(pos model.SkyPosition, from time.Time, window time.Duration) (ephemeris.Timeline, error) {
	var tl ephemeris.Timeline
	visible := !o.hidden[pos.RA]
	for t := from; !t.After(from.Add(window + time.Hour)); t = t.Add(5 * time.Minute) {
		tl.Times = append(tl.Times, t)
		tl.Observable = append(tl.Observable, visible)
		tl.Parallactic = append(tl.Parallactic, 0)
	}
	return tl, nil
}

func (fakeOracle) MoonPosition(time.Time) (float64, float64) { return 0, -80 }
func (fakeOracle) MoonAge(time.Time) float64                 { return 0 }
func (fakeOracle) IsMoonUp(time.Time) bool                   { return false }

type recordingSink struct {
	metrics.NopSink
	slots     []metrics.ScheduledSlot
	summaries []metrics.PassSummary
}

func (s *recordingSink) RecordScheduledSlot(slot metrics.ScheduledSlot) error {
	s.slots = append(s.slots, slot)
	return nil
}

func (s *recordingSink) RecordPassSummary(sum metrics.PassSummary) error {
	s.summaries = append(s.summaries, sum)
	return nil
}

func campaignRequest(id, program string, ra float64) model.ObservationRequest {
	return model.ObservationRequest{
		ID:                id,
		Program:           program,
		Position:          model.SkyPosition{RA: ra, Dec: 30},
		Visits:            2,
		ExposureMinutes:   29,
		ExposuresPerVisit: 1,
		Class:             model.ClassImaging,
		Lunar:             model.LunarBright,
		Priority:          1,
	}
}

func seededConfig() Config {
	cfg := Config{Seed: 42}
	cfg.SetDefaults()
	return cfg
}

func TestBalancerEarlyStop(t *testing.T) {
	requests := []model.ObservationRequest{
		campaignRequest("A", "P1", 100),
		campaignRequest("B", "P2", 200),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	sink := &recordingSink{}
	b, err := New(seededConfig(), fakeOracle{}, requests, table, nopLogger{}, sink, nil)
	if err != nil {
		t.Fatalf("balancer: %v", err)
	}
	if b.RunID() == "" {
		t.Fatal("run id must be set")
	}

	night := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := b.Run(context.Background(), []time.Time{night})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(schedule) != 2 {
		t.Fatalf("expected 2 entries got %d", len(schedule))
	}
	// Everything served on the first pass stops the iteration.
	if len(sink.summaries) != 1 {
		t.Fatalf("expected 1 pass, got %d", len(sink.summaries))
	}
	if !table.AllComplete() {
		t.Fatal("table should be fully complete")
	}

	// Served programs are sharply damped: one charged hour of two allocated.
	for _, id := range []string{"A", "B"} {
		st := table.Get(id)
		if math.Abs(st.DampingWeight-0.05) > 1e-9 {
			t.Fatalf("%s: expected damping 0.05 got %v", id, st.DampingWeight)
		}
	}
}

func TestBalancerRunsAllPassesWhenUnderServed(t *testing.T) {
	requests := []model.ObservationRequest{
		campaignRequest("A", "P1", 100),
		campaignRequest("B", "P2", 200),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	sink := &recordingSink{}
	// B's target never rises.
	b, err := New(seededConfig(), fakeOracle{hidden: map[float64]bool{200: true}}, requests, table, nopLogger{}, sink, nil)
	if err != nil {
		t.Fatalf("balancer: %v", err)
	}

	night := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	schedule, err := b.Run(context.Background(), []time.Time{night})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(sink.summaries) != 5 {
		t.Fatalf("expected all 5 passes, got %d", len(sink.summaries))
	}
	for _, e := range schedule {
		if e.RequestID == "B" {
			t.Fatal("hidden target must never be scheduled")
		}
	}
	// The schedule kept is the final pass's, not an accumulation.
	if len(schedule) != 1 {
		t.Fatalf("expected 1 entry from the final pass, got %d", len(schedule))
	}

	// Never-charged program bottoms out at the damping floor; the served one
	// keeps being suppressed.
	if got := table.Get("B").DampingWeight; math.Abs(got-dampingFloor) > 1e-12 {
		t.Fatalf("B: expected damping floor %v got %v", dampingFloor, got)
	}
	if got := table.Get("A").DampingWeight; math.Abs(got-0.05) > 1e-9 {
		t.Fatalf("A: expected damping 0.05 got %v", got)
	}
}

func TestBalancerResetsBetweenPasses(t *testing.T) {
	requests := []model.ObservationRequest{
		campaignRequest("A", "P1", 100),
		campaignRequest("B", "P2", 200),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	// Ledger-seeded baseline: A already has one visit done.
	if err := table.RecordVisits("A", 1, 2); err != nil {
		t.Fatalf("seed: %v", err)
	}
	table.Charge("P1", 0.5)

	sink := &recordingSink{}
	b, err := New(seededConfig(), fakeOracle{hidden: map[float64]bool{200: true}}, requests, table, nopLogger{}, sink, nil)
	if err != nil {
		t.Fatalf("balancer: %v", err)
	}
	night := time.Date(2016, 3, 1, 0, 0, 0, 0, time.UTC)
	if _, err := b.Run(context.Background(), []time.Time{night}); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Every pass restarts from the seeded baseline, so A never exceeds its
	// requested two visits even after five passes.
	st := table.Get("A")
	if st.VisitsDone > 2 {
		t.Fatalf("baseline leaked across passes: %d visits done", st.VisitsDone)
	}
	if !st.Complete {
		t.Fatal("A should complete within each pass")
	}
}

func TestBalancerNoNights(t *testing.T) {
	requests := []model.ObservationRequest{campaignRequest("A", "P1", 100)}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	b, err := New(seededConfig(), fakeOracle{}, requests, table, nopLogger{}, nil, nil)
	if err != nil {
		t.Fatalf("balancer: %v", err)
	}
	if _, err := b.Run(context.Background(), nil); err == nil {
		t.Fatal("expected error for empty campaign")
	}
}

func TestBalancerRejectsInvalidCatalog(t *testing.T) {
	bad := campaignRequest("A", "P1", 100)
	bad.Visits = 0
	table, err := model.NewCompletionTable([]model.ObservationRequest{bad}, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if _, err := New(seededConfig(), fakeOracle{}, []model.ObservationRequest{bad}, table, nopLogger{}, nil, nil); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
	if cfg.Passes != 5 || cfg.IdleStepMinutes != 20 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	bad := Config{Passes: 3, IdleStepMinutes: 20, RotatorLowDeg: 170, RotatorHighDeg: 160}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected rotator interval error")
	}
}
