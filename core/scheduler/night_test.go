package scheduler

import (
	"math/rand"
	"testing"
	"time"

	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/model"
	"github.com/richardjcool/MMTQueue/core/weight"
)

type fakeMoon struct {
	up  bool
	age float64
	ra  float64
	dec float64
}

func (m fakeMoon) MoonPosition(time.Time) (float64, float64) { return m.ra, m.dec }
func (m fakeMoon) MoonAge(time.Time) float64                 { return m.age }
func (m fakeMoon) IsMoonUp(time.Time) bool                   { return m.up }

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

var eveningTwilight = time.Date(2016, 3, 1, 2, 0, 0, 0, time.UTC)

func fourHourNight() ephemeris.Night {
	return ephemeris.Night{
		Date:            eveningTwilight,
		EveningTwilight: eveningTwilight,
		MorningTwilight: eveningTwilight.Add(4 * time.Hour),
	}
}

func alwaysObservable(night ephemeris.Night) ephemeris.Timeline {
	var tl ephemeris.Timeline
	for t := night.EveningTwilight; !t.After(night.MorningTwilight.Add(time.Hour)); t = t.Add(5 * time.Minute) {
		tl.Times = append(tl.Times, t)
		tl.Observable = append(tl.Observable, true)
		tl.Parallactic = append(tl.Parallactic, 0)
	}
	return tl
}

func nightContext(requests []model.ObservationRequest, moon fakeMoon) *ephemeris.NightContext {
	night := fourHourNight()
	ctx := &ephemeris.NightContext{
		Night:     night,
		Timelines: make(map[string]ephemeris.Timeline, len(requests)),
		Moon:      moon,
	}
	for _, r := range requests {
		ctx.Timelines[r.ID] = alwaysObservable(night)
	}
	return ctx
}

// hourLongRequest fits exactly one hour: two 29-minute visits plus the
// 2-minute imaging overhead.
func hourLongRequest(id, program string, priority int, lunar model.LunarCondition, ra float64) model.ObservationRequest {
	return model.ObservationRequest{
		ID:                id,
		Program:           program,
		Position:          model.SkyPosition{RA: ra, Dec: 30},
		Visits:            2,
		ExposureMinutes:   29,
		ExposuresPerVisit: 1,
		Class:             model.ClassImaging,
		Lunar:             lunar,
		Priority:          priority,
	}
}

func newScheduler(t *testing.T, table *model.CompletionTable, seed int64) *NightScheduler {
	t.Helper()
	s, err := NewNightScheduler(weight.NewEngine(), table, rand.New(rand.NewSource(seed)), 0, nopLogger{}, nil, nil)
	if err != nil {
		t.Fatalf("scheduler: %v", err)
	}
	return s
}

func checkInvariants(t *testing.T, table *model.CompletionTable, requests []model.ObservationRequest) {
	t.Helper()
	for _, r := range requests {
		st := table.Get(r.ID)
		if st.VisitsDone > r.Visits {
			t.Errorf("%s: visits done %d exceeds requested %d", r.ID, st.VisitsDone, r.Visits)
		}
		if st.Complete != (st.VisitsDone >= r.Visits) {
			t.Errorf("%s: complete=%v inconsistent with %d/%d visits", r.ID, st.Complete, st.VisitsDone, r.Visits)
		}
	}
}

func TestNightTwoPrograms(t *testing.T) {
	requests := []model.ObservationRequest{
		hourLongRequest("A", "P1", 1, model.LunarBright, 100),
		hourLongRequest("B", "P2", 5, model.LunarDark, 200),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s := newScheduler(t, table, 1)

	entries, idle, err := s.Run(nightContext(requests, fakeMoon{up: false, ra: 0, dec: -80}), requests)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if idle != 0 {
		t.Fatalf("expected zero idle steps, got %d", idle)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries got %d", len(entries))
	}
	if entries[0].RequestID != "A" {
		t.Fatalf("priority 1 request must win first, got %s", entries[0].RequestID)
	}
	for _, e := range entries {
		if e.Duration <= 0 {
			t.Fatalf("entry %s has non-positive duration", e.RequestID)
		}
	}
	if !table.Get("A").Complete || !table.Get("B").Complete {
		t.Fatal("both requests should be complete")
	}
	checkInvariants(t, table, requests)

	// One hour charged to each program.
	if got := table.Get("A").HoursUsed; got < 0.99 || got > 1.01 {
		t.Fatalf("P1 hours used %v, expected ~1", got)
	}
	if got := table.Get("B").HoursUsed; got < 0.99 || got > 1.01 {
		t.Fatalf("P2 hours used %v, expected ~1", got)
	}
}

func TestNightAllCompleteIsEmpty(t *testing.T) {
	requests := []model.ObservationRequest{
		hourLongRequest("A", "P1", 1, model.LunarBright, 100),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if err := table.RecordVisits("A", 2, 2); err != nil {
		t.Fatalf("record: %v", err)
	}
	s := newScheduler(t, table, 1)

	entries, idle, err := s.Run(nightContext(requests, fakeMoon{}), requests)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("completed night must produce no entries, got %d", len(entries))
	}
	if idle != 0 {
		t.Fatalf("completed night must not idle-step, got %d", idle)
	}
}

func TestNightIdleSkipsDeadTime(t *testing.T) {
	requests := []model.ObservationRequest{
		hourLongRequest("A", "P1", 1, model.LunarBright, 100),
	}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s := newScheduler(t, table, 1)

	ctx := nightContext(requests, fakeMoon{})
	tl := ctx.Timelines["A"]
	// Target rises two hours into the night.
	for i := range tl.Times {
		if tl.Times[i].Before(eveningTwilight.Add(2 * time.Hour)) {
			tl.Observable[i] = false
		}
	}

	entries, idle, err := s.Run(ctx, requests)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	// Six 20-minute skips cover the dead two hours.
	if idle != 6 {
		t.Fatalf("expected 6 idle steps got %d", idle)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry got %d", len(entries))
	}
	if entries[0].Start.Before(eveningTwilight.Add(2 * time.Hour)) {
		t.Fatalf("entry starts during dead time: %v", entries[0].Start)
	}
	checkInvariants(t, table, requests)
}

func TestNightPartialFitNeverOvershoots(t *testing.T) {
	req := model.ObservationRequest{
		ID:                "big",
		Program:           "P1",
		Position:          model.SkyPosition{RA: 100, Dec: 30},
		Visits:            6,
		ExposureMinutes:   60,
		ExposuresPerVisit: 1,
		Class:             model.ClassImaging,
		Lunar:             model.LunarBright,
		Priority:          1,
	}
	requests := []model.ObservationRequest{req}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 10})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s := newScheduler(t, table, 1)

	_, _, err = s.Run(nightContext(requests, fakeMoon{}), requests)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	st := table.Get("big")
	if st.VisitsDone > req.Visits {
		t.Fatalf("visits done %d exceeds requested %d", st.VisitsDone, req.Visits)
	}
	if st.Complete {
		t.Fatal("six hour-long visits cannot complete in a four hour night")
	}
	checkInvariants(t, table, requests)
}

func TestNightDuplicateRequestFatal(t *testing.T) {
	a := hourLongRequest("A", "P1", 1, model.LunarBright, 100)
	requests := []model.ObservationRequest{a, a}
	table, err := model.NewCompletionTable([]model.ObservationRequest{a}, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s := newScheduler(t, table, 1)

	if _, _, err := s.Run(nightContext(requests, fakeMoon{}), requests); err == nil {
		t.Fatal("expected fatal error for duplicate request identity")
	}
}

func TestNightUnknownClassFatal(t *testing.T) {
	req := hourLongRequest("A", "P1", 1, model.LunarBright, 100)
	req.Class = model.ObsClass(99)
	requests := []model.ObservationRequest{req}
	table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2})
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	s := newScheduler(t, table, 1)

	if _, _, err := s.Run(nightContext(requests, fakeMoon{}), requests); err == nil {
		t.Fatal("expected fatal error for unknown observation class")
	}
}

func TestTieBreakDeterministicPerSeed(t *testing.T) {
	runOnce := func(seed int64) string {
		requests := []model.ObservationRequest{
			hourLongRequest("A", "P1", 1, model.LunarBright, 100),
			hourLongRequest("B", "P2", 1, model.LunarBright, 200),
		}
		table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
		if err != nil {
			t.Fatalf("table: %v", err)
		}
		s := newScheduler(t, table, seed)
		entries, _, err := s.Run(nightContext(requests, fakeMoon{}), requests)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		if len(entries) == 0 {
			t.Fatal("expected at least one entry")
		}
		return entries[0].RequestID
	}

	for seed := int64(0); seed < 5; seed++ {
		first := runOnce(seed)
		for i := 0; i < 3; i++ {
			if got := runOnce(seed); got != first {
				t.Fatalf("seed %d: winner changed between runs: %s vs %s", seed, first, got)
			}
		}
	}
}

func TestTieBreakRoughlyUniform(t *testing.T) {
	counts := map[string]int{}
	const trials = 200
	for seed := int64(0); seed < trials; seed++ {
		requests := []model.ObservationRequest{
			hourLongRequest("A", "P1", 1, model.LunarBright, 100),
			hourLongRequest("B", "P2", 1, model.LunarBright, 200),
		}
		table, err := model.NewCompletionTable(requests, map[string]float64{"P1": 2, "P2": 2})
		if err != nil {
			t.Fatalf("table: %v", err)
		}
		s := newScheduler(t, table, seed)
		entries, _, err := s.Run(nightContext(requests, fakeMoon{}), requests)
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		counts[entries[0].RequestID]++
	}
	// Expect ~100 each; anything under 60 of 200 is far outside chance.
	if counts["A"] < 60 || counts["B"] < 60 {
		t.Fatalf("tie-break skewed: %v", counts)
	}
}
