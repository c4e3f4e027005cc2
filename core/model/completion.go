package model

import "fmt"

// CompletionState tracks scheduling progress for one request. HoursUsed and
// HoursAllocated are shared across every request of the owning program, so a
// charge against one request moves the usage ratio of all of them.
type CompletionState struct {
	RequestID      string
	Program        string
	VisitsDone     int
	HoursUsed      float64
	HoursAllocated float64
	Complete       bool
	DampingWeight  float64 // carried between passes, initial 1.0
	UsageRatio     float64 // HoursUsed / HoursAllocated, 0 when unset
}

// Baseline is an immutable snapshot of completion progress used to reset the
// table between balancer passes.
type Baseline struct {
	states map[string]CompletionState
}

// CompletionTable owns the per-request completion states for a campaign run.
// The greedy scheduler is the only writer.
type CompletionTable struct {
	order  []string
	states map[string]*CompletionState
}

// NewCompletionTable builds a table with one zeroed state per request.
// Allocations map program ids to granted campaign hours; a program missing
// from the map receives a near-zero allocation so the usage ratio stays
// finite.
func NewCompletionTable(requests []ObservationRequest, allocations map[string]float64) (*CompletionTable, error) {
	t := &CompletionTable{states: make(map[string]*CompletionState, len(requests))}
	for _, r := range requests {
		if _, dup := t.states[r.ID]; dup {
			return nil, fmt.Errorf("request %s appears more than once in the catalog", r.ID)
		}
		alloc, ok := allocations[r.Program]
		if !ok || alloc <= 0 {
			alloc = 0.01
		}
		t.states[r.ID] = &CompletionState{
			RequestID:      r.ID,
			Program:        r.Program,
			HoursAllocated: alloc,
			DampingWeight:  1.0,
		}
		t.order = append(t.order, r.ID)
	}
	return t, nil
}

// Get returns the state for a request id, or nil when unknown.
func (t *CompletionTable) Get(id string) *CompletionState {
	return t.states[id]
}

// Len returns the number of tracked requests.
func (t *CompletionTable) Len() int { return len(t.order) }

// Each calls fn for every state in catalog order.
func (t *CompletionTable) Each(fn func(*CompletionState)) {
	for _, id := range t.order {
		fn(t.states[id])
	}
}

// Charge adds hours to every request owned by the program and recomputes
// their usage ratios.
func (t *CompletionTable) Charge(program string, hours float64) {
	for _, id := range t.order {
		st := t.states[id]
		if st.Program != program {
			continue
		}
		st.HoursUsed += hours
		st.UsageRatio = st.HoursUsed / st.HoursAllocated
	}
}

// RecordVisits credits n completed visits to the request and marks it
// complete once the requested count is reached. Completion never exceeds the
// requested count.
func (t *CompletionTable) RecordVisits(id string, n, requested int) error {
	st := t.states[id]
	if st == nil {
		return fmt.Errorf("no completion state for request %s", id)
	}
	st.VisitsDone += n
	if st.VisitsDone > requested {
		st.VisitsDone = requested
	}
	if st.VisitsDone >= requested {
		st.Complete = true
	}
	return nil
}

// AllComplete reports whether every request has been fully observed.
func (t *CompletionTable) AllComplete() bool {
	for _, id := range t.order {
		if !t.states[id].Complete {
			return false
		}
	}
	return true
}

// ServedPrograms reports, per program, whether every one of its requests is
// complete.
func (t *CompletionTable) ServedPrograms() map[string]bool {
	served := make(map[string]bool)
	for _, id := range t.order {
		st := t.states[id]
		if done, seen := served[st.Program]; !seen {
			served[st.Program] = st.Complete
		} else {
			served[st.Program] = done && st.Complete
		}
	}
	return served
}

// Snapshot captures the current progress as the campaign baseline.
func (t *CompletionTable) Snapshot() Baseline {
	b := Baseline{states: make(map[string]CompletionState, len(t.states))}
	for id, st := range t.states {
		b.states[id] = *st
	}
	return b
}

// Reset restores progress fields from the baseline while preserving each
// request's learned damping weight.
func (t *CompletionTable) Reset(b Baseline) {
	for id, st := range t.states {
		base, ok := b.states[id]
		if !ok {
			continue
		}
		damping := st.DampingWeight
		*st = base
		st.DampingWeight = damping
	}
}
