// Package scheduler implements the greedy within-night selection loop. Each
// iteration scores every open request at the current simulated time, commits
// the heaviest candidate, and advances the clock; dead intervals are skipped
// in fixed steps until morning twilight.
package scheduler

import (
	"fmt"
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/events"
	"github.com/richardjcool/MMTQueue/core/logger"
	"github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/core/model"
	"github.com/richardjcool/MMTQueue/core/weight"
	"github.com/richardjcool/MMTQueue/internal/eventbus"
)

// DefaultIdleStep is how far the simulated clock jumps when no candidate is
// admissible at the current instant.
const DefaultIdleStep = 20 * time.Minute

// NightScheduler drives one night of the campaign. It is the only writer of
// the completion table while running.
type NightScheduler struct {
	engine   *weight.Engine
	table    *model.CompletionTable
	rng      *rand.Rand
	idleStep time.Duration
	log      logger.Logger
	sink     metrics.SchedulerSink
	bus      eventbus.EventBus
	pass     int
}

// NewNightScheduler creates a scheduler for one campaign run. The random
// source drives tie-breaking and must be seeded by the caller for
// reproducible schedules. sink and bus may be nil.
func NewNightScheduler(engine *weight.Engine, table *model.CompletionTable, rng *rand.Rand, idleStep time.Duration, log logger.Logger, sink metrics.SchedulerSink, bus eventbus.EventBus) (*NightScheduler, error) {
	if engine == nil || table == nil || rng == nil || log == nil {
		return nil, fmt.Errorf("scheduler: nil parameter provided to NewNightScheduler")
	}
	if idleStep <= 0 {
		idleStep = DefaultIdleStep
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &NightScheduler{
		engine:   engine,
		table:    table,
		rng:      rng,
		idleStep: idleStep,
		log:      log,
		sink:     sink,
		bus:      bus,
	}, nil
}

// SetPass tags published events and log lines with the current balancer pass.
func (s *NightScheduler) SetPass(pass int) { s.pass = pass }

// Run schedules one night. It returns the committed entries, the number of
// idle steps taken, and a fatal error if the request table is misconfigured.
func (s *NightScheduler) Run(nightCtx *ephemeris.NightContext, requests []model.ObservationRequest) ([]model.ScheduleEntry, int, error) {
	seen := make(map[string]struct{}, len(requests))
	for _, r := range requests {
		if _, dup := seen[r.ID]; dup {
			return nil, 0, fmt.Errorf("request %s appears more than once in the active table", r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	var (
		entries   []model.ScheduleEntry
		idleSteps int
		prev      *model.SkyPosition
	)
	current := nightCtx.Night.EveningTwilight

	for current.Before(nightCtx.Night.MorningTwilight) && !s.table.AllComplete() {
		candidates, err := s.scan(nightCtx, requests, current, prev)
		if err != nil {
			return nil, idleSteps, err
		}

		winner, ok := s.selectWinner(candidates)
		if !ok {
			if s.bus != nil {
				s.bus.Publish(events.IdleStep{Pass: s.pass, Time: current})
			}
			idleSteps++
			current = current.Add(s.idleStep)
			continue
		}

		entry, err := s.advance(winner, current)
		if err != nil {
			return nil, idleSteps, err
		}
		entries = append(entries, entry)
		prev = &winner.Request.Position
		current = winner.EndTime

		slot := metrics.SlotFromEntry(s.pass, winner.Request.Program, entry, winner.Weight)
		if err := s.sink.RecordScheduledSlot(slot); err != nil {
			s.log.Errorf("metrics error: %v", err)
		}
		if s.bus != nil {
			s.bus.Publish(events.EntryScheduled{Pass: s.pass, Entry: entry, Weight: winner.Weight})
		}
		s.log.Debugw("slot committed", map[string]any{
			"request": entry.RequestID,
			"start":   entry.Start,
			"visits":  entry.Visits,
			"weight":  winner.Weight,
		})
	}

	return entries, idleSteps, nil
}

// scan scores every open request at the current instant.
func (s *NightScheduler) scan(nightCtx *ephemeris.NightContext, requests []model.ObservationRequest, current time.Time, prev *model.SkyPosition) ([]weight.Candidate, error) {
	var candidates []weight.Candidate
	for i := range requests {
		req := &requests[i]
		st := s.table.Get(req.ID)
		if st == nil {
			return nil, fmt.Errorf("no completion state for request %s", req.ID)
		}
		if st.Complete {
			continue
		}
		cand, err := s.engine.Score(req, st, nightCtx, current, prev)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

// selectWinner picks uniformly at random among the candidates tied at the
// maximum weight. Exact floating equality is intentional: full-fit, max
// priority targets tie at identical weights and must not win by table order.
func (s *NightScheduler) selectWinner(candidates []weight.Candidate) (weight.Candidate, bool) {
	if len(candidates) == 0 {
		return weight.Candidate{}, false
	}
	weights := make([]float64, len(candidates))
	for i, c := range candidates {
		weights[i] = c.Weight
	}
	max := floats.Max(weights)
	if max == 0 {
		return weight.Candidate{}, false
	}
	var tied []int
	for i, w := range weights {
		if w == max {
			tied = append(tied, i)
		}
	}
	return candidates[tied[s.rng.Intn(len(tied))]], true
}

// advance commits the winner: appends the entry, credits visits, and charges
// the elapsed hours to every request of the owning program.
func (s *NightScheduler) advance(winner weight.Candidate, start time.Time) (model.ScheduleEntry, error) {
	duration := winner.EndTime.Sub(start)
	entry := model.ScheduleEntry{
		Start:     start,
		Duration:  duration,
		RequestID: winner.Request.ID,
		Visits:    winner.Visits,
	}
	if err := s.table.RecordVisits(winner.Request.ID, winner.Visits, winner.Request.Visits); err != nil {
		return model.ScheduleEntry{}, err
	}
	s.table.Charge(winner.Request.Program, duration.Hours())
	return entry, nil
}
