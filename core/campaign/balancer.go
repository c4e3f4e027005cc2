// Package campaign runs the multi-pass fairness balancer. Each pass schedules
// every night in order, then rebalances a per-request damping weight from the
// pass outcome so under-served programs gain preference on the next pass.
package campaign

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/events"
	"github.com/richardjcool/MMTQueue/core/logger"
	"github.com/richardjcool/MMTQueue/core/metrics"
	"github.com/richardjcool/MMTQueue/core/model"
	"github.com/richardjcool/MMTQueue/core/scheduler"
	"github.com/richardjcool/MMTQueue/core/weight"
	"github.com/richardjcool/MMTQueue/internal/eventbus"
)

// servedDampingFactor scales the next-pass damping of programs that received
// everything they asked for. Partially served programs keep their raw usage
// ratio as divisor, even above 1.
const servedDampingFactor = 0.1

// dampingFloor keeps the damping divisor positive. A program that was never
// charged ends a pass with usage ratio 0; the floor turns that into a strong
// finite boost instead of a division by zero.
const dampingFloor = 0.001

// Balancer owns the completion table and drives the night scheduler over the
// whole campaign, pass by pass.
type Balancer struct {
	cfg      Config
	oracle   ephemeris.Oracle
	requests []model.ObservationRequest
	table    *model.CompletionTable
	log      logger.Logger
	sink     metrics.SchedulerSink
	bus      eventbus.EventBus
	runID    string
}

// New validates the catalog and builds a balancer. sink and bus may be nil.
func New(cfg Config, oracle ephemeris.Oracle, requests []model.ObservationRequest, table *model.CompletionTable, log logger.Logger, sink metrics.SchedulerSink, bus eventbus.EventBus) (*Balancer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("campaign config: %w", err)
	}
	if oracle == nil || table == nil || log == nil {
		return nil, fmt.Errorf("campaign: nil parameter provided to New")
	}
	for _, r := range requests {
		if err := r.Validate(); err != nil {
			return nil, err
		}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Balancer{
		cfg:      cfg,
		oracle:   oracle,
		requests: requests,
		table:    table,
		log:      log,
		sink:     sink,
		bus:      bus,
		runID:    uuid.NewString(),
	}, nil
}

// RunID identifies this campaign run in logs, metrics and exports.
func (b *Balancer) RunID() string { return b.runID }

// Run schedules the campaign over the given night dates and returns the
// schedule of the final executed pass. Completion state is reset to the
// pre-run baseline between passes; only the damping weights carry over.
func (b *Balancer) Run(ctx context.Context, dates []time.Time) ([]model.ScheduleEntry, error) {
	if len(dates) == 0 {
		return nil, fmt.Errorf("campaign: no nights to schedule")
	}

	seed := b.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	engine := weight.NewEngine()
	engine.RotatorLow = b.cfg.RotatorLowDeg
	engine.RotatorHigh = b.cfg.RotatorHighDeg

	night, err := scheduler.NewNightScheduler(engine, b.table, rng,
		time.Duration(b.cfg.IdleStepMinutes)*time.Minute, b.log, b.sink, b.bus)
	if err != nil {
		return nil, err
	}

	baseline := b.table.Snapshot()
	var schedule []model.ScheduleEntry

	for pass := 1; pass <= b.cfg.Passes; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		night.SetPass(pass)
		b.log.Infof("pass %d/%d starting over %d nights", pass, b.cfg.Passes, len(dates))

		schedule = nil
		idleTotal := 0
		for _, date := range dates {
			nightCtx, err := ephemeris.BuildNightContext(b.oracle, date, b.requests)
			if err != nil {
				return nil, err
			}
			entries, idle, err := night.Run(nightCtx, b.requests)
			if err != nil {
				return nil, err
			}
			schedule = append(schedule, entries...)
			idleTotal += idle
			if b.bus != nil {
				b.bus.Publish(events.NightDone{Pass: pass, Date: date, Entries: len(entries)})
			}
		}

		served := b.table.ServedPrograms()
		allServed := true
		servedCount := 0
		for _, done := range served {
			if done {
				servedCount++
			} else {
				allServed = false
			}
		}

		b.rebalance(served)
		b.recordPass(pass, len(schedule), idleTotal, servedCount, len(served))
		if b.bus != nil {
			b.bus.Publish(events.PassDone{
				Pass:           pass,
				Entries:        len(schedule),
				ProgramsServed: servedCount,
				Programs:       len(served),
				AllServed:      allServed,
			})
		}

		if allServed {
			b.log.Infof("pass %d served every program, stopping early", pass)
			break
		}
		if pass < b.cfg.Passes {
			b.table.Reset(baseline)
		}
	}

	return schedule, nil
}

// rebalance derives the next pass's damping weight from this pass's ending
// usage ratio. Fully served programs are sharply suppressed; everyone else
// keeps the raw ratio as divisor.
func (b *Balancer) rebalance(served map[string]bool) {
	b.table.Each(func(st *model.CompletionState) {
		d := st.UsageRatio
		if served[st.Program] {
			d *= servedDampingFactor
		}
		if d <= 0 {
			d = dampingFloor
		}
		st.DampingWeight = d
	})
}

// recordPass logs and records the fairness outcome of a pass.
func (b *Balancer) recordPass(pass, entries, idleSteps, servedCount, programCount int) {
	var ratios []float64
	b.table.Each(func(st *model.CompletionState) {
		ratios = append(ratios, st.UsageRatio)
	})
	mean := stat.Mean(ratios, nil)
	stddev := stat.StdDev(ratios, nil)

	summary := metrics.PassSummary{
		RunID:          b.runID,
		Pass:           pass,
		Entries:        entries,
		IdleSteps:      idleSteps,
		Programs:       programCount,
		ProgramsServed: servedCount,
		MeanUsage:      mean,
		StddevUsage:    stddev,
		Time:           time.Now(),
	}
	if pr, ok := b.sink.(metrics.PassRecorder); ok {
		if err := pr.RecordPassSummary(summary); err != nil {
			b.log.Errorf("pass summary metrics error: %v", err)
		}
	}
	if ur, ok := b.sink.(metrics.UsageRecorder); ok {
		seen := make(map[string]bool)
		b.table.Each(func(st *model.CompletionState) {
			if seen[st.Program] {
				return
			}
			seen[st.Program] = true
			if err := ur.RecordProgramUsage(st.Program, st.UsageRatio); err != nil {
				b.log.Errorf("usage metrics error: %v", err)
			}
		})
	}
	b.log.Infof("pass %d done: %d entries, %d idle steps, %d/%d programs served, usage %.2f±%.2f",
		pass, entries, idleSteps, servedCount, programCount, mean, stddev)
}
