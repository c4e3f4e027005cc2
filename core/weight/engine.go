// Package weight computes per-candidate scheduling weights. The engine is a
// pure function of the request, its completion state, the night ephemeris
// and the previous pointing; it never mutates the completion table.
package weight

import (
	"fmt"
	"math"
	"time"

	"github.com/richardjcool/MMTQueue/core/astro"
	"github.com/richardjcool/MMTQueue/core/ephemeris"
	"github.com/richardjcool/MMTQueue/core/model"
)

// Engine combines fit, lunar, slew, priority, fairness and damping terms
// into a single total weight per candidate.
type Engine struct {
	RotatorLow    float64 // rotator limit interval, exclusive bounds
	RotatorHigh   float64
	SlewBonus     float64 // multiplier for near-zero slews
	SlewRadiusDeg float64 // pointing distance that earns the bonus
	FairnessFloor float64 // weight for fully subscribed programs
}

// NewEngine returns an engine with the production constants.
func NewEngine() *Engine {
	return &Engine{
		RotatorLow:    -180,
		RotatorHigh:   164,
		SlewBonus:     1000,
		SlewRadiusDeg: 10.0 / 3600.0,
		FairnessFloor: 0.001,
	}
}

// Candidate is a scored request with its projected outcome if selected.
type Candidate struct {
	Request *model.ObservationRequest
	Weight  float64
	EndTime time.Time
	Visits  int
}

// fitResult captures how much of a request fits before morning twilight.
type fitResult struct {
	weight  float64 // fitting-and-observable visits over remaining visits
	endTime time.Time
	visits  int
}

// fit projects how many whole visits fit between start and morning twilight.
// The class overhead is charged once per slot. If every remaining visit fits,
// the projected end is checked for observability; otherwise the visit count
// steps down one at a time, re-checking observability at each projected end,
// until a count works or zero is reached.
func (e *Engine) fit(req *model.ObservationRequest, st *model.CompletionState, tl ephemeris.Timeline, night ephemeris.Night, start time.Time) (fitResult, error) {
	if !tl.ObservableAt(start, req.RotatorPA(), e.RotatorLow, e.RotatorHigh) {
		return fitResult{endTime: start}, nil
	}

	overhead, err := req.Class.Overhead()
	if err != nil {
		return fitResult{}, fmt.Errorf("request %s: %w", req.ID, err)
	}

	remaining := req.Visits - st.VisitsDone
	if remaining <= 0 {
		return fitResult{endTime: start}, nil
	}

	perVisit := req.VisitDuration()
	timeLeft := night.MorningTwilight.Sub(start)
	possible := int(math.Floor(float64(timeLeft-overhead) / float64(perVisit)))

	if possible > remaining {
		end := start.Add(time.Duration(remaining)*perVisit + overhead)
		if tl.ObservableAt(end, req.RotatorPA(), e.RotatorLow, e.RotatorHigh) {
			return fitResult{weight: 1.0, endTime: end, visits: remaining}, nil
		}
		possible = remaining
	}

	for n := possible; n >= 1; n-- {
		end := start.Add(time.Duration(n)*perVisit + overhead)
		if tl.ObservableAt(end, req.RotatorPA(), e.RotatorLow, e.RotatorHigh) {
			return fitResult{
				weight:  float64(n) / float64(remaining),
				endTime: end,
				visits:  n,
			}, nil
		}
	}

	// Never observable at any projected end.
	return fitResult{endTime: start}, nil
}

// Score evaluates one request at the candidate start time. prev is the last
// committed pointing, nil at the start of a night. Complete requests must be
// filtered out by the caller; Score assumes an open request.
func (e *Engine) Score(req *model.ObservationRequest, st *model.CompletionState, nightCtx *ephemeris.NightContext, start time.Time, prev *model.SkyPosition) (Candidate, error) {
	tl := nightCtx.Timelines[req.ID]
	fit, err := e.fit(req, st, tl, nightCtx.Night, start)
	if err != nil {
		return Candidate{}, err
	}

	lunar := lunarFlag(req, start, fit.endTime, nightCtx.Moon)

	slew := 1.0
	if prev != nil {
		dist := astro.Separation(req.Position.RA, req.Position.Dec, prev.RA, prev.Dec)
		if dist < e.SlewRadiusDeg {
			slew = e.SlewBonus
		}
	}

	priority := 1.0 / math.Pow(float64(req.Priority), 3)

	fairness := 1.0 - st.UsageRatio
	if fairness <= 0 {
		fairness = e.FairnessFloor
	}

	total := fit.weight * lunar * fairness * slew * priority / st.DampingWeight

	return Candidate{
		Request: req,
		Weight:  total,
		EndTime: fit.endTime,
		Visits:  fit.visits,
	}, nil
}
