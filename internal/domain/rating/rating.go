// Package rating computes per-player rating deltas and capped updates from a
// single match performance record. Everything here is pure; persistence and
// match bookkeeping live elsewhere.
package rating

import (
	"math"

	"github.com/diskilabs/diskirater/internal/domain/model"
)

// Rating bounds and formula constants.
const (
	MinRating = 0
	MaxRating = 99

	// DiminishThreshold is the attribute value at or above which further
	// gains are halved.
	DiminishThreshold = 75
	diminishFactor    = 0.5

	goalWeight   = 1.5
	assistWeight = 1.0
	mvpBonus     = 2.0

	winBonus  = 1.5
	lossBonus = -0.5
	drawBonus = 0.2
)

// Outcome is the match result relative to one player's team.
type Outcome string

// Outcomes.
const (
	Win  Outcome = "W"
	Loss Outcome = "L"
	Draw Outcome = "D"
)

// Code returns the single-letter form entry for the outcome.
func (o Outcome) Code() string {
	return string(o)
}

// OutcomeOf maps a score to the outcome seen from one side.
func OutcomeOf(score model.Score, team model.Team) Outcome {
	own, other := score.TeamA, score.TeamB
	if team == model.TeamB {
		own, other = other, own
	}
	switch {
	case own > other:
		return Win
	case own < other:
		return Loss
	default:
		return Draw
	}
}

// Delta holds one computed change per attribute.
type Delta struct {
	Pace        float64
	Technical   float64
	Physical    float64
	Reliability float64
}

// outcomeBonus is the base reliability contribution per outcome. The draw
// branch stays a flat 0.2 with no MVP interaction; that asymmetry matches
// the product rules and must not be "fixed" here.
func outcomeBonus(o Outcome) float64 {
	switch o {
	case Win:
		return winBonus
	case Loss:
		return lossBonus
	default:
		return drawBonus
	}
}

// ComputeDelta returns the diminished (but uncapped) delta for one
// performance. Diminishing returns gate on each attribute's own current
// value: at or above 75 the gain for that attribute is halved.
func ComputeDelta(current model.Ratings, perf model.Performance, outcome Outcome) Delta {
	bonus := outcomeBonus(outcome)

	var mvp float64
	if perf.IsMVP {
		mvp = mvpBonus
	}

	d := Delta{
		Technical:   float64(perf.Goals)*goalWeight + float64(perf.Assists)*assistWeight + mvp,
		Reliability: bonus + mvp,
	}
	if bonus > 0 {
		d.Physical += 0.5
	}
	if perf.Goals > 0 {
		d.Physical += 0.3
	}
	if perf.Goals > 1 {
		d.Pace = 0.5
	} else {
		d.Pace = 0.1
	}

	if current.Technical >= DiminishThreshold {
		d.Technical *= diminishFactor
	}
	if current.Reliability >= DiminishThreshold {
		d.Reliability *= diminishFactor
	}
	if current.Physical >= DiminishThreshold {
		d.Physical *= diminishFactor
	}
	if current.Pace >= DiminishThreshold {
		d.Pace *= diminishFactor
	}

	return d
}

// CapDelta clamps a delta so current+delta stays within [0, 99].
func CapDelta(current, delta float64) float64 {
	if current+delta > MaxRating {
		return MaxRating - current
	}
	if current+delta < MinRating {
		return -current
	}
	return delta
}

// Round1 rounds a rating to one decimal place for clean display.
func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// Sanitize clamps and rounds every attribute. Applied on every ratings
// write, including captain edits, mirroring the storage-side guard.
func Sanitize(r model.Ratings) model.Ratings {
	clamp := func(x float64) float64 {
		x = Round1(x)
		if x > MaxRating {
			return MaxRating
		}
		if x < MinRating {
			return MinRating
		}
		return x
	}
	return model.Ratings{
		Pace:        clamp(r.Pace),
		Technical:   clamp(r.Technical),
		Physical:    clamp(r.Physical),
		Reliability: clamp(r.Reliability),
	}
}

// Apply folds one verified performance into a player: capped rating updates,
// lastChange bookkeeping, career counters, and the rolling form window.
// LastChange keeps the diminished pre-cap delta; the applied value may be
// smaller when an attribute sits near the cap.
func Apply(p *model.Player, perf model.Performance, outcome Outcome) {
	d := ComputeDelta(p.Ratings, perf, outcome)

	p.Ratings.Technical += CapDelta(p.Ratings.Technical, d.Technical)
	p.Ratings.Reliability += CapDelta(p.Ratings.Reliability, d.Reliability)
	p.Ratings.Physical += CapDelta(p.Ratings.Physical, d.Physical)
	p.Ratings.Pace += CapDelta(p.Ratings.Pace, d.Pace)
	p.Ratings = Sanitize(p.Ratings)

	p.LastChange = model.Ratings{
		Pace:        d.Pace,
		Technical:   d.Technical,
		Physical:    d.Physical,
		Reliability: d.Reliability,
	}

	p.CareerStats.Goals += perf.Goals
	p.CareerStats.Assists += perf.Assists
	p.CareerStats.MatchesPlayed++
	if perf.IsMVP {
		p.CareerStats.MVPs++
	}
	switch outcome {
	case Win:
		p.CareerStats.Wins++
	case Loss:
		p.CareerStats.Losses++
	case Draw:
		p.CareerStats.Draws++
	}

	p.Form = append(p.Form, outcome.Code())
	if len(p.Form) > model.FormLength {
		p.Form = p.Form[len(p.Form)-model.FormLength:]
	}
}
