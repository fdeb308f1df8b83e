// Package consensus decides when a match has collected enough confirmations
// to finalize.
package consensus

import "math"

// DefaultRatio is the supermajority share of expected confirmations needed
// to finalize. 75% tolerates a few absent participants while keeping a
// minority from finalizing a disputed result on its own.
const DefaultRatio = 0.75

// Progress reports how far a match is from consensus. Always returned to
// callers so they can reason about remaining work.
type Progress struct {
	Current  int  `json:"current"`
	Required int  `json:"required"`
	Reached  bool `json:"reached"`
}

// Option applies a configuration option to the Evaluator.
type Option func(*Evaluator)

// WithRatio overrides the consensus ratio. Values outside (0, 1] are ignored.
func WithRatio(ratio float64) Option {
	return func(e *Evaluator) {
		if ratio > 0 && ratio <= 1 {
			e.ratio = ratio
		}
	}
}

// Evaluator computes the consensus threshold. The required count is derived
// fresh on every call because the denominator can grow while a match is
// still pending.
type Evaluator struct {
	ratio float64
}

// NewEvaluator creates an Evaluator with the default 75% ratio.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{ratio: DefaultRatio}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Required returns ceil(expected * ratio).
func (e *Evaluator) Required(expected int) int {
	if expected <= 0 {
		return 0
	}
	return int(math.Ceil(float64(expected) * e.ratio))
}

// Evaluate compares the confirmation count against the threshold.
func (e *Evaluator) Evaluate(confirmed, expected int) Progress {
	required := e.Required(expected)
	return Progress{
		Current:  confirmed,
		Required: required,
		Reached:  confirmed >= required,
	}
}
