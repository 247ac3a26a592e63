// Package grouping partitions an ordered event sequence into groups with a
// greedy single pass: each event joins the earliest-created group whose
// representative it scores at least the threshold against, or founds a new
// group. Representatives are fixed at creation and never recomputed, so the
// result depends on input order.
package grouping

import (
	"fmt"
	"math"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/similarity"
)

// DefaultThreshold is used when no threshold is configured.
const DefaultThreshold = 0.6

// Result is the outcome of one grouping pass.
type Result struct {
	Groups []model.Group
	// Comparisons counts scorer calls against representatives.
	Comparisons int
}

// Engine groups events. It holds no per-run state and is safe for
// concurrent use.
type Engine struct {
	threshold float64
	weights   similarity.Weights
	normalize bool
	strict    bool
	scorer    *similarity.Scorer
}

// New builds an engine. Without options it uses DefaultThreshold, and empty
// weights select similarity.DefaultWeights. Errors are only possible in
// strict or normalized mode.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{threshold: DefaultThreshold}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.weights) == 0 {
		e.weights = similarity.DefaultWeights()
	}

	if e.strict {
		if math.IsNaN(e.threshold) || e.threshold < 0 || e.threshold > 1 {
			return nil, fmt.Errorf("%w: %v", ErrThresholdOutOfRange, e.threshold)
		}
		if err := e.weights.Validate(); err != nil {
			return nil, fmt.Errorf("validate weights: %w", err)
		}
	}
	if e.normalize {
		n, err := e.weights.Normalized()
		if err != nil {
			return nil, fmt.Errorf("normalize weights: %w", err)
		}
		e.weights = n
	}

	e.scorer = similarity.NewScorer(similarity.WithWeights(e.weights))
	return e, nil
}

// Threshold returns the configured threshold.
func (e *Engine) Threshold() float64 { return e.threshold }

// Weights returns a copy of the effective weights.
func (e *Engine) Weights() similarity.Weights { return e.weights.Clone() }

// Scorer returns the scorer bound to the effective weights.
func (e *Engine) Scorer() *similarity.Scorer { return e.scorer }

// Group partitions events into groups.
func (e *Engine) Group(events []model.Event) []model.Group {
	return e.Run(events).Groups
}

// Run partitions events into groups and reports how many representative
// comparisons were made. The input slice is not modified.
func (e *Engine) Run(events []model.Event) Result {
	if len(events) == 0 {
		return Result{Groups: []model.Group{}}
	}

	var (
		groups      []model.Group
		reps        []*similarity.Prepared
		comparisons int
	)
	for _, ev := range events {
		candidate := similarity.Prepare(ev)
		placed := false
		for i, rep := range reps {
			comparisons++
			if e.scorer.ScorePrepared(candidate, rep) >= e.threshold {
				groups[i].Events = append(groups[i].Events, ev)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, model.Group{Events: []model.Event{ev}})
			reps = append(reps, candidate)
		}
	}
	return Result{Groups: groups, Comparisons: comparisons}
}

// Group partitions events with the given threshold and weights, applied
// without validation or normalization. An empty w selects the default
// weights.
func Group(events []model.Event, threshold float64, w similarity.Weights) []model.Group {
	e, _ := New(WithThreshold(threshold), WithWeights(w)) //nolint:errcheck // permissive mode never fails
	return e.Group(events)
}
