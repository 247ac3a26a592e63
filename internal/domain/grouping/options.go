package grouping

import "github.com/okian/correlate/internal/domain/similarity"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithThreshold sets the minimum score an event needs against a group
// representative to join that group.
func WithThreshold(threshold float64) Option {
	return func(e *Engine) {
		e.threshold = threshold
	}
}

// WithWeights sets the scoring coefficients, used exactly as given.
func WithWeights(w similarity.Weights) Option {
	return func(e *Engine) {
		e.weights = w.Clone()
		e.normalize = false
	}
}

// WithNormalizedWeights sets the scoring coefficients and rescales them to
// sum to 1 when the engine is built.
func WithNormalizedWeights(w similarity.Weights) Option {
	return func(e *Engine) {
		e.weights = w.Clone()
		e.normalize = true
	}
}

// WithNormalize rescales whatever weights the engine ends up with, keeping
// weights set by earlier options.
func WithNormalize(normalize bool) Option {
	return func(e *Engine) {
		e.normalize = normalize
	}
}

// WithStrict rejects out-of-range thresholds and malformed weights at
// construction instead of running with them.
func WithStrict(strict bool) Option {
	return func(e *Engine) {
		e.strict = strict
	}
}
