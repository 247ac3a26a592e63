package similarity

import (
	"fmt"
	"math"
	"sort"
)

// Weight labels understood by the scorer.
const (
	LabelTitle = "title"
	LabelText  = "text"
	LabelTags  = "tags"
)

// Default coefficients.
const (
	defaultTitleWeight = 0.4
	defaultTextWeight  = 0.3
	defaultTagsWeight  = 0.3
)

// defaultWeights backs empty Weights at scoring time and is never mutated.
var defaultWeights = DefaultWeights()

// Weights maps a label to its coefficient in the combined score.
// A missing label contributes 0; labels other than title, text and tags
// are ignored by the scorer. Coefficients are used exactly as given.
type Weights map[string]float64

// DefaultWeights returns title=0.4, text=0.3, tags=0.3.
func DefaultWeights() Weights {
	return Weights{
		LabelTitle: defaultTitleWeight,
		LabelText:  defaultTextWeight,
		LabelTags:  defaultTagsWeight,
	}
}

// Labels lists the labels the scorer reads, in scoring order.
func Labels() []string {
	return []string{LabelTitle, LabelText, LabelTags}
}

// Get returns the coefficient for label, 0 when absent.
func (w Weights) Get(label string) float64 {
	return w[label]
}

// Sum adds the coefficients of the known labels.
func (w Weights) Sum() float64 {
	return w[LabelTitle] + w[LabelText] + w[LabelTags]
}

// Clone returns an independent copy.
func (w Weights) Clone() Weights {
	if w == nil {
		return nil
	}
	out := make(Weights, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Validate is the strict check layered above the permissive scorer: every
// label must be known and every coefficient finite and non-negative.
func (w Weights) Validate() error {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		switch k {
		case LabelTitle, LabelText, LabelTags:
		default:
			return fmt.Errorf("%w: %q", ErrUnknownLabel, k)
		}
		v := w[k]
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, k, v)
		}
	}
	return nil
}

// Normalized returns the known-label coefficients rescaled to sum to 1.
// Unknown labels are dropped.
func (w Weights) Normalized() (Weights, error) {
	sum := w.Sum()
	if !(sum > 0) || math.IsInf(sum, 0) {
		return nil, fmt.Errorf("%w: sum=%v", ErrZeroWeights, sum)
	}
	out := make(Weights, len(Labels()))
	for _, l := range Labels() {
		if v, ok := w[l]; ok {
			out[l] = v / sum
		}
	}
	return out, nil
}
