// Package similarity computes the weighted pairwise similarity of two events.
package similarity

import (
	"github.com/okian/correlate/internal/domain/model"
)

// Breakdown is a per-component view of one comparison.
type Breakdown struct {
	Title float64 `json:"title"`
	Text  float64 `json:"text"`
	Tags  float64 `json:"tags"`
	Score float64 `json:"score"`
}

// Score returns w.title*TextSimilarity(titles) + w.text*TextSimilarity(texts)
// + w.tags*TagSimilarity(tags). An empty w selects DefaultWeights. Otherwise
// missing labels contribute 0, unknown labels are ignored, and the result is
// neither clamped nor normalized. Score is symmetric in a and b.
func Score(a, b model.Event, w Weights) float64 {
	return Explain(a, b, w).Score
}

// Explain returns the component similarities alongside the combined score.
func Explain(a, b model.Event, w Weights) Breakdown {
	return Prepare(a).compare(Prepare(b), w)
}

// Prepared caches the split title, split text and tag set of an event so it
// can be compared many times without re-tokenising.
type Prepared struct {
	event model.Event
	title []string
	text  []string
	tags  TagSet
}

// Prepare tokenises e once.
func Prepare(e model.Event) *Prepared {
	return &Prepared{
		event: e,
		title: splitRunes(e.Title),
		text:  splitRunes(e.Text),
		tags:  NewTagSet(e.Tags),
	}
}

// Event returns the wrapped event.
func (p *Prepared) Event() model.Event { return p.event }

func (p *Prepared) compare(o *Prepared, w Weights) Breakdown {
	if len(w) == 0 {
		w = defaultWeights
	}
	b := Breakdown{
		Title: textRatio(p.title, o.title, p.event.Title, o.event.Title),
		Text:  textRatio(p.text, o.text, p.event.Text, o.event.Text),
		Tags:  jaccard(p.tags, o.tags),
	}
	b.Score = w[LabelTitle]*b.Title + w[LabelText]*b.Text + w[LabelTags]*b.Tags
	return b
}

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the coefficients used as given. Empty weights keep the
// defaults.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if len(w) > 0 {
			s.weights = w.Clone()
		}
	}
}

// WithNormalizedWeights sets the coefficients rescaled to sum to 1.
// Weights that cannot be normalized leave the current ones unchanged.
func WithNormalizedWeights(w Weights) Option {
	return func(s *Scorer) {
		if n, err := w.Normalized(); err == nil {
			s.weights = n
		}
	}
}

// Scorer binds a set of weights.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using DefaultWeights unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{weights: DefaultWeights()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns a copy of the bound weights.
func (s *Scorer) Weights() Weights { return s.weights.Clone() }

// Score compares two events.
func (s *Scorer) Score(a, b model.Event) float64 {
	return Score(a, b, s.weights)
}

// Explain compares two events and returns the breakdown.
func (s *Scorer) Explain(a, b model.Event) Breakdown {
	return Explain(a, b, s.weights)
}

// ScorePrepared compares two prepared events.
func (s *Scorer) ScorePrepared(a, b *Prepared) float64 {
	return a.compare(b, s.weights).Score
}
