package model

import (
	"errors"
	"time"
)

// ErrInvalidWindow is returned when a query window ends before it starts.
var ErrInvalidWindow = errors.New("invalid query window")

// Query selects the events an event source should yield.
type Query struct {
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Filter string    `json:"filter,omitempty"`
}

// Validate checks the window bounds.
func (q Query) Validate() error {
	if q.From.IsZero() || q.To.IsZero() || q.To.Before(q.From) {
		return ErrInvalidWindow
	}
	return nil
}

// LastWindow returns the query covering the d leading up to now.
func LastWindow(now time.Time, d time.Duration, filter string) Query {
	return Query{From: now.Add(-d), To: now, Filter: filter}
}

// Split cuts the window into consecutive windows of at most step each.
// A non-positive step yields the window itself.
func (q Query) Split(step time.Duration) []Query {
	if step <= 0 || !q.From.Before(q.To) {
		return []Query{q}
	}
	var out []Query
	for from := q.From; from.Before(q.To); from = from.Add(step) {
		to := from.Add(step)
		if to.After(q.To) {
			to = q.To
		}
		out = append(out, Query{From: from, To: to, Filter: q.Filter})
	}
	return out
}

// Job is a queued request to correlate the events of one window.
type Job struct {
	ID    string
	Query Query
}

// Run records one correlation invocation for reporters.
type Run struct {
	ID             string             `json:"id"`
	Query          Query              `json:"query"`
	Threshold      float64            `json:"threshold"`
	Weights        map[string]float64 `json:"weights"`
	StartedAt      time.Time          `json:"started_at"`
	Duration       time.Duration      `json:"duration"`
	EventCount     int                `json:"event_count"`
	DuplicateCount int                `json:"duplicate_count"`
	Comparisons    int                `json:"comparisons"`
	Groups         []Group            `json:"groups"`
	Err            string             `json:"error,omitempty"`
}

// Failed reports whether the run ended with an error.
func (r Run) Failed() bool { return r.Err != "" }
