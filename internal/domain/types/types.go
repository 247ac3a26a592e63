// Package types contains the summary shapes returned by the HTTP API.
package types

import (
	"time"

	"github.com/okian/correlate/internal/domain/model"
)

// GroupSummary describes one group without its full event bodies.
type GroupSummary struct {
	Index          int      `json:"index"`
	Size           int      `json:"size"`
	Representative string   `json:"representative"`
	EventIDs       []string `json:"event_ids"`
	Titles         []string `json:"titles"`
}

// RunSummary describes one run for listings.
type RunSummary struct {
	ID          string    `json:"id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Filter      string    `json:"filter,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	DurationMs  float64   `json:"duration_ms"`
	Events      int       `json:"events"`
	Duplicates  int       `json:"duplicates"`
	Groups      int       `json:"groups"`
	Comparisons int       `json:"comparisons"`
	Error       string    `json:"error,omitempty"`
}

// SummarizeGroups numbers groups from 1 in output order.
func SummarizeGroups(groups []model.Group) []GroupSummary {
	out := make([]GroupSummary, len(groups))
	for i, g := range groups {
		titles := make([]string, len(g.Events))
		for j, e := range g.Events {
			titles[j] = e.Title
		}
		rep, _ := g.Representative()
		out[i] = GroupSummary{
			Index:          i + 1,
			Size:           g.Size(),
			Representative: rep.Title,
			EventIDs:       g.IDs(),
			Titles:         titles,
		}
	}
	return out
}

// SummarizeRun flattens run for listings.
func SummarizeRun(run model.Run) RunSummary {
	return RunSummary{
		ID:          run.ID,
		From:        run.Query.From,
		To:          run.Query.To,
		Filter:      run.Query.Filter,
		StartedAt:   run.StartedAt,
		DurationMs:  float64(run.Duration.Microseconds()) / 1000,
		Events:      run.EventCount,
		Duplicates:  run.DuplicateCount,
		Groups:      len(run.Groups),
		Comparisons: run.Comparisons,
		Error:       run.Err,
	}
}
