// Package repository keeps a bounded history of correlation runs for the API
// and CLI. Runs are never fed back into grouping.
package repository

import "github.com/okian/correlate/internal/domain/model"

// Store provides read/write access to recent runs.
type Store interface {
	// Save records run, evicting the oldest run when full.
	Save(run model.Run)

	// Get returns the run with id.
	// Returns ErrNotFound if the run is unknown or evicted.
	Get(id string) (model.Run, error)

	// List returns up to limit runs, newest first.
	List(limit int) ([]model.Run, error)

	// Latest returns the most recently saved run.
	Latest() (model.Run, error)

	// Count returns the number of runs held.
	Count() int
}
