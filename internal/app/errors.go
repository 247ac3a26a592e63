package service

import "errors"

var (
	// ErrNotStarted is returned when a queued operation is used before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrBackpressure is returned by Submit when the job queue is full.
	ErrBackpressure = errors.New("job queue full")

	// ErrNoSource is returned when an operation needs a source and none is set.
	ErrNoSource = errors.New("no event source configured")

	// ErrBackfillAborted marks backfill windows failed because another
	// window failed first.
	ErrBackfillAborted = errors.New("backfill aborted")
)
