package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/correlate/internal/adapters/source"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/logger"
)

// Backfill correlates [from, to) cut into consecutive windows of step. The
// windows are fetched concurrently, bounded by the worker count. They are then
// deduplicated, grouped, reported and recorded one by one in window order, so
// an event seen by two windows always lands in the earlier one. Runs are
// returned in window order.
//
// A failed fetch fails the backfill before anything is reported. A failed
// report fails its window and every later one; their event IDs stay unseen so
// a retry reports them.
func (s *Service) Backfill(ctx context.Context, from, to time.Time, step time.Duration) ([]model.Run, error) {
	q := model.Query{From: from, To: to, Filter: s.filter}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	windows := q.Split(step)
	runs := make([]model.Run, len(windows))
	events := make([][]model.Event, len(windows))

	s.logger.Info(ctx, "backfill started",
		logger.Int("windows", len(windows)),
		logger.Duration("step", step),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workerCount)
	for i, w := range windows {
		runs[i] = model.Run{ID: newRunID(), Query: w, StartedAt: s.now()}
		g.Go(func() error {
			evs, err := s.fetch(gctx, w)
			if err != nil {
				return fmt.Errorf("window %s..%s: %w", w.From.Format(time.RFC3339), w.To.Format(time.RFC3339), err)
			}
			events[i] = evs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.abort(ctx, runs, err)
		return runs, err
	}

	for i := range runs {
		run, err := s.publish(ctx, runs[i], events[i])
		runs[i] = run
		if err != nil {
			s.abort(ctx, runs[i+1:], err)
			return runs, err
		}
	}
	return runs, nil
}

// abort records runs as failed because of cause.
func (s *Service) abort(ctx context.Context, runs []model.Run, cause error) {
	for i := range runs {
		runs[i], _ = s.fail(ctx, runs[i], fmt.Errorf("%w: %w", ErrBackfillAborted, cause))
	}
}

// Poll correlates the trailing window once immediately and then every
// interval until ctx is done. Failed runs are logged and polling continues.
func (s *Service) Poll(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	s.logger.Info(ctx, "polling started",
		logger.Duration("interval", interval),
		logger.Duration("window", s.window),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := s.Execute(ctx, model.LastWindow(s.now(), s.window, s.filter)); err != nil && ctx.Err() == nil {
			s.logger.Warn(ctx, "poll run failed", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "polling stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Watch correlates the trailing window whenever the events file at path
// changes, until ctx is done.
func (s *Service) Watch(ctx context.Context, path string) error {
	err := source.WatchFile(ctx, path, func(ctx context.Context) {
		if _, err := s.Execute(ctx, model.LastWindow(s.now(), s.window, s.filter)); err != nil {
			s.logger.Warn(ctx, "watch run failed", logger.String("path", path), logger.Error(err))
		}
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
