package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/correlate/internal/domain/dedupe"
	"github.com/okian/correlate/internal/domain/grouping"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/logger"
	"github.com/okian/correlate/pkg/metrics"
)

const (
	runStatusSuccess = "success"
	runStatusError   = "error"
)

func newRunID() string { return uuid.NewString() }

// Correlate groups events supplied by the caller. No source is consulted and
// no deduplication is applied. Options override the service's grouping
// settings for this call only. The run is kept in history but not reported.
func (s *Service) Correlate(ctx context.Context, events []model.Event, opts ...grouping.Option) (model.Run, error) {
	engine := s.engine
	if len(opts) > 0 {
		e, err := grouping.New(append(s.engineOptions(), opts...)...)
		if err != nil {
			return model.Run{}, fmt.Errorf("grouping engine: %w", err)
		}
		engine = e
	}

	run := model.Run{ID: newRunID(), StartedAt: s.now()}
	if err := ctx.Err(); err != nil {
		return s.fail(ctx, run, err)
	}
	metrics.RecordEventsIngested(len(events))
	s.group(&run, engine, events)
	s.record(ctx, run)
	return run, nil
}

// Execute fetches the events of q, drops those already seen by earlier runs,
// groups the rest, publishes the run to the reporter and keeps it in history.
func (s *Service) Execute(ctx context.Context, q model.Query) (model.Run, error) {
	return s.execute(ctx, newRunID(), q)
}

// Report publishes run to the configured reporter.
func (s *Service) Report(ctx context.Context, run model.Run) error {
	if err := s.reporter.Report(ctx, run); err != nil {
		metrics.RecordReportError(s.reporter.Name())
		return fmt.Errorf("report run %s: %w", run.ID, err)
	}
	return nil
}

func (s *Service) execute(ctx context.Context, id string, q model.Query) (model.Run, error) {
	run := model.Run{ID: id, Query: q, StartedAt: s.now()}
	events, err := s.fetch(ctx, q)
	if err != nil {
		return s.fail(ctx, run, err)
	}
	return s.publish(ctx, run, events)
}

// fetch validates q and reads its events from the source. It touches no
// service state besides metrics, so windows may be fetched concurrently.
func (s *Service) fetch(ctx context.Context, q model.Query) ([]model.Event, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	if s.source == nil {
		return nil, ErrNoSource
	}
	events, err := s.source.Fetch(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("fetch events: %w", err)
	}
	metrics.RecordEventsIngested(len(events))
	return events, nil
}

// publish drops already-seen events, groups the rest, reports the run and
// records it. When the report fails the fresh IDs are released so a later
// window reports them again, and the run is recorded as failed.
func (s *Service) publish(ctx context.Context, run model.Run, events []model.Event) (model.Run, error) {
	fresh, dups := dedupe.Filter(ctx, s.deduper, events)
	for i := 0; i < dups; i++ {
		metrics.RecordEventDuplicate()
	}
	metrics.UpdateDedupeSetSize(s.deduper.Size())
	run.DuplicateCount = dups
	if dups > 0 {
		s.logger.Debug(ctx, "dropped duplicate events",
			logger.String("run", run.ID),
			logger.Int("duplicates", dups),
		)
	}

	s.group(&run, s.engine, fresh)

	if err := s.Report(ctx, run); err != nil {
		dedupe.Forget(ctx, s.deduper, fresh)
		metrics.UpdateDedupeSetSize(s.deduper.Size())
		return s.fail(ctx, run, err)
	}
	s.record(ctx, run)
	return run, nil
}

func (s *Service) group(run *model.Run, engine *grouping.Engine, events []model.Event) {
	start := time.Now()
	res := engine.Run(events)
	elapsed := time.Since(start)

	run.Threshold = engine.Threshold()
	run.Weights = engine.Weights()
	run.EventCount = len(events)
	run.Comparisons = res.Comparisons
	run.Groups = res.Groups
	run.Duration = elapsed

	for _, g := range res.Groups {
		metrics.RecordGroup(g.Size())
	}
	metrics.RecordComparisons(res.Comparisons)
	metrics.RecordCorrelationLatency(float64(elapsed.Microseconds()) / 1000)
}

func (s *Service) record(ctx context.Context, run model.Run) {
	s.history.Save(run)
	s.completed.Add(1)
	metrics.RecordRun(runStatusSuccess)
	metrics.UpdateLastRun(len(run.Groups), run.StartedAt)
	s.logger.Info(ctx, "run completed",
		logger.String("run", run.ID),
		logger.Int("events", run.EventCount),
		logger.Int("duplicates", run.DuplicateCount),
		logger.Int("groups", len(run.Groups)),
		logger.Int("comparisons", run.Comparisons),
		logger.Duration("duration", run.Duration),
	)
}

func (s *Service) fail(ctx context.Context, run model.Run, err error) (model.Run, error) {
	run.Err = err.Error()
	s.history.Save(run)
	s.failed.Add(1)
	metrics.RecordRun(runStatusError)
	metrics.RecordErrorByComponent("service", "run_failed")
	s.logger.Error(ctx, "run failed", logger.String("run", run.ID), logger.Error(err))
	return run, err
}
