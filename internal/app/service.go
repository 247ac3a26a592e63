// Package service wires event sources, deduplication, the grouping engine,
// the job queue, reporters and run history into the operations the CLI and
// HTTP API expose.
package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	eventqueue "github.com/okian/correlate/internal/adapters/mq/queue"
	workerpool "github.com/okian/correlate/internal/adapters/mq/worker"
	"github.com/okian/correlate/internal/adapters/report"
	"github.com/okian/correlate/internal/adapters/repository"
	"github.com/okian/correlate/internal/adapters/source"
	"github.com/okian/correlate/internal/domain/dedupe"
	"github.com/okian/correlate/internal/domain/grouping"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/internal/domain/similarity"
	"github.com/okian/correlate/pkg/logger"
	"github.com/okian/correlate/pkg/metrics"
)

const (
	defaultQueueSize   = 1000
	defaultDedupeSize  = 500000
	defaultHistorySize = 100
	defaultWindow      = time.Hour
	stopTimeout        = 30 * time.Second
)

// Service implements the correlation operations.
type Service struct {
	mu sync.RWMutex

	// Core components
	source   source.Source
	reporter report.Reporter
	engine   *grouping.Engine
	deduper  dedupe.Deduper
	history  repository.Store
	jobs     *eventqueue.InMemoryQueue
	pool     *workerpool.Pool

	// Configuration
	threshold   float64
	weights     similarity.Weights
	strict      bool
	normalize   bool
	workerCount int
	queueSize   int
	dedupeSize  int
	dedupeTTL   time.Duration
	historySize int
	window      time.Duration
	filter      string

	// State
	started   bool
	cancel    context.CancelFunc
	completed atomic.Int64
	failed    atomic.Int64

	now    func() time.Time
	logger logger.Logger
}

// New constructs a Service. It fails only when the grouping settings are
// rejected in strict or normalized mode.
func New(opts ...Option) (*Service, error) {
	s := &Service{
		reporter:    report.Discard,
		threshold:   grouping.DefaultThreshold,
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
		historySize: defaultHistorySize,
		window:      defaultWindow,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	engine, err := grouping.New(s.engineOptions()...)
	if err != nil {
		return nil, fmt.Errorf("grouping engine: %w", err)
	}
	s.engine = engine
	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
		dedupe.WithTTL(s.dedupeTTL),
		dedupe.WithClock(s.now),
	)
	s.history = repository.NewMemoryStore(repository.WithCapacity(s.historySize))
	return s, nil
}

func (s *Service) engineOptions() []grouping.Option {
	opts := []grouping.Option{
		grouping.WithThreshold(s.threshold),
		grouping.WithStrict(s.strict),
	}
	if s.normalize {
		return append(opts, grouping.WithNormalizedWeights(s.weights))
	}
	return append(opts, grouping.WithWeights(s.weights))
}

// Start creates the job queue and starts the worker pool. Calling it on a
// started service is a no-op.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting correlation service...")

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.jobs = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.jobs, workerpool.ProcessorFunc(s.process))
	s.pool.Start(runCtx)

	s.cancel = cancel
	s.started = true
	s.logger.Info(ctx, "correlation service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Float64("threshold", s.engine.Threshold()),
	)
	return nil
}

// Stop closes the job queue, waits for queued jobs to finish and stops the
// workers.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping correlation service...")

	stopCtx, cancel := context.WithTimeout(ctx, stopTimeout)
	defer cancel()
	err := s.pool.Shutdown(stopCtx)
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "correlation service stopped")
	return err
}

// Submit queues a correlation of q and returns the job ID, which is also the
// ID of the resulting run.
func (s *Service) Submit(ctx context.Context, q model.Query) (string, error) {
	if err := q.Validate(); err != nil {
		return "", err
	}
	if s.source == nil {
		return "", ErrNoSource
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return "", ErrNotStarted
	}

	job := model.Job{ID: newRunID(), Query: q}
	if !s.jobs.Enqueue(ctx, job) {
		return "", ErrBackpressure
	}
	s.logger.Debug(ctx, "job queued", logger.String("job", job.ID))
	return job.ID, nil
}

func (s *Service) process(ctx context.Context, job model.Job) error {
	_, err := s.execute(ctx, job.ID, job.Query)
	return err
}

// Runs returns up to limit recent runs, newest first. Zero returns all.
func (s *Service) Runs(limit int) ([]model.Run, error) {
	return s.history.List(limit)
}

// Run returns a recent run by ID.
func (s *Service) Run(id string) (model.Run, error) {
	return s.history.Get(id)
}

// Engine returns the configured grouping engine.
func (s *Service) Engine() *grouping.Engine { return s.engine }

// Explain scores a against b with the service weights, or with w when it is
// not empty.
func (s *Service) Explain(a, b model.Event, w similarity.Weights) similarity.Breakdown {
	if len(w) == 0 {
		return s.engine.Scorer().Explain(a, b)
	}
	return similarity.Explain(a, b, w)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":        s.started,
		"workerCount":    s.workerCount,
		"queueSize":      s.queueSize,
		"dedupeSize":     s.dedupeSize,
		"dedupeEntries":  s.deduper.Size(),
		"threshold":      s.engine.Threshold(),
		"weights":        s.engine.Weights(),
		"runsCompleted":  s.completed.Load(),
		"runsFailed":     s.failed.Load(),
		"historyEntries": s.history.Count(),
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
	}
	if latest, err := s.history.Latest(); err == nil {
		stats["lastRun"] = latest.ID
		stats["lastRunGroups"] = len(latest.Groups)
	}

	if s.started {
		queueLen := s.jobs.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateWorkerCount(s.pool.Size())
	}
	metrics.UpdateDedupeSetSize(s.deduper.Size())

	return stats
}

// Size returns the current number of entries in the deduper.
func (s *Service) Size() int64 {
	return s.deduper.Size()
}
