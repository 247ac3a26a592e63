package service

import (
	"time"

	"github.com/okian/correlate/internal/adapters/report"
	"github.com/okian/correlate/internal/adapters/source"
	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/internal/domain/similarity"
	"github.com/okian/correlate/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithConfig applies every setting of c. Options given after it win.
func WithConfig(c *config.Config) Option {
	return func(s *Service) {
		if c == nil {
			return
		}
		s.threshold = c.Threshold
		s.weights = similarity.Weights(c.Weights).Clone()
		s.strict = c.Strict
		s.normalize = c.NormalizeWeights
		WithWorkerCount(c.WorkerCount)(s)
		WithQueueSize(c.QueueSize)(s)
		WithDedupeSize(c.DedupeSize)(s)
		WithDedupeTTL(c.DedupeTTL())(s)
		WithHistorySize(c.HistorySize)(s)
		WithWindow(c.Window())(s)
		s.filter = c.Query
	}
}

// WithSource sets the event source used by Execute, Submit, Backfill and Poll.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = source.Instrument(src)
		}
	}
}

// WithReporter sets where completed runs are published.
func WithReporter(r report.Reporter) Option {
	return func(s *Service) {
		if r != nil {
			s.reporter = r
		}
	}
}

// WithThreshold sets the grouping threshold.
func WithThreshold(threshold float64) Option {
	return func(s *Service) {
		s.threshold = threshold
	}
}

// WithWeights sets the similarity weights. Empty weights select the defaults.
func WithWeights(w similarity.Weights) Option {
	return func(s *Service) {
		s.weights = w.Clone()
	}
}

// WithStrict enables validation of the threshold and weights.
func WithStrict(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithNormalizedWeights rescales the weights to sum to 1 before scoring.
func WithNormalizedWeights(normalize bool) Option {
	return func(s *Service) {
		s.normalize = normalize
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of queued jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithDedupeTTL expires remembered event IDs after ttl. Zero keeps them
// until evicted.
func WithDedupeTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl >= 0 {
			s.dedupeTTL = ttl
		}
	}
}

// WithHistorySize sets how many runs are kept for Runs and Run.
func WithHistorySize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.historySize = size
		}
	}
}

// WithWindow sets the window Poll looks back over on each tick.
func WithWindow(window time.Duration) Option {
	return func(s *Service) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithFilter sets the source filter used by Poll.
func WithFilter(filter string) Option {
	return func(s *Service) {
		s.filter = filter
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
