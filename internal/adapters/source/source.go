// Package source retrieves the ordered event sequence for a query window.
package source

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/logger"
	"github.com/okian/correlate/pkg/metrics"
)

// Source yields a finite, stably ordered sequence of events for a query.
type Source interface {
	Name() string
	Fetch(ctx context.Context, q model.Query) ([]model.Event, error)
}

// NewFromConfig builds the configured source wrapped with metrics and logging.
func NewFromConfig(c *config.Config) (Source, error) {
	var (
		src Source
		err error
	)
	switch c.Source {
	case config.SourceDatadog:
		src, err = NewDatadogSource(DatadogConfig{
			APIKey:    c.Datadog.APIKey,
			AppKey:    c.Datadog.AppKey,
			BaseURL:   c.Datadog.BaseURL,
			PageLimit: c.Datadog.PageLimit,
			MaxPages:  c.Datadog.MaxPages,
			Timeout:   c.Datadog.Timeout(),
			Retries:   c.Datadog.Retries,
		})
	case config.SourceFile:
		src = NewFileSource(c.EventsFile)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, c.Source)
	}
	if err != nil {
		return nil, err
	}
	return Instrument(src), nil
}

// Instrument records fetch latency, event counts and errors for src.
func Instrument(src Source) Source {
	if _, ok := src.(*instrumented); ok {
		return src
	}
	return &instrumented{next: src, log: logger.Named("source." + src.Name())}
}

type instrumented struct {
	next Source
	log  logger.Logger
}

func (s *instrumented) Name() string { return s.next.Name() }

func (s *instrumented) Fetch(ctx context.Context, q model.Query) ([]model.Event, error) {
	start := time.Now()
	events, err := s.next.Fetch(ctx, q)
	elapsed := time.Since(start)
	if err != nil {
		metrics.RecordSourceError(s.next.Name())
		s.log.Error(ctx, "fetch failed",
			logger.Error(err),
			logger.Any("from", q.From),
			logger.Any("to", q.To),
		)
		return nil, err
	}
	metrics.RecordSourceFetch(s.next.Name(), float64(elapsed.Milliseconds()), len(events))
	s.log.Debug(ctx, "fetched events",
		logger.Int("count", len(events)),
		logger.Duration("took", elapsed),
	)
	return events, nil
}
