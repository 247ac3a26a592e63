// Package report renders correlation runs for operators.
package report

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/okian/correlate/internal/config"
	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/metrics"
)

// ErrUnknownFormat is returned for report formats other than text and json.
var ErrUnknownFormat = errors.New("unknown report format")

// Reporter consumes the groups of one run.
type Reporter interface {
	Name() string
	Report(ctx context.Context, run model.Run) error
}

// New returns the reporter for format writing to w.
func New(format string, w io.Writer) (Reporter, error) {
	switch format {
	case config.ReportText, "":
		return NewText(w), nil
	case config.ReportJSON:
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, format)
	}
}

// NewFromConfig returns the configured stdout reporter, fanned out to the
// report file when one is set.
func NewFromConfig(c *config.Config, w io.Writer) (Reporter, error) {
	r, err := New(c.ReportFormat, w)
	if err != nil {
		return nil, err
	}
	if c.ReportFile == "" {
		return r, nil
	}
	f, err := NewFile(c.ReportFile, c.ReportFormat)
	if err != nil {
		return nil, err
	}
	return Multi(r, f), nil
}

type multi []Reporter

// Multi fans a run out to every reporter. All reporters run; their errors
// are joined.
func Multi(reporters ...Reporter) Reporter {
	return multi(reporters)
}

func (m multi) Name() string { return "multi" }

func (m multi) Report(ctx context.Context, run model.Run) error {
	var errs []error
	for _, r := range m {
		if err := r.Report(ctx, run); err != nil {
			metrics.RecordReportError(r.Name())
			errs = append(errs, fmt.Errorf("%s: %w", r.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Discard drops every run.
var Discard Reporter = discard{}

type discard struct{}

func (discard) Name() string                            { return "discard" }
func (discard) Report(context.Context, model.Run) error { return nil }
