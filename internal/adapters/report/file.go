package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/google/renameio/v2"

	"github.com/okian/correlate/internal/domain/model"
)

// FileReporter replaces a file with the latest run. Readers never observe a
// partially written report.
type FileReporter struct {
	path   string
	format string
}

// NewFile returns a reporter writing to path in format.
func NewFile(path, format string) (*FileReporter, error) {
	if _, err := New(format, &bytes.Buffer{}); err != nil {
		return nil, err
	}
	return &FileReporter{path: path, format: format}, nil
}

// Name implements Reporter.
func (f *FileReporter) Name() string { return "file" }

// Report implements Reporter.
func (f *FileReporter) Report(ctx context.Context, run model.Run) error {
	var buf bytes.Buffer
	r, err := New(f.format, &buf)
	if err != nil {
		return err
	}
	if err := r.Report(ctx, run); err != nil {
		return err
	}
	if err := renameio.WriteFile(f.path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // reports are meant to be shared
		return fmt.Errorf("write report %s: %w", f.path, err)
	}
	return nil
}
