package report

import (
	"context"
	"io"
	"sync"

	json "github.com/goccy/go-json"

	"github.com/okian/correlate/internal/domain/model"
)

// JSONReporter writes one JSON document per run.
type JSONReporter struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewJSON returns a JSON reporter writing to w.
func NewJSON(w io.Writer) *JSONReporter {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return &JSONReporter{enc: enc}
}

// Name implements Reporter.
func (j *JSONReporter) Name() string { return "json" }

// Report implements Reporter.
func (j *JSONReporter) Report(_ context.Context, run model.Run) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(run)
}
