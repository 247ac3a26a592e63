package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/okian/correlate/internal/domain/model"
)

// TextReporter prints each group as a header followed by member titles:
//
//	Group 1 (3 events):
//	 - disk space low on host1
type TextReporter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewText returns a text reporter writing to w.
func NewText(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// Name implements Reporter.
func (t *TextReporter) Name() string { return "text" }

// Report implements Reporter.
func (t *TextReporter) Report(_ context.Context, run model.Run) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	bw := bufio.NewWriter(t.w)
	for i, g := range run.Groups {
		fmt.Fprintf(bw, "\nGroup %d (%d events):\n", i+1, g.Size())
		for _, ev := range g.Events {
			fmt.Fprintf(bw, " - %s\n", ev.Title)
		}
	}
	return bw.Flush()
}
