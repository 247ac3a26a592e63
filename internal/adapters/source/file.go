package source

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/okian/correlate/internal/domain/model"
)

// FileName identifies the file source.
const FileName = "file"

// FileSource reads events from a YAML or JSON file on every fetch.
type FileSource struct {
	path string
}

// NewFileSource returns a source backed by path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Name implements Source.
func (s *FileSource) Name() string { return FileName }

// Fetch returns the file's events that fall inside the query window and match
// every filter term, in file order. The window is [From, To), so consecutive
// windows never share an event. Events without a timestamp and zero window
// bounds are not filtered by time.
func (s *FileSource) Fetch(ctx context.Context, q model.Query) ([]model.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	events, err := LoadEvents(s.path)
	if err != nil {
		return nil, err
	}

	terms := strings.Fields(q.Filter)
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if !inWindow(ev.Timestamp, q) || !matches(ev, terms) {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

type fileEvent struct {
	ID        string   `yaml:"id"`
	Title     string   `yaml:"title"`
	Text      string   `yaml:"text"`
	Message   string   `yaml:"message"`
	Tags      []string `yaml:"tags"`
	Timestamp string   `yaml:"timestamp"`
	Source    string   `yaml:"source"`
}

type fileDoc struct {
	Events []fileEvent `yaml:"events"`
}

// LoadEvents reads every event in path. The file holds either a list of
// events or a document with an "events" list.
func LoadEvents(path string) ([]model.Event, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read events file: %w", err)
	}
	return ParseEvents(data)
}

// ParseEvents decodes events from YAML or JSON.
func ParseEvents(data []byte) ([]model.Event, error) {
	var raw []fileEvent
	if err := yaml.Unmarshal(data, &raw); err != nil {
		var doc fileDoc
		if derr := yaml.Unmarshal(data, &doc); derr != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		raw = doc.Events
	}

	events := make([]model.Event, 0, len(raw))
	for i, fe := range raw {
		ts, err := parseTimeFlexible(fe.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrDecode, i, err)
		}
		text := fe.Text
		if text == "" {
			text = fe.Message
		}
		src := fe.Source
		if src == "" {
			src = FileName
		}
		events = append(events, model.Event{
			ID:        fe.ID,
			Title:     fe.Title,
			Text:      text,
			Tags:      fe.Tags,
			Timestamp: ts,
			Source:    src,
		})
	}
	return events, nil
}

func inWindow(ts time.Time, q model.Query) bool {
	if ts.IsZero() {
		return true
	}
	if !q.From.IsZero() && ts.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && !ts.Before(q.To) {
		return false
	}
	return true
}

// matches requires each term to equal a tag or appear in the title or text.
func matches(ev model.Event, terms []string) bool {
	for _, term := range terms {
		if !hasTag(ev.Tags, term) &&
			!strings.Contains(strings.ToLower(ev.Title), strings.ToLower(term)) &&
			!strings.Contains(strings.ToLower(ev.Text), strings.ToLower(term)) {
			return false
		}
	}
	return true
}

func hasTag(tags []string, term string) bool {
	for _, t := range tags {
		if t == term {
			return true
		}
	}
	return false
}
