package testevents

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/renameio/v2"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o644
)

// Run generates a storm, writes it when OutputFile is set and replays it
// against BaseURL when set.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Named("testevents")

	events, err := Generate(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("event generation failed: %w", err)
	}
	stats.EventsGenerated = len(events)
	stats.Incidents = countIncidents(events)

	if config.OutputFile != "" {
		if err := WriteFile(config.OutputFile, events); err != nil {
			return nil, err
		}
		log.Info(ctx, "events saved to file", logger.String("filename", config.OutputFile))
	}

	if config.BaseURL != "" {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client := NewHTTPClient(config.BaseURL, timeout)
		if err := client.CheckHealth(ctx); err != nil {
			return nil, fmt.Errorf("service health check failed: %w", err)
		}
		groups, err := client.Correlate(ctx, events, config.Threshold)
		if err != nil {
			return nil, err
		}
		v := Verify(events, groups)
		stats.Groups = v.Groups
		stats.PureGroups = v.PureGroups
		stats.SplitIncidents = len(v.Split)
		if len(v.Split) > 0 {
			log.Warn(ctx, "incidents split across groups", logger.Any("incidents", v.Split))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	log.Info(ctx, "final statistics",
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("incidents", stats.Incidents),
		logger.Int("groups", stats.Groups),
		logger.Int("pureGroups", stats.PureGroups),
		logger.Int("splitIncidents", stats.SplitIncidents),
		logger.Duration("duration", stats.Duration),
	)
	return stats, nil
}

// WriteFile writes events as a JSON array, replacing path atomically.
func WriteFile(path string, events []model.Event) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal events: %w", err)
	}
	if err := renameio.WriteFile(path, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func countIncidents(events []model.Event) int {
	seen := make(map[string]struct{})
	for _, e := range events {
		seen[IncidentOf(e)] = struct{}{}
	}
	return len(seen)
}
