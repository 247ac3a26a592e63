// Package testevents generates synthetic alert storms and replays them
// against a running correlation API.
package testevents

import "time"

// Defaults for a generated storm.
const (
	DefaultHosts   = 5
	DefaultRepeats = 3
	DefaultSpacing = 30 * time.Second
	DefaultTimeout = 30 * time.Second
)

// Config holds configuration for a storm.
type Config struct {
	Hosts      int           // hosts each incident fires on
	Repeats    int           // alerts per incident per host
	Incidents  []string      // incident template names; empty selects all
	Seed       uint64        // same seed, same storm
	Start      time.Time     // timestamp of the first alert
	Spacing    time.Duration // gap between consecutive alerts
	OutputFile string        // where to write the storm; empty skips writing
	BaseURL    string        // correlation API to replay against; empty skips replay
	Timeout    time.Duration // HTTP request timeout
	Threshold  *float64      // threshold override sent with the replay
}

// Stats holds the outcome of one storm run.
type Stats struct {
	EventsGenerated int
	Incidents       int
	Groups          int
	PureGroups      int
	SplitIncidents  int
	StartTime       time.Time
	EndTime         time.Time
	Duration        time.Duration
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.Hosts <= 0 {
		out.Hosts = DefaultHosts
	}
	if out.Repeats <= 0 {
		out.Repeats = DefaultRepeats
	}
	if out.Spacing <= 0 {
		out.Spacing = DefaultSpacing
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Start.IsZero() {
		out.Start = time.Now().UTC().Truncate(time.Minute).Add(-time.Hour)
	}
	return out
}
