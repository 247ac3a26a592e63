package testevents

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/correlate/internal/domain/model"
	"github.com/okian/correlate/pkg/logger"
)

// IncidentTag marks which template produced an event.
const IncidentTag = "alertname:"

// incident is a family of near-duplicate alerts.
type incident struct {
	name    string
	service string
	title   string // %s is the host
	text    string // %s is the host, %d the jittered value
	base    int
	jitter  int
}

var incidents = []incident{ //nolint:gochecknoglobals // fixed template table
	{name: "disk_space_low", service: "disk", title: "disk space low on %s", text: "%s /var disk at %d%%", base: 88, jitter: 10},
	{name: "cpu_saturated", service: "cpu", title: "cpu usage high on %s", text: "%s cpu at %d%% for 5m", base: 90, jitter: 9},
	{name: "memory_pressure", service: "memory", title: "memory pressure on %s", text: "%s resident memory %d%% of limit", base: 85, jitter: 12},
	{name: "http_5xx", service: "web", title: "elevated 5xx responses from %s", text: "%s returned %d errors per minute", base: 40, jitter: 60},
	{name: "replication_lag", service: "db", title: "replication lag on %s", text: "replica %s is %d seconds behind primary", base: 30, jitter: 90},
	{name: "cert_expiry", service: "tls", title: "certificate expiring on %s", text: "certificate for %s expires in %d days", base: 3, jitter: 10},
}

// IncidentNames lists the available templates.
func IncidentNames() []string {
	names := make([]string, len(incidents))
	for i, inc := range incidents {
		names[i] = inc.name
	}
	return names
}

func selectIncidents(names []string) ([]incident, error) {
	if len(names) == 0 {
		return incidents, nil
	}
	byName := make(map[string]incident, len(incidents))
	for _, inc := range incidents {
		byName[inc.name] = inc
	}
	out := make([]incident, 0, len(names))
	for _, n := range names {
		inc, ok := byName[strings.TrimSpace(n)]
		if !ok {
			return nil, fmt.Errorf("unknown incident %q; have %s", n, strings.Join(IncidentNames(), ", "))
		}
		out = append(out, inc)
	}
	return out, nil
}

// Generate builds a storm: every incident fires Repeats times on each of
// Hosts hosts with jittered values. Alerts are interleaved across incidents
// the way they arrive from a real monitor, and timestamps advance by
// Spacing. The same Config, seed included, always yields the same storm.
func Generate(ctx context.Context, config *Config) ([]model.Event, error) {
	cfg := config.withDefaults()
	selected, err := selectIncidents(cfg.Incidents)
	if err != nil {
		return nil, err
	}

	var seed [32]byte
	for i := 0; i < 8; i++ {
		seed[i] = byte(cfg.Seed >> (8 * i))
	}
	src := rand.NewChaCha8(seed)
	rng := rand.New(src)

	total := len(selected) * cfg.Hosts * cfg.Repeats
	logger.Get().Info(ctx, "generating alert storm",
		logger.Int("incidents", len(selected)),
		logger.Int("hosts", cfg.Hosts),
		logger.Int("events", total),
	)

	events := make([]model.Event, 0, total)
	for r := 0; r < cfg.Repeats; r++ {
		for h := 0; h < cfg.Hosts; h++ {
			host := fmt.Sprintf("host%d", h+1)
			for _, inc := range selected {
				if err := ctx.Err(); err != nil {
					return nil, fmt.Errorf("context cancelled during event generation: %w", err)
				}
				id, err := uuid.NewRandomFromReader(src)
				if err != nil {
					return nil, fmt.Errorf("event id: %w", err)
				}
				events = append(events, model.Event{
					ID:    id.String(),
					Title: fmt.Sprintf(inc.title, host),
					Text:  fmt.Sprintf(inc.text, host, inc.base+rng.IntN(inc.jitter+1)),
					Tags: []string{
						"host:" + host,
						"service:" + inc.service,
						IncidentTag + inc.name,
					},
					Timestamp: cfg.Start.Add(time.Duration(len(events)) * cfg.Spacing),
					Source:    "testevents",
				})
			}
		}
	}
	rng.Shuffle(len(events), func(i, j int) {
		events[i], events[j] = events[j], events[i]
		events[i].Timestamp, events[j].Timestamp = events[j].Timestamp, events[i].Timestamp
	})
	return events, nil
}

// IncidentOf returns the template name recorded in e's tags.
func IncidentOf(e model.Event) string {
	for _, t := range e.Tags {
		if strings.HasPrefix(t, IncidentTag) {
			return strings.TrimPrefix(t, IncidentTag)
		}
	}
	return ""
}
