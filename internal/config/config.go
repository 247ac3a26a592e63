// Package config defines service configuration structures and loading hooks.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/correlate/internal/domain/similarity"
)

// Event source kinds.
const (
	SourceDatadog = "datadog"
	SourceFile    = "file"
)

// Report formats.
const (
	ReportText = "text"
	ReportJSON = "json"
)

// Default values.
const (
	defaultAddr          = ":9080"
	defaultThreshold     = 0.6
	defaultQueueSize     = 1_000
	defaultDedupeSize    = 500_000
	defaultHistorySize   = 100
	defaultWindowSeconds = 3600
	defaultPageLimit     = 100
	defaultMaxPages      = 50
	defaultTimeoutSecs   = 10
	defaultRetries       = 3
	defaultDatadogURL    = "https://api.datadoghq.com"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json log lines.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Threshold is the minimum score to join a group.
	Threshold float64 `koanf:"threshold"`
	// Weights maps title/text/tags to their coefficients.
	Weights map[string]float64 `koanf:"weights"`
	// Strict rejects out-of-range thresholds and malformed weights.
	Strict bool `koanf:"strict"`
	// NormalizeWeights rescales weights to sum to 1 before scoring.
	NormalizeWeights bool `koanf:"normalize_weights"`

	// QueueSize bounds the in-memory job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of correlation workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize sets the size of the seen-ID cache; <= 0 is unbounded.
	DedupeSize int `koanf:"dedupe_size"`
	// DedupeTTLSeconds forgets seen IDs after this long; 0 keeps them.
	DedupeTTLSeconds int `koanf:"dedupe_ttl_seconds"`
	// HistorySize caps how many runs are kept for the API.
	HistorySize int `koanf:"history_size"`

	// Source selects the event source: datadog or file.
	Source string `koanf:"source"`
	// EventsFile is the YAML events file for the file source.
	EventsFile string `koanf:"events_file"`
	// Query is the filter passed to the source.
	Query string `koanf:"query"`
	// WindowSeconds is how far back a run looks.
	WindowSeconds int `koanf:"window_seconds"`
	// PollIntervalSeconds runs correlation periodically when > 0.
	PollIntervalSeconds int `koanf:"poll_interval_seconds"`

	// ReportFormat selects how runs are printed: text or json.
	ReportFormat string `koanf:"report_format"`
	// ReportFile, when set, is atomically replaced with each run's report.
	ReportFile string `koanf:"report_file"`

	// MetricsEnabled toggles Prometheus collection.
	MetricsEnabled bool `koanf:"metrics_enabled"`
	// MetricsNamespace prefixes every metric name; empty keeps "correlate".
	MetricsNamespace string `koanf:"metrics_namespace"`
	// MetricsLabels are constant labels attached to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
	// MetricsLatencyBuckets overrides the latency histogram buckets, in ms.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`
	// MetricsRefreshSeconds is how often serve refreshes queue and history gauges.
	MetricsRefreshSeconds int `koanf:"metrics_refresh_seconds"`

	Datadog Datadog `koanf:"datadog"`
}

// Datadog configures the Datadog events API source. Empty keys fall back to
// DD_API_KEY and DD_APP_KEY.
type Datadog struct {
	APIKey         string `koanf:"api_key"`
	AppKey         string `koanf:"app_key"`
	BaseURL        string `koanf:"base_url"`
	PageLimit      int    `koanf:"page_limit"`
	MaxPages       int    `koanf:"max_pages"`
	TimeoutSeconds int    `koanf:"timeout_seconds"`
	Retries        int    `koanf:"retries"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:       "info",
		LogFormat:      "text",
		Addr:           defaultAddr,
		Threshold:      defaultThreshold,
		Weights:        similarity.DefaultWeights(),
		QueueSize:      defaultQueueSize,
		WorkerCount:    runtime.NumCPU(),
		DedupeSize:     defaultDedupeSize,
		HistorySize:    defaultHistorySize,
		Source:         SourceDatadog,
		WindowSeconds:  defaultWindowSeconds,
		ReportFormat:   ReportText,
		MetricsEnabled: true,
		Datadog: Datadog{
			BaseURL:        defaultDatadogURL,
			PageLimit:      defaultPageLimit,
			MaxPages:       defaultMaxPages,
			TimeoutSeconds: defaultTimeoutSecs,
			Retries:        defaultRetries,
		},
	}
}

// Window is the lookback of one run.
func (c *Config) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// PollInterval is the period between scheduled runs; 0 disables polling.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// DedupeTTL is how long seen IDs are remembered; 0 means until evicted.
func (c *Config) DedupeTTL() time.Duration {
	return time.Duration(c.DedupeTTLSeconds) * time.Second
}

// MetricsRefresh is the gauge refresh period; 0 keeps the metrics default.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshSeconds) * time.Second
}

// Timeout is the per-request timeout of the Datadog client.
func (d Datadog) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	switch c.Source {
	case SourceDatadog:
	case SourceFile:
		if c.EventsFile == "" {
			return fmt.Errorf("%w: events_file is required for the file source", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, c.Source)
	}
	switch c.ReportFormat {
	case ReportText, ReportJSON:
	default:
		return fmt.Errorf("%w: unknown report_format %q", ErrInvalidConfig, c.ReportFormat)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("%w: window_seconds must be positive", ErrInvalidConfig)
	}
	if c.PollIntervalSeconds < 0 {
		return fmt.Errorf("%w: poll_interval_seconds must not be negative", ErrInvalidConfig)
	}
	if c.QueueSize <= 0 || c.WorkerCount <= 0 {
		return fmt.Errorf("%w: queue_size and worker_count must be positive", ErrInvalidConfig)
	}
	if c.MetricsRefreshSeconds < 0 {
		return fmt.Errorf("%w: metrics_refresh_seconds must not be negative", ErrInvalidConfig)
	}
	for i := 1; i < len(c.MetricsLatencyBuckets); i++ {
		if c.MetricsLatencyBuckets[i] <= c.MetricsLatencyBuckets[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	if c.Strict {
		if c.Threshold < 0 || c.Threshold > 1 {
			return fmt.Errorf("%w: threshold %v outside [0, 1]", ErrInvalidConfig, c.Threshold)
		}
		if err := similarity.Weights(c.Weights).Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}
