// Package metrics provides Prometheus metrics for the event correlation service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// groupSizeBuckets covers singleton groups up to large alert storms.
var groupSizeBuckets = []float64{1, 2, 3, 5, 10, 25, 50, 100, 250, 1000} //nolint:gochecknoglobals // fixed histogram layout

// Manager manages all Prometheus metrics for the correlation service.
type Manager struct {
	namespace       string
	latencyBuckets  []float64
	enabled         bool
	refreshInterval time.Duration
	constLabels     prometheus.Labels
	registry        prometheus.Registerer

	// Correlation Metrics - what the service exists for
	runs               *prometheus.CounterVec
	eventsIngested     prometheus.Counter
	eventsDuplicate    prometheus.Counter
	groupsCreated      prometheus.Counter
	groupSize          prometheus.Histogram
	comparisons        prometheus.Counter
	correlationLatency prometheus.Histogram
	lastRunGroups      prometheus.Gauge
	lastRunUnix        prometheus.Gauge

	// Source Metrics - upstream event retrieval
	sourceFetchLatency *prometheus.HistogramVec
	sourceFetchErrors  *prometheus.CounterVec
	sourceEvents       *prometheus.CounterVec

	// Reporting Metrics
	reportErrors  *prometheus.CounterVec
	historySize   prometheus.Gauge
	dedupeSetSize prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics - job queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerBusy              prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:       "correlate",
		latencyBuckets:  prometheus.DefBuckets,
		enabled:         true,
		refreshInterval: defaultRefreshInterval,
		constLabels:     prometheus.Labels{},
		registry:        prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often callers should refresh gauge snapshots.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	// Correlation Metrics
	m.runs = auto.NewCounterVec(m.counterOpts("runs_total", "Total number of correlation runs by outcome"), []string{"status"})
	m.eventsIngested = auto.NewCounter(m.counterOpts("events_ingested_total", "Total number of events handed to the grouping engine"))
	m.eventsDuplicate = auto.NewCounter(m.counterOpts("events_duplicate_total", "Total number of events dropped because their ID was already seen"))
	m.groupsCreated = auto.NewCounter(m.counterOpts("groups_created_total", "Total number of groups produced"))
	m.groupSize = auto.NewHistogram(m.histogramOpts("group_size", "Distribution of group sizes", groupSizeBuckets))
	m.comparisons = auto.NewCounter(m.counterOpts("representative_comparisons_total", "Total number of event-to-representative comparisons"))
	m.correlationLatency = auto.NewHistogram(m.histogramOpts("correlation_latency_milliseconds", "Grouping latency per run in milliseconds", m.latencyBuckets))
	m.lastRunGroups = auto.NewGauge(m.gaugeOpts("last_run_groups", "Number of groups produced by the most recent run"))
	m.lastRunUnix = auto.NewGauge(m.gaugeOpts("last_run_unix", "Unix timestamp of the most recent completed run"))

	// Source Metrics
	m.sourceFetchLatency = auto.NewHistogramVec(m.histogramOpts("source_fetch_latency_milliseconds", "Event source fetch latency in milliseconds", m.latencyBuckets), []string{"source"})
	m.sourceFetchErrors = auto.NewCounterVec(m.counterOpts("source_fetch_errors_total", "Total number of event source fetch failures"), []string{"source"})
	m.sourceEvents = auto.NewCounterVec(m.counterOpts("source_events_total", "Total number of events returned by each source"), []string{"source"})

	// Reporting Metrics
	m.reportErrors = auto.NewCounterVec(m.counterOpts("report_errors_total", "Total number of reporter failures"), []string{"reporter"})
	m.historySize = auto.NewGauge(m.gaugeOpts("history_size", "Number of runs retained in the in-memory history"))
	m.dedupeSetSize = auto.NewGauge(m.gaugeOpts("dedupe_set_size", "Number of event IDs tracked by the deduper"))

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.latencyBuckets), []string{"endpoint", "method", "status_code"})

	// Queue Metrics
	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current number of queued correlation jobs"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum job queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Job queue utilization ratio (current size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of jobs enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of jobs dequeued"))
	m.queueRejected = auto.NewCounter(m.counterOpts("queue_rejected_total", "Total number of jobs rejected by backpressure"))

	// Worker Metrics
	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of correlation workers"))
	m.workerBusy = auto.NewGauge(m.gaugeOpts("worker_busy_count", "Number of workers currently running a job"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "End-to-end job latency in milliseconds", m.latencyBuckets))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of failed jobs"))

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Total number of errors by component"), []string{"component", "error_type"})
	m.errorRateByType = auto.NewCounterVec(m.counterOpts("errors_by_type_total", "Total number of errors by type"), []string{"error_type", "severity"})
	m.errorRateByEndpoint = auto.NewCounterVec(m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"), []string{"endpoint", "method", "error_type"})

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}))
}

// Correlation Metrics Functions.

// RecordRun increments the run counter for the given status ("ok", "error").
func RecordRun(status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.runs.WithLabelValues(status).Inc()
}

// RecordEventsIngested adds n events handed to the engine.
func RecordEventsIngested(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsIngested.Add(float64(n))
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	if !globalManager.enabled {
		return
	}
	globalManager.eventsDuplicate.Inc()
}

// RecordGroup records a produced group and its size.
func RecordGroup(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.groupsCreated.Inc()
	globalManager.groupSize.Observe(float64(size))
}

// RecordComparisons adds n representative comparisons.
func RecordComparisons(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.comparisons.Add(float64(n))
}

// RecordCorrelationLatency records grouping latency in milliseconds.
func RecordCorrelationLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.correlationLatency.Observe(latencyMs)
}

// UpdateLastRun records the group count and completion time of the latest run.
func UpdateLastRun(groups int, at time.Time) {
	globalManager.lastRunGroups.Set(float64(groups))
	globalManager.lastRunUnix.Set(float64(at.Unix()))
}

// Source Metrics Functions.

// RecordSourceFetch records a successful fetch and the number of events returned.
func RecordSourceFetch(source string, latencyMs float64, events int) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceFetchLatency.WithLabelValues(source).Observe(latencyMs)
	globalManager.sourceEvents.WithLabelValues(source).Add(float64(events))
}

// RecordSourceError increments the fetch failure counter for a source.
func RecordSourceError(source string) {
	if !globalManager.enabled {
		return
	}
	globalManager.sourceFetchErrors.WithLabelValues(source).Inc()
}

// Reporting Metrics Functions.

// RecordReportError increments the failure counter for a reporter.
func RecordReportError(reporter string) {
	if !globalManager.enabled {
		return
	}
	globalManager.reportErrors.WithLabelValues(reporter).Inc()
}

// UpdateHistorySize sets the number of retained runs.
func UpdateHistorySize(n int) {
	globalManager.historySize.Set(float64(n))
}

// UpdateDedupeSetSize sets the number of tracked event IDs.
func UpdateDedupeSetSize(n int64) {
	globalManager.dedupeSetSize.Set(float64(n))
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records the HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueRejected increments the backpressure counter.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the number of workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// WorkerBusy adjusts the busy worker gauge by delta.
func WorkerBusy(delta int) {
	globalManager.workerBusy.Add(float64(delta))
}

// RecordWorkerProcessingLatency records end-to-end job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure rebuilds the global manager from opts on a fresh registry. Call
// it once at startup, before anything records or serves metrics.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	manager := NewManager(append([]Option{WithPrometheusRegistry(registry)}, opts...)...)
	customRegistry = registry
	globalManager = manager
}

// RefreshInterval is how often the global manager's gauges should be refreshed.
func RefreshInterval() time.Duration {
	return globalManager.refreshInterval
}

// SetEnabled toggles observation recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
