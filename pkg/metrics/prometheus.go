// Package metrics provides Prometheus metrics for the gridpick prediction service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the gridpick service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer
	gatherer         prometheus.Gatherer

	// Game metrics
	predictionsSubmitted *prometheus.CounterVec
	sessionsSkipped      *prometheus.CounterVec
	h2hPredictions       prometheus.Counter
	resultsPublished     *prometheus.CounterVec
	scoresWritten        prometheus.Counter
	h2hScoresWritten     prometheus.Counter
	publishLatency       prometheus.Histogram
	rejections           *prometheus.CounterVec
	leaderboardReads     *prometheus.CounterVec
	seasonsRescored      prometheus.Counter

	// Reference data sizes
	entityCount *prometheus.GaugeVec

	// Store metrics
	storeLatency   *prometheus.HistogramVec
	storeConflicts prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec

	// Rescore queue metrics
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	queueEnqueueRate  prometheus.Counter
	queueDequeueRate  prometheus.Counter
	queueEnqueueError prometheus.Counter

	// Rescore worker metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// active is the process-wide manager the package-level recorders write to.
var active atomic.Pointer[Manager] //nolint:gochecknoglobals // singleton metrics manager

func init() { //nolint:gochecknoinits // default manager until Configure runs
	Configure()
}

// Configure replaces the process-wide manager with one built from opts on a
// fresh registry, so Go runtime collectors stay off /metrics. Call it at
// startup before GetRegistry is handed to an HTTP handler.
func Configure(opts ...Option) *Manager {
	m := NewManager(append([]Option{WithPrometheusRegistry(prometheus.NewRegistry())}, opts...)...)
	active.Store(m)
	return m
}

func global() *Manager { return active.Load() }

// recording returns the active manager, or nil when recording is disabled.
func recording() *Manager {
	if m := global(); m.enabled {
		return m
	}
	return nil
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "gridpick",
		subsystem:        "game",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
		gatherer:         prometheus.DefaultGatherer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval reports how often callers should refresh gauge metrics.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Enabled reports whether the recorders write to this manager.
func (m *Manager) Enabled() bool { return m.enabled }

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.predictionsSubmitted = auto.NewCounterVec(
		m.counterOpts("predictions_submitted_total", "Top-5 predictions stored, by session"),
		[]string{"session"},
	)
	m.sessionsSkipped = auto.NewCounterVec(
		m.counterOpts("sessions_skipped_total", "Locked sessions skipped during cascade submissions"),
		[]string{"session"},
	)
	m.h2hPredictions = auto.NewCounter(
		m.counterOpts("h2h_predictions_total", "Head-to-head picks stored"),
	)
	m.resultsPublished = auto.NewCounterVec(
		m.counterOpts("results_published_total", "Session classifications published, by session"),
		[]string{"session"},
	)
	m.scoresWritten = auto.NewCounter(
		m.counterOpts("scores_written_total", "Top-5 score rows written by publication or rescore"),
	)
	m.h2hScoresWritten = auto.NewCounter(
		m.counterOpts("h2h_scores_written_total", "Head-to-head score rows written by publication or rescore"),
	)
	m.publishLatency = auto.NewHistogram(
		m.histogramOpts("publish_latency_milliseconds", "Latency of a full result publication in milliseconds", m.histogramBuckets),
	)
	m.rejections = auto.NewCounterVec(
		m.counterOpts("rejections_total", "Rejected operations by error kind"),
		[]string{"kind"},
	)
	m.leaderboardReads = auto.NewCounterVec(
		m.counterOpts("leaderboard_reads_total", "Leaderboard reads by board kind"),
		[]string{"kind"},
	)
	m.seasonsRescored = auto.NewCounter(
		m.counterOpts("seasons_rescored_total", "Completed season rescore runs"),
	)

	m.entityCount = auto.NewGaugeVec(
		m.gaugeOpts("entities", "Stored rows by entity kind"),
		[]string{"kind"},
	)

	m.storeLatency = auto.NewHistogramVec(
		m.histogramOpts("store_latency_milliseconds", "Entity store transaction latency in milliseconds", m.histogramBuckets),
		[]string{"op"},
	)
	m.storeConflicts = auto.NewCounter(
		m.counterOpts("store_conflicts_total", "Store transactions retried after a write conflict"),
	)

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("rescore_queue_size", "Current size of the rescore queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("rescore_queue_capacity", "Maximum rescore queue capacity"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("rescore_queue_enqueue_total", "Rescore jobs enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("rescore_queue_dequeue_total", "Rescore jobs dequeued"))
	m.queueEnqueueError = auto.NewCounter(m.counterOpts("rescore_queue_enqueue_errors_total", "Rescore jobs rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("rescore_worker_count", "Configured rescore workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("rescore_worker_active_count", "Rescore workers currently processing a job"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("rescore_worker_latency_milliseconds", "Per-session rescore latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("rescore_worker_errors_total", "Rescore jobs that failed"))

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// RecordPredictionSubmitted increments the stored predictions counter for a session.
func RecordPredictionSubmitted(session string) {
	if m := recording(); m != nil {
		m.predictionsSubmitted.WithLabelValues(session).Inc()
	}
}

// RecordSessionSkipped counts a locked session skipped by a cascade submission.
func RecordSessionSkipped(session string) {
	if m := recording(); m != nil {
		m.sessionsSkipped.WithLabelValues(session).Inc()
	}
}

// RecordH2HPredictions adds n stored head-to-head picks.
func RecordH2HPredictions(n int) {
	if m := recording(); m != nil {
		m.h2hPredictions.Add(float64(n))
	}
}

// RecordResultPublished increments the published results counter for a session.
func RecordResultPublished(session string) {
	if m := recording(); m != nil {
		m.resultsPublished.WithLabelValues(session).Inc()
	}
}

// RecordScoresWritten adds n top-5 score rows.
func RecordScoresWritten(n int) {
	if m := recording(); m != nil {
		m.scoresWritten.Add(float64(n))
	}
}

// RecordH2HScoresWritten adds n head-to-head score rows.
func RecordH2HScoresWritten(n int) {
	if m := recording(); m != nil {
		m.h2hScoresWritten.Add(float64(n))
	}
}

// RecordPublishLatency records a publication latency in milliseconds.
func RecordPublishLatency(latencyMs float64) {
	if m := recording(); m != nil {
		m.publishLatency.Observe(latencyMs)
	}
}

// RecordRejection counts an operation rejected with the given error kind.
func RecordRejection(kind string) {
	if m := recording(); m != nil {
		m.rejections.WithLabelValues(kind).Inc()
	}
}

// RecordLeaderboardRead counts a leaderboard read ("season", "h2h", "race").
func RecordLeaderboardRead(kind string) {
	if m := recording(); m != nil {
		m.leaderboardReads.WithLabelValues(kind).Inc()
	}
}

// RecordSeasonRescored counts a completed season rescore.
func RecordSeasonRescored() {
	if m := recording(); m != nil {
		m.seasonsRescored.Inc()
	}
}

// UpdateEntityCount sets the stored row count for an entity kind.
func UpdateEntityCount(kind string, count int) {
	if m := recording(); m != nil {
		m.entityCount.WithLabelValues(kind).Set(float64(count))
	}
}

// RecordStoreLatency records a store transaction latency ("view" or "update").
func RecordStoreLatency(op string, latencyMs float64) {
	if m := recording(); m != nil {
		m.storeLatency.WithLabelValues(op).Observe(latencyMs)
	}
}

// RecordStoreConflict counts a store transaction retried after a conflict.
func RecordStoreConflict() {
	if m := recording(); m != nil {
		m.storeConflicts.Inc()
	}
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if m := recording(); m != nil {
		m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	}
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if m := recording(); m != nil {
		m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
	}
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if m := recording(); m != nil {
		m.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current rescore queue size.
func UpdateQueueSize(size int) {
	if m := recording(); m != nil {
		m.queueSize.Set(float64(size))
	}
}

// UpdateQueueCapacity sets the maximum rescore queue capacity.
func UpdateQueueCapacity(capacity int) {
	if m := recording(); m != nil {
		m.queueCapacity.Set(float64(capacity))
	}
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if m := recording(); m != nil {
		m.queueEnqueueRate.Inc()
	}
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if m := recording(); m != nil {
		m.queueDequeueRate.Inc()
	}
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if m := recording(); m != nil {
		m.queueEnqueueError.Inc()
	}
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if m := recording(); m != nil {
		m.workerCount.Set(float64(count))
	}
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	if m := recording(); m != nil {
		m.workerActiveCount.Set(float64(count))
	}
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if m := recording(); m != nil {
		m.workerProcessingLatency.Observe(latencyMs)
	}
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if m := recording(); m != nil {
		m.workerErrors.Inc()
	}
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if m := recording(); m != nil {
		m.systemMemoryUsage.Set(float64(bytes))
	}
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if m := recording(); m != nil {
		m.systemGoroutineCount.Set(float64(count))
	}
}

// GetRegistry returns the gatherer behind the active manager.
func GetRegistry() prometheus.Gatherer {
	return global().gatherer
}
