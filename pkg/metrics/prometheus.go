// Package metrics provides Prometheus metrics for the RICE scoring service.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the RICE service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Session flow
	votesSubmitted     *prometheus.CounterVec
	participantsJoined *prometheus.CounterVec
	reveals            *prometheus.CounterVec
	stageAdvances      *prometheus.CounterVec
	resultsComputed    *prometheus.CounterVec
	activeSessions     prometheus.Gauge
	rankedResults      prometheus.Gauge

	// Scoring
	aggregationSkipped *prometheus.CounterVec
	aggregationLatency prometheus.Histogram

	// Catalog
	catalogFallbacks *prometheus.CounterVec
	catalogPatches   *prometheus.CounterVec

	// Repository
	repositoryLatency *prometheus.HistogramVec
	repositoryErrors  *prometheus.CounterVec

	// Event pipeline
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram
	workerCount            prometheus.Gauge
	workerActiveCount      prometheus.Gauge
	workerIdleCount        prometheus.Gauge
	workerLatency          prometheus.Histogram
	workerErrors           prometheus.Counter
	subscribers            prometheus.Gauge
	eventsDelivered        prometheus.Counter
	eventsDropped          prometheus.Counter

	// External lookups
	recordLookups *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "rice",
		subsystem:        "scoring",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	m.votesSubmitted = m.counterVec("votes_submitted_total", "Votes stored per dimension", "dimension")
	m.participantsJoined = m.counterVec("participants_joined_total", "Participants joined per role", "role")
	m.reveals = m.counterVec("reveals_total", "Reveal attempts per dimension and outcome", "dimension", "outcome")
	m.stageAdvances = m.counterVec("stage_changes_total", "Stage transitions by direction", "direction")
	m.resultsComputed = m.counterVec("results_computed_total", "Final results upserted", "partial")
	m.activeSessions = m.gauge("active_sessions", "Sessions that are not completed")
	m.rankedResults = m.gauge("ranked_results", "Results held in the score index")

	m.aggregationSkipped = m.counterVec("aggregation_skipped_total", "Vote references missing from the catalog", "dimension")
	m.aggregationLatency = m.histogram("aggregation_latency_milliseconds", "Time to aggregate all dimensions of a session")

	m.catalogFallbacks = m.counterVec("catalog_fallbacks_total", "Times the default catalog replaced a stored one", "reason")
	m.catalogPatches = m.counterVec("catalog_patches_total", "Catalog edits applied per operation", "op")

	m.repositoryLatency = m.histogramVec("repository_latency_milliseconds", "Repository operation latency", "op")
	m.repositoryErrors = m.counterVec("repository_errors_total", "Repository failures per operation", "op")

	m.queueSize = m.gauge("queue_size", "Events waiting for dispatch")
	m.queueCapacity = m.gauge("queue_capacity", "Event queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Event queue fill ratio")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Events enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Events rejected by the queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time from enqueue to dispatch")

	m.workerCount = m.gauge("worker_count", "Dispatcher workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Dispatcher workers handling an event")
	m.workerIdleCount = m.gauge("worker_idle_count", "Dispatcher workers waiting for events")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time to fan an event out")
	m.workerErrors = m.counter("worker_errors_total", "Dispatcher failures")

	m.subscribers = m.gauge("event_subscribers", "Open event stream subscriptions")
	m.eventsDelivered = m.counter("events_delivered_total", "Events handed to subscribers")
	m.eventsDropped = m.counter("events_dropped_total", "Events dropped for slow subscribers")

	m.recordLookups = m.counterVec("record_lookups_total", "Initiative metadata lookups by outcome", "outcome")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Live goroutines")
}

// Session flow.

// RecordVoteSubmitted counts a stored vote.
func RecordVoteSubmitted(dimension string) {
	globalManager.votesSubmitted.WithLabelValues(dimension).Inc()
}

// RecordParticipantJoined counts a join by role.
func RecordParticipantJoined(role string) {
	globalManager.participantsJoined.WithLabelValues(role).Inc()
}

// RecordReveal counts a reveal attempt.
func RecordReveal(dimension string, allowed bool) {
	outcome := "blocked"
	if allowed {
		outcome = "allowed"
	}
	globalManager.reveals.WithLabelValues(dimension, outcome).Inc()
}

// RecordStageChange counts a stage transition: "advance", "retreat" or "force".
func RecordStageChange(direction string) {
	globalManager.stageAdvances.WithLabelValues(direction).Inc()
}

// RecordResultComputed counts an upserted result.
func RecordResultComputed(partial bool) {
	globalManager.resultsComputed.WithLabelValues(strconv.FormatBool(partial)).Inc()
}

// UpdateActiveSessions sets the number of open sessions.
func UpdateActiveSessions(count int) {
	globalManager.activeSessions.Set(float64(count))
}

// UpdateRankedResults sets the size of the score index.
func UpdateRankedResults(count int) {
	globalManager.rankedResults.Set(float64(count))
}

// Scoring and catalog.

// RecordAggregationSkipped counts unresolved vote references.
func RecordAggregationSkipped(dimension string, n int) {
	if n > 0 {
		globalManager.aggregationSkipped.WithLabelValues(dimension).Add(float64(n))
	}
}

// RecordAggregationLatency observes aggregation time in milliseconds.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregationLatency.Observe(latencyMs)
}

// RecordCatalogFallback counts a default-catalog substitution.
func RecordCatalogFallback(reason string) {
	globalManager.catalogFallbacks.WithLabelValues(reason).Inc()
}

// RecordCatalogPatch counts an applied catalog edit.
func RecordCatalogPatch(op string) {
	globalManager.catalogPatches.WithLabelValues(op).Inc()
}

// Repository.

// RecordRepositoryLatency observes a repository call in milliseconds.
func RecordRepositoryLatency(op string, latencyMs float64) {
	globalManager.repositoryLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordRepositoryError counts a failed repository call.
func RecordRepositoryError(op string) {
	globalManager.repositoryErrors.WithLabelValues(op).Inc()
}

// Event pipeline.

// UpdateQueueSize sets the number of queued events.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued event.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued event.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError counts a rejected event.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency observes queue wait time in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the dispatcher pool size.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency observes dispatch time in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError counts a dispatcher failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// UpdateSubscribers sets the number of open subscriptions.
func UpdateSubscribers(count int) {
	globalManager.subscribers.Set(float64(count))
}

// RecordEventDelivered counts an event handed to a subscriber.
func RecordEventDelivered() {
	globalManager.eventsDelivered.Inc()
}

// RecordEventDropped counts an event a slow subscriber missed.
func RecordEventDropped() {
	globalManager.eventsDropped.Inc()
}

// External lookups.

// RecordRecordLookup counts an initiative lookup: "hit", "miss" or "error".
func RecordRecordLookup(outcome string) {
	globalManager.recordLookups.WithLabelValues(outcome).Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error by component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets heap bytes in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
