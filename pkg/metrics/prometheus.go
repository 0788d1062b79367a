// Package metrics provides Prometheus metrics for the BookPickr service.
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

// Manager manages all Prometheus metrics for the BookPickr service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Selection engine
	picksTotal      prometheus.Counter
	resetsTotal     prometheus.Counter
	rounds          prometheus.Gauge
	poolSize        prometheus.Gauge
	engineBlocked   prometheus.Gauge
	poolCommits     *prometheus.CounterVec
	staleEnrichment prometheus.Counter

	// Catalog client
	catalogRequests      *prometheus.CounterVec
	catalogLatency       *prometheus.HistogramVec
	cacheLookups         *prometheus.CounterVec
	breakerState         *prometheus.GaugeVec
	breakerTransitions   *prometheus.CounterVec
	enrichmentLatency    prometheus.Histogram
	enrichmentMissing    *prometheus.CounterVec
	catalogDedupeDropped prometheus.Counter

	// Prefetch queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	prefetchDuplicates prometheus.Counter

	// Prefetch workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
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
		namespace:        "bookpickr",
		subsystem:        "picker",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	m.picksTotal = m.counter("picks_total", "Total number of picks accepted by the selection engine")
	m.resetsTotal = m.counter("resets_total", "Total number of engine resets and re-initializations")
	m.rounds = m.gauge("rounds", "Rounds completed since the last initialize or reset")
	m.poolSize = m.gauge("pool_size", "Number of candidates in the active pool")
	m.engineBlocked = m.gauge("engine_blocked", "1 when the active pool is too small to compare, else 0")
	m.poolCommits = m.counterVec("pool_commits_total", "Pool replacements by source", "source")
	m.staleEnrichment = m.counter("stale_enrichments_total", "Enrichment results discarded because the pair changed")

	m.catalogRequests = m.counterVec("catalog_requests_total", "Catalog API calls by endpoint and outcome", "endpoint", "outcome")
	m.catalogLatency = m.histogramVec("catalog_latency_milliseconds", "Catalog API latency in milliseconds", "endpoint")
	m.cacheLookups = m.counterVec("catalog_cache_lookups_total", "Catalog cache lookups by cache and result", "cache", "result")
	m.breakerState = m.gaugeVec("circuit_breaker_state", "Circuit breaker state (0=closed, 1=half-open, 2=open)", "name")
	m.breakerTransitions = m.counterVec("circuit_breaker_transitions_total", "Circuit breaker state transitions", "name", "from", "to")
	m.enrichmentLatency = m.histogram("enrichment_latency_milliseconds", "Time to enrich the active pair in milliseconds", m.histogramBuckets)
	m.enrichmentMissing = m.counterVec("enrichment_missing_total", "Enrichment lookups that resolved to nothing", "kind")
	m.catalogDedupeDropped = m.counter("catalog_duplicates_dropped_total", "Catalog records dropped as duplicates while building pools")

	m.queueSize = m.gauge("prefetch_queue_size", "Current size of the prefetch queue")
	m.queueCapacity = m.gauge("prefetch_queue_capacity", "Capacity of the prefetch queue")
	m.queueUtilization = m.gauge("prefetch_queue_utilization_ratio", "Prefetch queue utilization (size / capacity)")
	m.queueEnqueueRate = m.counter("prefetch_enqueued_total", "Prefetch jobs enqueued")
	m.queueDequeueRate = m.counter("prefetch_dequeued_total", "Prefetch jobs dequeued")
	m.queueEnqueueErrors = m.counter("prefetch_enqueue_errors_total", "Prefetch jobs rejected by the queue")
	m.prefetchDuplicates = m.counter("prefetch_duplicates_total", "Prefetch jobs skipped because the item was already warmed")

	m.workerCount = m.gauge("prefetch_worker_count", "Number of prefetch workers")
	m.workerProcessingLatency = m.histogram("prefetch_job_latency_milliseconds", "Prefetch job latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("prefetch_worker_errors_total", "Prefetch jobs that failed")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total", "Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of failed operations in milliseconds", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordPick increments the picks counter.
func RecordPick() {
	globalManager.picksTotal.Inc()
}

// RecordReset increments the resets counter.
func RecordReset() {
	globalManager.resetsTotal.Inc()
}

// UpdateRounds sets the current round count.
func UpdateRounds(rounds int) {
	globalManager.rounds.Set(float64(rounds))
}

// UpdatePoolSize sets the active pool size and the blocked flag.
func UpdatePoolSize(size int, blocked bool) {
	globalManager.poolSize.Set(float64(size))
	if blocked {
		globalManager.engineBlocked.Set(1)
	} else {
		globalManager.engineBlocked.Set(0)
	}
}

// RecordPoolCommit counts a pool replacement; source is "subject", "author", "custom" or "default".
func RecordPoolCommit(source string) {
	globalManager.poolCommits.WithLabelValues(source).Inc()
}

// RecordStaleEnrichment counts an enrichment discarded by the generation check.
func RecordStaleEnrichment() {
	globalManager.staleEnrichment.Inc()
}

// RecordCatalogRequest counts a catalog call by endpoint and outcome.
func RecordCatalogRequest(endpoint, outcome string) {
	globalManager.catalogRequests.WithLabelValues(endpoint, outcome).Inc()
}

// RecordCatalogLatency records catalog call latency in milliseconds.
func RecordCatalogLatency(endpoint string, latencyMs float64) {
	globalManager.catalogLatency.WithLabelValues(endpoint).Observe(latencyMs)
}

// RecordCacheHit counts a cache hit.
func RecordCacheHit(cache string) {
	globalManager.cacheLookups.WithLabelValues(cache, "hit").Inc()
}

// RecordCacheMiss counts a cache miss.
func RecordCacheMiss(cache string) {
	globalManager.cacheLookups.WithLabelValues(cache, "miss").Inc()
}

// UpdateCircuitBreakerState sets the numeric breaker state.
func UpdateCircuitBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	globalManager.breakerTransitions.WithLabelValues(name, from, to).Inc()
}

// RecordEnrichmentLatency records how long a pair enrichment took.
func RecordEnrichmentLatency(latencyMs float64) {
	globalManager.enrichmentLatency.Observe(latencyMs)
}

// RecordEnrichmentMissing counts an absent cover or synopsis.
func RecordEnrichmentMissing(kind string) {
	globalManager.enrichmentMissing.WithLabelValues(kind).Inc()
}

// RecordCatalogDuplicatesDropped adds n dropped duplicate records.
func RecordCatalogDuplicatesDropped(n int) {
	if n > 0 {
		globalManager.catalogDedupeDropped.Add(float64(n))
	}
}

// UpdateQueueSize sets the current prefetch queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the prefetch queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the prefetch queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued prefetch job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue counts a dequeued prefetch job.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError counts a rejected prefetch job.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordPrefetchDuplicate counts a prefetch job skipped by the deduper.
func RecordPrefetchDuplicate() {
	globalManager.prefetchDuplicates.Inc()
}

// UpdateWorkerCount sets the number of prefetch workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records prefetch job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed prefetch job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error attributed to a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error by HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
