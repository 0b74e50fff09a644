package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds all Prometheus collectors of the tally service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Tally engine
	tallyRuns            *prometheus.CounterVec
	tallyDuration        prometheus.Histogram
	messagesScanned      prometheus.Counter
	labelsUnrecognized   prometheus.Counter
	messagesMalformed    prometheus.Counter
	creditEntries        *prometheus.CounterVec
	reportsProduced      prometheus.Counter
	schemeLabelsResolved prometheus.Counter

	// Request handling
	requests          *prometheus.CounterVec
	requestsDuplicate prometheus.Counter
	requestLatency    prometheus.Histogram
	fetchErrors       *prometheus.CounterVec
	fetchLatency      *prometheus.HistogramVec
	messagesFetched   prometheus.Gauge

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// History
	historyAppends *prometheus.CounterVec
	historyResets  prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps the default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tallybot",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.tallyRuns = auto.NewCounterVec(
		m.counterOpts("tally_runs_total", "Total number of tally runs by outcome"),
		[]string{"outcome"},
	)
	m.tallyDuration = auto.NewHistogram(
		m.histogramOpts("tally_duration_milliseconds", "Tally run duration in milliseconds"),
	)
	m.messagesScanned = auto.NewCounter(
		m.counterOpts("messages_scanned_total", "Total number of messages scanned by the tally engine"),
	)
	m.labelsUnrecognized = auto.NewCounter(
		m.counterOpts("labels_unrecognized_total", "Total number of candidate labels the scheme did not recognize"),
	)
	m.messagesMalformed = auto.NewCounter(
		m.counterOpts("messages_malformed_total", "Total number of tally runs aborted by a malformed message"),
	)
	m.creditEntries = auto.NewCounterVec(
		m.counterOpts("credit_entries_total", "Total number of credit entries produced by status"),
		[]string{"status"},
	)
	m.reportsProduced = auto.NewCounter(
		m.counterOpts("reports_produced_total", "Total number of per-author credit reports produced"),
	)
	m.schemeLabelsResolved = auto.NewCounter(
		m.counterOpts("labels_resolved_total", "Total number of candidate labels resolved"),
	)

	m.requests = auto.NewCounterVec(
		m.counterOpts("requests_total", "Total number of handled requests by reply kind"),
		[]string{"kind"},
	)
	m.requestsDuplicate = auto.NewCounter(
		m.counterOpts("requests_duplicate_total", "Total number of duplicate inbound messages dropped"),
	)
	m.requestLatency = auto.NewHistogram(
		m.histogramOpts("request_latency_milliseconds", "End to end request handling latency in milliseconds"),
	)
	m.fetchErrors = auto.NewCounterVec(
		m.counterOpts("fetch_errors_total", "Total number of message fetch failures by backend"),
		[]string{"backend"},
	)
	m.fetchLatency = auto.NewHistogramVec(
		m.histogramOpts("fetch_latency_milliseconds", "Message fetch latency in milliseconds by backend"),
		[]string{"backend"},
	)
	m.messagesFetched = auto.NewGauge(
		m.gaugeOpts("messages_fetched_last", "Number of messages returned by the last fetch"),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Current size of the request queue"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum request queue capacity"))
	m.queueUtilization = auto.NewGauge(
		m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)"),
	)
	m.queueEnqueued = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Total number of requests enqueued"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Total number of requests dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(
		m.counterOpts("queue_enqueue_errors_total", "Total number of rejected enqueue attempts"),
	)

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured number of workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Number of running workers"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds"),
	)
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Total number of worker errors"))

	m.historyAppends = auto.NewCounterVec(
		m.counterOpts("history_appends_total", "Total number of history entries appended by direction"),
		[]string{"direction"},
	)
	m.historyResets = auto.NewCounter(m.counterOpts("history_resets_total", "Total number of history resets"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)
	m.errorsByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Total number of errors by type"),
		[]string{"error_type", "severity"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
}

// Tally engine.

// RecordTallyRun counts a finished tally run; outcome is "ok" or "error".
func RecordTallyRun(outcome string) {
	globalManager.tallyRuns.WithLabelValues(outcome).Inc()
}

// RecordTallyDuration records a tally run duration in milliseconds.
func RecordTallyDuration(latencyMs float64) {
	globalManager.tallyDuration.Observe(latencyMs)
}

// RecordMessagesScanned adds n scanned messages.
func RecordMessagesScanned(n int) {
	globalManager.messagesScanned.Add(float64(n))
}

// RecordLabelUnrecognized counts a candidate label the scheme rejected.
func RecordLabelUnrecognized() {
	globalManager.labelsUnrecognized.Inc()
}

// RecordLabelResolved counts a candidate label the scheme resolved.
func RecordLabelResolved() {
	globalManager.schemeLabelsResolved.Inc()
}

// RecordMalformedMessage counts a run aborted by malformed input.
func RecordMalformedMessage() {
	globalManager.messagesMalformed.Inc()
}

// RecordCreditEntry counts a credit entry with the given status.
func RecordCreditEntry(status string) {
	globalManager.creditEntries.WithLabelValues(status).Inc()
}

// RecordReportsProduced adds n produced reports.
func RecordReportsProduced(n int) {
	globalManager.reportsProduced.Add(float64(n))
}

// Requests.

// RecordRequest counts a handled request by reply kind.
func RecordRequest(kind string) {
	globalManager.requests.WithLabelValues(kind).Inc()
}

// RecordRequestDuplicate counts a duplicate inbound message.
func RecordRequestDuplicate() {
	globalManager.requestsDuplicate.Inc()
}

// RecordRequestLatency records end to end request latency in milliseconds.
func RecordRequestLatency(latencyMs float64) {
	globalManager.requestLatency.Observe(latencyMs)
}

// RecordFetchError counts a fetch failure on backend.
func RecordFetchError(backend string) {
	globalManager.fetchErrors.WithLabelValues(backend).Inc()
}

// RecordFetchLatency records fetch latency on backend in milliseconds.
func RecordFetchLatency(backend string, latencyMs float64) {
	globalManager.fetchLatency.WithLabelValues(backend).Observe(latencyMs)
}

// UpdateMessagesFetched sets the size of the last fetched snapshot.
func UpdateMessagesFetched(n int) {
	globalManager.messagesFetched.Set(float64(n))
}

// Queue.

// UpdateQueueSize sets the current queue size.
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

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// Workers.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// History.

// RecordHistoryAppend counts an appended history entry.
func RecordHistoryAppend(direction string) {
	globalManager.historyAppends.WithLabelValues(direction).Inc()
}

// RecordHistoryReset counts a history reset.
func RecordHistoryReset() {
	globalManager.historyResets.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System.

// UpdateSystemMemoryUsage sets heap memory in use.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
