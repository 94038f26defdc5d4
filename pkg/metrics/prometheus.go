// Package metrics provides Prometheus metrics for the vessel snapshot service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Snapshot outcome label values.
const (
	OutcomeOK                 = "ok"
	OutcomePartial            = "partial"
	OutcomeCredentialsMissing = "credentials_missing"
	OutcomeUnreachable        = "unreachable"
	OutcomeUpstreamError      = "upstream_error"
	OutcomeCanceled           = "canceled"
	OutcomeRejected           = "rejected"
)

// Manager manages all Prometheus metrics for the snapshot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	sizeBuckets      []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Snapshot Metrics - One per collection window
	snapshots         *prometheus.CounterVec
	snapshotDuration  prometheus.Histogram
	snapshotVessels   prometheus.Histogram
	snapshotsInFlight prometheus.Gauge
	connectLatency    prometheus.Histogram
	stateTransitions  *prometheus.CounterVec

	// Feed Metrics - Frames and what became of them
	framesReceived *prometheus.CounterVec
	messages       *prometheus.CounterVec
	positions      *prometheus.CounterVec

	// Queue Metrics - Frame buffer between reader and collector
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
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
		namespace:        "vesselsnap",
		subsystem:        "snapshot",
		histogramBuckets: prometheus.DefBuckets,
		sizeBuckets:      prometheus.ExponentialBuckets(1, 2, 12),
		enabled:          true,
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
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.snapshots = auto.NewCounterVec(
		m.counterOpts("requests_total", "Total number of snapshots by outcome"),
		[]string{"outcome"},
	)
	m.snapshotDuration = auto.NewHistogram(m.histogramOpts(
		"duration_milliseconds", "Wall time of a snapshot from dial to result in milliseconds",
		prometheus.ExponentialBuckets(50, 2, 10),
	))
	m.snapshotVessels = auto.NewHistogram(m.histogramOpts(
		"vessels", "Number of vessel records returned per snapshot", m.sizeBuckets,
	))
	m.snapshotsInFlight = auto.NewGauge(m.gaugeOpts(
		"in_flight", "Number of snapshots currently collecting",
	))
	m.connectLatency = auto.NewHistogram(m.histogramOpts(
		"connect_latency_milliseconds", "Time to dial and subscribe to the upstream feed in milliseconds",
		m.histogramBuckets,
	))
	m.stateTransitions = auto.NewCounterVec(
		m.counterOpts("state_transitions_total", "Collector state transitions by target state"),
		[]string{"state"},
	)

	m.framesReceived = auto.NewCounterVec(
		m.counterOpts("frames_total", "Upstream frames by fate (queued, dropped, abandoned)"),
		[]string{"fate"},
	)
	m.messages = auto.NewCounterVec(
		m.counterOpts("messages_total", "Normalized messages by result"),
		[]string{"result"},
	)
	m.positions = auto.NewCounterVec(
		m.counterOpts("positions_total", "Position records by aggregation outcome"),
		[]string{"outcome"},
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts(
		"frame_queue_size", "Frames buffered between reader and collector",
	))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts(
		"frame_queue_capacity", "Capacity of the frame buffer",
	))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
			prometheus.ExponentialBuckets(1, 2, 15)),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts(
		"system_memory_bytes", "Heap memory in use in bytes",
	))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts(
		"system_goroutines", "Number of goroutines",
	))
}

// Manager methods. All of them are no-ops when metrics are disabled.

// RecordSnapshot counts one finished snapshot with its outcome.
func (m *Manager) RecordSnapshot(outcome string, durationMs float64, vessels int) {
	if !m.enabled {
		return
	}
	m.snapshots.WithLabelValues(outcome).Inc()
	m.snapshotDuration.Observe(durationMs)
	if outcome == OutcomeOK || outcome == OutcomePartial {
		m.snapshotVessels.Observe(float64(vessels))
	}
}

// RecordSnapshotRejected counts a snapshot refused before collection began.
func (m *Manager) RecordSnapshotRejected() {
	if !m.enabled {
		return
	}
	m.snapshots.WithLabelValues(OutcomeRejected).Inc()
}

// AddSnapshotsInFlight moves the in-flight gauge by delta.
func (m *Manager) AddSnapshotsInFlight(delta int) {
	if !m.enabled {
		return
	}
	m.snapshotsInFlight.Add(float64(delta))
}

// RecordConnectLatency observes dial plus subscribe time.
func (m *Manager) RecordConnectLatency(latencyMs float64) {
	if !m.enabled {
		return
	}
	m.connectLatency.Observe(latencyMs)
}

// RecordStateTransition counts a collector entering state.
func (m *Manager) RecordStateTransition(state string) {
	if !m.enabled {
		return
	}
	m.stateTransitions.WithLabelValues(state).Inc()
}

// RecordFrame counts an upstream frame by fate.
func (m *Manager) RecordFrame(fate string) {
	if !m.enabled {
		return
	}
	m.framesReceived.WithLabelValues(fate).Inc()
}

// RecordMessage counts a normalized message by result.
func (m *Manager) RecordMessage(result string) {
	if !m.enabled {
		return
	}
	m.messages.WithLabelValues(result).Inc()
}

// RecordPosition counts a position record by aggregation outcome.
func (m *Manager) RecordPosition(outcome string) {
	if !m.enabled {
		return
	}
	m.positions.WithLabelValues(outcome).Inc()
}

// UpdateQueue sets the frame buffer gauges.
func (m *Manager) UpdateQueue(size, capacity int) {
	if !m.enabled {
		return
	}
	m.queueSize.Set(float64(size))
	m.queueCapacity.Set(float64(capacity))
}

// RecordHTTPRequest counts a request and observes its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func (m *Manager) RecordErrorByComponent(component, errorType string) {
	if !m.enabled {
		return
	}
	m.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystem sets the memory and goroutine gauges.
func (m *Manager) UpdateSystem(memoryBytes uint64, goroutines int) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memoryBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
}

// Global helpers backed by the default manager.

// RecordSnapshot counts one finished snapshot with its outcome.
func RecordSnapshot(outcome string, durationMs float64, vessels int) {
	globalManager.RecordSnapshot(outcome, durationMs, vessels)
}

// RecordSnapshotRejected counts a snapshot refused before collection began.
func RecordSnapshotRejected() {
	globalManager.RecordSnapshotRejected()
}

// AddSnapshotsInFlight moves the in-flight gauge by delta.
func AddSnapshotsInFlight(delta int) {
	globalManager.AddSnapshotsInFlight(delta)
}

// RecordConnectLatency observes dial plus subscribe time.
func RecordConnectLatency(latencyMs float64) {
	globalManager.RecordConnectLatency(latencyMs)
}

// RecordStateTransition counts a collector entering state.
func RecordStateTransition(state string) {
	globalManager.RecordStateTransition(state)
}

// RecordFrame counts an upstream frame by fate.
func RecordFrame(fate string) {
	globalManager.RecordFrame(fate)
}

// RecordMessage counts a normalized message by result.
func RecordMessage(result string) {
	globalManager.RecordMessage(result)
}

// RecordPosition counts a position record by aggregation outcome.
func RecordPosition(outcome string) {
	globalManager.RecordPosition(outcome)
}

// UpdateQueue sets the frame buffer gauges.
func UpdateQueue(size, capacity int) {
	globalManager.UpdateQueue(size, capacity)
}

// RecordHTTPRequest counts a request and observes its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.RecordErrorByComponent(component, errorType)
}

// UpdateSystem sets the memory and goroutine gauges.
func UpdateSystem(memoryBytes uint64, goroutines int) {
	globalManager.UpdateSystem(memoryBytes, goroutines)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
