// Package metrics provides Prometheus metrics for the group rating engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Command outcomes
	commands        *prometheus.CounterVec
	ratingsCreated  prometheus.Counter
	ratingsRemoved  prometheus.Counter
	ratingResets    prometheus.Counter
	ratingsCleared  prometheus.Counter

	// Aggregation
	recomputeLatency prometheus.Histogram
	statsCacheHits   prometheus.Counter
	statsCacheMisses prometheus.Counter

	// Live feed
	liveFeedSize      prometheus.Gauge
	liveEventsEmitted prometheus.Counter

	// Scale
	groupsTotal  prometheus.Gauge
	membersTotal prometheus.Gauge

	// Store
	storeLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "grouprank",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.commands = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "commands_total",
		Help:      "Commands handled by the engine, by command and outcome",
	}, []string{"command", "outcome"})

	m.ratingsCreated = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_submitted_total",
		Help:      "Ratings accepted into the record store",
	})

	m.ratingsRemoved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_removed_total",
		Help:      "Ratings removed by their raters",
	})

	m.ratingResets = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rating_resets_total",
		Help:      "Periodic rating resets performed",
	})

	m.ratingsCleared = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "ratings_cleared_total",
		Help:      "Ratings dropped by periodic resets",
	})

	m.recomputeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "recompute_latency_milliseconds",
		Help:      "Group statistics recompute latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.statsCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stats_cache_hits_total",
		Help:      "Group statistics served from cache",
	})

	m.statsCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "stats_cache_misses_total",
		Help:      "Group statistics recomputed from the record store",
	})

	m.liveFeedSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_feed_size",
		Help:      "Events currently held in the live feed buffer",
	})

	m.liveEventsEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_events_published_total",
		Help:      "Events published to the live feed",
	})

	m.groupsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "groups_total",
		Help:      "Groups known to the engine",
	})

	m.membersTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "members_total",
		Help:      "Users currently belonging to a group",
	})

	m.storeLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_latency_milliseconds",
		Help:      "Persistence gateway operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_errors_total",
		Help:      "HTTP error responses by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_bytes",
		Help:      "Heap bytes allocated",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutines",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_milliseconds",
		Help:      "Average GC pause time in milliseconds",
		Buckets:   m.histogramBuckets,
	})
}

// RecordCommand counts a command by outcome ("ok" or an error code).
func RecordCommand(command, outcome string) {
	globalManager.commands.WithLabelValues(command, outcome).Inc()
}

// RecordRatingSubmitted counts an accepted rating.
func RecordRatingSubmitted() {
	globalManager.ratingsCreated.Inc()
}

// RecordRatingRemoved counts a removed rating.
func RecordRatingRemoved() {
	globalManager.ratingsRemoved.Inc()
}

// RecordRatingReset counts a periodic reset and the ratings it dropped.
func RecordRatingReset(cleared int) {
	globalManager.ratingResets.Inc()
	globalManager.ratingsCleared.Add(float64(cleared))
}

// RecordRecomputeLatency observes a stats recompute.
func RecordRecomputeLatency(latencyMs float64) {
	globalManager.recomputeLatency.Observe(latencyMs)
}

// RecordStatsCacheHit counts stats served from cache.
func RecordStatsCacheHit() {
	globalManager.statsCacheHits.Inc()
}

// RecordStatsCacheMiss counts stats recomputed on demand.
func RecordStatsCacheMiss() {
	globalManager.statsCacheMisses.Inc()
}

// UpdateLiveFeedSize sets the current live feed length.
func UpdateLiveFeedSize(size int) {
	globalManager.liveFeedSize.Set(float64(size))
}

// RecordLiveEventPublished counts a published live event.
func RecordLiveEventPublished() {
	globalManager.liveEventsEmitted.Inc()
}

// UpdateGroupsTotal sets the number of known groups.
func UpdateGroupsTotal(count int) {
	globalManager.groupsTotal.Set(float64(count))
}

// UpdateMembersTotal sets the number of users holding a membership.
func UpdateMembersTotal(count int) {
	globalManager.membersTotal.Set(float64(count))
}

// RecordStoreLatency observes a persistence gateway call.
func RecordStoreLatency(op string, latencyMs float64) {
	globalManager.storeLatency.WithLabelValues(op).Observe(latencyMs)
}

// RecordHTTPRequest records HTTP request metrics.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap allocation in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime observes average GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global manager reports to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
