package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/lms-publisher/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// publication and storage pipelines.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter

	sweepDuration      prometheus.Histogram
	sweepRuns          *prometheus.CounterVec
	itemsPublished     *prometheus.CounterVec
	notifications      *prometheus.CounterVec
	storageAlerts      *prometheus.CounterVec
	storageUsedPercent prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sweepDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "publisher_sweep_duration_seconds",
		Help:    "Duration of scheduled publication sweeps",
		Buckets: prometheus.DefBuckets,
	})

	sweepRuns := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_sweeps_total",
		Help: "Publication sweeps by outcome",
	}, []string{"outcome"})

	itemsPublished := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_items_published_total",
		Help: "Items transitioned to published by the sweep",
	}, []string{"kind"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "publisher_notifications_total",
		Help: "Publication emails by kind and result",
	}, []string{"kind", "result"})

	storageAlerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storage_alert_checks_total",
		Help: "Storage threshold checks by outcome",
	}, []string{"outcome"})

	storageUsedPercent := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storage_used_percent",
		Help: "Last computed media storage usage percentage",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		sweepDuration, sweepRuns, itemsPublished, notifications, storageAlerts, storageUsedPercent, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		sweepDuration:      sweepDuration,
		sweepRuns:          sweepRuns,
		itemsPublished:     itemsPublished,
		notifications:      notifications,
		storageAlerts:      storageAlerts,
		storageUsedPercent: storageUsedPercent,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveSweep records the counters of a finished sweep.
func (m *MetricsService) ObserveSweep(report models.SweepReport) {
	if m == nil {
		return
	}
	m.sweepDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	outcome := "ok"
	if report.HasFailures() {
		outcome = "failed"
	} else if len(report.Errors) > 0 {
		outcome = "partial"
	}
	m.sweepRuns.WithLabelValues(outcome).Inc()
	for kind, n := range report.Published {
		m.itemsPublished.WithLabelValues(kind.Label()).Add(float64(n))
	}
}

// ObserveDelivery records per-recipient results of one fan-out.
func (m *MetricsService) ObserveDelivery(report models.DeliveryReport) {
	if m == nil {
		return
	}
	kind := report.Kind.Label()
	m.notifications.WithLabelValues(kind, "sent").Add(float64(report.SentCount))
	m.notifications.WithLabelValues(kind, "failed").Add(float64(report.Failed))
	m.notifications.WithLabelValues(kind, "skipped").Add(float64(report.Skipped))
}

// ObserveAlertDecision records the outcome of a threshold check.
func (m *MetricsService) ObserveAlertDecision(decision models.AlertDecision) {
	if m == nil {
		return
	}
	m.storageAlerts.WithLabelValues(string(decision.Outcome)).Inc()
}

// SetStorageUsage updates the usage gauge.
func (m *MetricsService) SetStorageUsage(percent float64) {
	if m == nil {
		return
	}
	m.storageUsedPercent.Set(percent)
}
