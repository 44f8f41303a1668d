package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the order core.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	ordersPublished prometheus.Counter
	escrowOps       *prometheus.CounterVec
	ratingUpdates   *prometheus.CounterVec
	recalcJobs      *prometheus.CounterVec
	estimateLatency prometheus.Observer
}

// NewMetricsService registers the core collectors.
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

	ordersPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_published_total",
		Help: "Orders that reached the marketplace",
	})

	escrowOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "escrow_operations_total",
		Help: "Escrow calls by operation and outcome",
	}, []string{"op", "outcome"})

	ratingUpdates := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rating_updates_total",
		Help: "Committed rating changes by source",
	}, []string{"source"})

	recalcJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "recalc_jobs_total",
		Help: "Recalculation jobs by terminal status",
	}, []string{"status"})

	estimateLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "estimate_duration_seconds",
		Help:    "Latency of budget estimates",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, ordersPublished, escrowOps, ratingUpdates, recalcJobs, estimateLatency, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		ordersPublished: ordersPublished,
		escrowOps:       escrowOps,
		ratingUpdates:   ratingUpdates,
		recalcJobs:      recalcJobs,
		estimateLatency: estimateLatency,
	}
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

// OrderPublished counts a successful publication.
func (m *MetricsService) OrderPublished() {
	if m == nil {
		return
	}
	m.ordersPublished.Inc()
}

// EscrowOperation counts one economy call outcome.
func (m *MetricsService) EscrowOperation(op, outcome string) {
	if m == nil {
		return
	}
	m.escrowOps.WithLabelValues(op, outcome).Inc()
}

// RatingUpdated counts one committed score change.
func (m *MetricsService) RatingUpdated(source string) {
	if m == nil {
		return
	}
	m.ratingUpdates.WithLabelValues(source).Inc()
}

// RecalcJobFinished counts a job reaching a terminal state.
func (m *MetricsService) RecalcJobFinished(status string) {
	if m == nil {
		return
	}
	m.recalcJobs.WithLabelValues(status).Inc()
}

// ObserveEstimate records the latency of one budget estimate.
func (m *MetricsService) ObserveEstimate(duration time.Duration) {
	if m == nil || m.estimateLatency == nil {
		return
	}
	m.estimateLatency.Observe(duration.Seconds())
}
