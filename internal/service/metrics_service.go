package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic
// and the attendance domain.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	scansTotal      *prometheus.CounterVec
	sessionsOpened  prometheus.Counter
	sessionsClosed  prometheus.Counter
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
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

	scansTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "attendance_scans_total",
		Help: "QR scan outcomes by result",
	}, []string{"result"})

	sessionsOpened := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_opened_total",
		Help: "Total number of attendance sessions opened",
	})

	sessionsClosed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "attendance_sessions_closed_total",
		Help: "Total number of attendance sessions closed",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "records_cache_hits_total",
		Help: "Cache hits for session record listings",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "records_cache_misses_total",
		Help: "Cache misses for session record listings",
	})

	registry.MustRegister(requestDuration, requestTotal, scansTotal, sessionsOpened, sessionsClosed, cacheHits, cacheMisses)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		scansTotal:      scansTotal,
		sessionsOpened:  sessionsOpened,
		sessionsClosed:  sessionsClosed,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// HTTPHandler exposes the Prometheus scrape endpoint.
func (s *MetricsService) HTTPHandler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records latency and count for a handled request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := prometheus.Labels{"method": method, "path": path, "status": strconv.Itoa(status)}
	s.requestDuration.With(labels).Observe(duration.Seconds())
	s.requestTotal.With(labels).Inc()
}

// RecordScan counts a scan outcome: created, duplicate or rejected.
func (s *MetricsService) RecordScan(result string) {
	s.scansTotal.WithLabelValues(result).Inc()
}

// RecordSessionOpened counts an opened session.
func (s *MetricsService) RecordSessionOpened() {
	s.sessionsOpened.Inc()
}

// RecordSessionClosed counts a closed session.
func (s *MetricsService) RecordSessionClosed() {
	s.sessionsClosed.Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (s *MetricsService) RecordCacheLookup(hit bool) {
	if hit {
		s.cacheHits.Inc()
		return
	}
	s.cacheMisses.Inc()
}
