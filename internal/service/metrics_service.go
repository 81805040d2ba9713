package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the collectors the import,
// timetable and planner paths report into.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	importRows     *prometheus.CounterVec
	importSkipped  *prometheus.CounterVec
	searchDuration prometheus.Observer
	searchNodes    prometheus.Observer
	planHits       prometheus.Counter
	planMisses     prometheus.Counter

	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	dbQueryDuration *prometheus.HistogramVec
}

// NewMetricsService registers the collectors.
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

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_rows_total",
		Help: "Rows accepted by catalog imports",
	}, []string{"source"})

	importSkipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_import_rows_skipped_total",
		Help: "Rows dropped by catalog imports",
	}, []string{"source"})

	searchDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_search_duration_seconds",
		Help:    "Duration of combination searches",
		Buckets: prometheus.DefBuckets,
	})

	searchNodes := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_search_nodes",
		Help:    "Nodes visited per combination search",
		Buckets: prometheus.ExponentialBuckets(16, 4, 8),
	})

	planHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_plan_hits_total",
		Help: "Suggestion requests answered from a cached plan",
	})

	planMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "planner_plan_misses_total",
		Help: "Suggestion requests that ran a fresh search",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total response cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total response cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importRows, importSkipped,
		searchDuration, searchNodes, planHits, planMisses, cacheHits, cacheMisses,
		dbQueryDuration, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importRows:      importRows,
		importSkipped:   importSkipped,
		searchDuration:  searchDuration,
		searchNodes:     searchNodes,
		planHits:        planHits,
		planMisses:      planMisses,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records per-route request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveImport records the accepted/skipped row split of one catalog import.
func (m *MetricsService) ObserveImport(source string, accepted, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(source).Add(float64(accepted))
	m.importSkipped.WithLabelValues(source).Add(float64(skipped))
}

// ObserveSearch records one combination search run.
func (m *MetricsService) ObserveSearch(duration time.Duration, nodes int) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(duration.Seconds())
	m.searchNodes.Observe(float64(nodes))
}

// RecordPlanLookup records whether a suggestion reused a cached plan.
func (m *MetricsService) RecordPlanLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.planHits.Inc()
	} else {
		m.planMisses.Inc()
	}
}

// RecordCacheOperation records a response cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
