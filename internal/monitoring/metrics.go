package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors shared by the warehouse accessors,
// the NCBI clients and the HTTP API. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	// SQLStatements counts statements by operation (query, exec) and status.
	SQLStatements *prometheus.CounterVec

	// SQLDuration observes statement latency in seconds by operation.
	SQLDuration *prometheus.HistogramVec

	// ExternalRequests counts NCBI requests by service and status.
	ExternalRequests *prometheus.CounterVec

	// ExternalDuration observes NCBI request latency by service.
	ExternalDuration *prometheus.HistogramVec

	// CacheLookups counts cache lookups by cache name and result (hit, miss).
	CacheLookups *prometheus.CounterVec

	// HTTPRequests counts API requests by method, route and status code.
	HTTPRequests *prometheus.CounterVec

	// HTTPDuration observes API latency by method and route.
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics registers the collectors under namespace with reg. A nil reg
// uses the default prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SQLStatements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sql_statements_total",
			Help:      "Total number of SQL statements executed against the warehouse",
		}, []string{"operation", "status"}),
		SQLDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sql_statement_duration_seconds",
			Help:      "Duration of warehouse SQL statements in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ExternalRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "external_requests_total",
			Help:      "Total number of requests to NCBI services",
		}, []string{"service", "status"}),
		ExternalDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "external_request_duration_seconds",
			Help:      "Duration of NCBI service requests in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"service"}),
		CacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of cache lookups by cache and result",
		}, []string{"cache", "result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP API requests",
		}, []string{"method", "route", "status"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP API requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveSQL records one warehouse statement.
func (m *Metrics) ObserveSQL(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.SQLStatements.WithLabelValues(operation, status(err)).Inc()
	m.SQLDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// ObserveExternal records one NCBI request.
func (m *Metrics) ObserveExternal(service string, started time.Time, err error) {
	if m == nil {
		return
	}
	m.ExternalRequests.WithLabelValues(service, status(err)).Inc()
	m.ExternalDuration.WithLabelValues(service).Observe(time.Since(started).Seconds())
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(cache string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(cache, result).Inc()
}

// ObserveHTTP records one API request.
func (m *Metrics) ObserveHTTP(method, route, code string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, code).Inc()
	m.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
