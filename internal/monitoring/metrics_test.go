package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetrics(t *testing.T) {
	m := NewMetrics("test_medgen_new", prometheus.NewRegistry())

	assert.NotNil(t, m.SQLStatements)
	assert.NotNil(t, m.SQLDuration)
	assert.NotNil(t, m.ExternalRequests)
	assert.NotNil(t, m.ExternalDuration)
	assert.NotNil(t, m.CacheLookups)
	assert.NotNil(t, m.HTTPRequests)
	assert.NotNil(t, m.HTTPDuration)
}

func TestObserveSQL(t *testing.T) {
	m := NewMetrics("test_medgen_sql", prometheus.NewRegistry())

	m.ObserveSQL("query", time.Now(), nil)
	m.ObserveSQL("query", time.Now(), nil)
	m.ObserveSQL("exec", time.Now(), errors.New("boom"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.SQLStatements.WithLabelValues("query", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SQLStatements.WithLabelValues("exec", "error")))
}

func TestObserveExternalAndCache(t *testing.T) {
	m := NewMetrics("test_medgen_external", prometheus.NewRegistry())

	m.ObserveExternal("variant_reporter", time.Now(), nil)
	m.ObserveCache("gene_symbol", true)
	m.ObserveCache("gene_symbol", false)
	m.ObserveCache("gene_symbol", false)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.ExternalRequests.WithLabelValues("variant_reporter", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.CacheLookups.WithLabelValues("gene_symbol", "hit")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.CacheLookups.WithLabelValues("gene_symbol", "miss")))
}

func TestObserveHTTP(t *testing.T) {
	m := NewMetrics("test_medgen_http", prometheus.NewRegistry())

	m.ObserveHTTP("GET", "/api/v1/genes/:gene/pubmeds", "200", 10*time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/api/v1/genes/:gene/pubmeds", "200")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveSQL("query", time.Now(), nil)
		m.ObserveExternal("pubmed", time.Now(), nil)
		m.ObserveCache("gene_pubmeds", true)
		m.ObserveHTTP("GET", "/health", "200", time.Millisecond)
	})
}
