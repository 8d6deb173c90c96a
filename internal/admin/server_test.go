package admin

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTestMux mirrors New's handler wiring without binding a real port, so
// tests exercise the same mux via httptest.
func buildTestMux(collectors ...prometheus.Collector) http.Handler {
	s := New("127.0.0.1:0", collectors...)
	return s.http.Handler
}

func TestHealthzReportsOK(t *testing.T) {
	mux := buildTestMux()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestMetricsExposesRegisteredCollector(t *testing.T) {
	desc := prometheus.NewDesc("coreserver_test_metric", "test", nil, nil)
	collector := &constCollector{desc: desc, value: 42}

	mux := buildTestMux(collector)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "coreserver_test_metric 42")
}

type constCollector struct {
	desc  *prometheus.Desc
	value float64
}

func (c *constCollector) Describe(ch chan<- *prometheus.Desc) { ch <- c.desc }

func (c *constCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, c.value)
}
