package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorRecords(t *testing.T) {
	c := NewCollector()

	c.ObserveQuery(OutcomeSuccess, 200*time.Millisecond)
	c.ObserveQuery(OutcomeHTTPError, time.Second)
	c.AddRecords(5, 1)
	c.ObserveBucket(3)
	c.ObserveHTTP(http.MethodGet, "/api/metrics", http.StatusOK, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queriesTotal.WithLabelValues(OutcomeHTTPError)))
	assert.Equal(t, 5.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.recordsTotal.WithLabelValues("dropped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues(http.MethodGet, "/api/metrics", "200")))
}

func TestNilCollectorIsNoop(t *testing.T) {
	var c *Collector

	assert.NotPanics(t, func() {
		c.ObserveQuery(OutcomeSuccess, time.Second)
		c.AddRecords(1, 1)
		c.ObserveBucket(1)
		c.ObserveHTTP(http.MethodGet, "/", http.StatusOK, time.Second)
	})
	assert.Nil(t, c.Registry())

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector()
	c.ObserveQuery(OutcomeNetworkError, time.Second)

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `pull_request_api_queries_total{outcome="network_error"} 1`)
}
