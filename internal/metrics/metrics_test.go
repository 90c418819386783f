package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Counters(t *testing.T) {
	c := NewCollector()

	c.CycleSucceeded(time.Unix(1700000000, 0), 2*time.Second, 3)
	c.CycleFailed()
	c.CycleFailed()
	c.MarketDataRequest()
	c.MarketDataRequest()
	c.FetchRetry()
	c.Summary("disabled")
	c.Publish("telegram", nil)
	c.Publish("telegram", errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cycles.WithLabelValues("error")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.marketDataRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.fetchRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.summaries.WithLabelValues("disabled")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishes.WithLabelValues("telegram", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.publishes.WithLabelValues("telegram", "error")))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(c.lastSuccess))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.resolvedSymbols))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.MarketDataRequest()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "cryptobot_marketdata_requests_total 1")
}
