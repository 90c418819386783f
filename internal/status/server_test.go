package status

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cryptobot/internal/metrics"
	"cryptobot/internal/model"
	"cryptobot/internal/scheduler"
)

type stubSource struct {
	stats model.CycleStats
}

func (s stubSource) Stats() model.CycleStats { return s.stats }
func (s stubSource) State() scheduler.State  { return scheduler.StateSleeping }

func TestServer_Routes(t *testing.T) {
	last := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	collector := metrics.NewCollector()
	collector.CycleFailed()

	srv := NewServer(slog.New(slog.NewTextHandler(io.Discard, nil)), ":0",
		stubSource{model.CycleStats{UpdateCount: 3, LastSuccessfulUpdate: last, LastUpdateStarted: last}},
		collector.Handler(), nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sleeping", body["state"])
	assert.Equal(t, 3.0, body["update_count"])
	assert.Equal(t, "2024-01-15T10:00:00Z", body["last_successful_update"])

	resp, err = http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `cryptobot_cycle_total{result="error"} 1`)

	resp, err = http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "feed disabled")
}
