package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_IndependentRegistries(t *testing.T) {
	a := NewMetrics("game_events")
	b := NewMetrics("game_events")

	a.EventsReceived.WithLabelValues("install").Inc()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.EventsReceived.WithLabelValues("install")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.EventsReceived.WithLabelValues("install")))
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := NewMetrics("game_events")
	m.EventsRejected.WithLabelValues("purchase", "validation").Add(2)
	m.SinkLatency.WithLabelValues("log", "ok").Observe(0.002)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), `game_events_events_rejected_total{event_type="purchase",reason="validation"} 2`)
	assert.Contains(t, string(body), `game_events_sink_put_duration_seconds_count{sink="log",status="ok"} 1`)
}
