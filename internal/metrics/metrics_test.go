package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCountersAndExposition(t *testing.T) {
	m := New()
	m.Offer("ok")
	m.Offer("ok")
	m.Offer("invalid_sdp")
	m.Evicted("timeout", 3)
	m.Evicted("timeout", 0)
	m.Sessions(2)
	m.Negotiated(120 * time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	require.True(t, strings.Contains(body, `stream_signal_offers_total{result="ok"} 2`))
	require.True(t, strings.Contains(body, `stream_session_evictions_total{reason="timeout"} 3`))
	require.True(t, strings.Contains(body, "stream_session_total 2"))
	require.True(t, strings.Contains(body, "stream_signal_answer_duration_ms_count 1"))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Offer("ok")
	m.Candidate("buffered")
	m.Command("make_uuid")
	m.PLI()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 404, rec.Code)
}
