package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordCommand(t *testing.T) {
	m := New()
	m.RecordCommand("get_session_info", true, 2*time.Millisecond)
	m.RecordCommand("get_session_info", false, time.Millisecond)
	m.RecordCommand("load_device", true, time.Second)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("get_session_info", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("get_session_info", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.commandsTotal.WithLabelValues("load_device", "success")))
}

func TestGauges(t *testing.T) {
	m := New()
	m.SetQueueDepth(3)
	m.ConnectionOpened("tcp")
	m.ConnectionOpened("tcp")
	m.ConnectionClosed("tcp")
	m.ConnectionOpened("ws")
	m.RecordTimeout()
	m.RecordPanic()
	m.RecordProtocolError()

	assert.Equal(t, 3.0, testutil.ToFloat64(m.queueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections.WithLabelValues("tcp")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connections.WithLabelValues("ws")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.timeoutsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.panicsTotal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.protocolErrors))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordCommand("x", true, time.Millisecond)
		m.RecordTimeout()
		m.RecordPanic()
		m.SetQueueDepth(1)
		m.ConnectionOpened("tcp")
		m.ConnectionClosed("tcp")
		m.RecordProtocolError()
	})
	assert.Nil(t, m.Registry())
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.RecordCommand("set_tempo", true, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `lombridge_dispatch_commands_total{command="set_tempo",status="success"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
