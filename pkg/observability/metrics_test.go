package observability

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordRequests(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{})
	require.NoError(t, err)

	m.RequestFinished("tools/list", "ok", 12*time.Millisecond)
	m.RequestFinished("tools/list", "ok", 30*time.Millisecond)
	m.RequestFinished("tools/call", "timeout", time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/list", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requestTotal.WithLabelValues("tools/call", "timeout")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requestDuration))
}

func TestMetricsTransportEvents(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{Namespace: "test"})
	require.NoError(t, err)

	m.ProcessStarted()
	m.PendingRequests(3)
	m.DecodeError()
	m.StaleResponse()
	m.StaleResponse()
	m.NotificationSent("notifications/initialized", "ok")
	m.NotificationReceived("notifications/tools/list_changed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runningProcesses))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.pendingRequests))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decodeErrors))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.staleResponses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationSent.WithLabelValues("notifications/initialized", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.notificationRecv.WithLabelValues("notifications/tools/list_changed")))

	m.ProcessExited(1, false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runningProcesses))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processExits.WithLabelValues("crash", "1")))

	m.ProcessStarted()
	m.ProcessExited(0, true)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.processExits.WithLabelValues("shutdown", "0")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.processStarts))
}

func TestMetricsReuseRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := NewMetrics(MetricsConfig{Registry: reg})
	require.NoError(t, err)
	second, err := NewMetrics(MetricsConfig{Registry: reg})
	require.NoError(t, err)

	first.DecodeError()
	second.DecodeError()
	assert.Equal(t, 2.0, testutil.ToFloat64(first.decodeErrors))
	assert.Same(t, reg, second.Registry())
}

func TestMetricsRegistrationConflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mcp",
		Subsystem: "client",
		Name:      "requests_total",
		Help:      "conflicting help",
	}))

	_, err := NewMetrics(MetricsConfig{Registry: reg})
	assert.Error(t, err)
}

func TestMetricsHandler(t *testing.T) {
	m, err := NewMetrics(MetricsConfig{ConstLabels: prometheus.Labels{"server": "files"}})
	require.NoError(t, err)
	m.RequestFinished("ping", "ok", time.Millisecond)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `mcp_client_requests_total{method="ping",server="files",status="ok"} 1`)
}
