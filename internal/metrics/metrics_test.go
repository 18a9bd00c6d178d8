package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ supervisor.Recorder = (*Metrics)(nil)
	_ events.Observer     = (*Metrics)(nil)
)

func TestSetupFinished(t *testing.T) {
	m := New()

	m.SetupFinished(true, supervisor.ReasonConnected)
	m.SetupFinished(false, supervisor.ReasonNoMatch)
	m.SetupFinished(false, supervisor.ReasonNoMatch)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.setups.WithLabelValues("success", "connected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.setups.WithLabelValues("failure", "no_match")))
	assert.Greater(t, testutil.ToFloat64(m.lastSetup), 0.0)
}

func TestAttemptFinished(t *testing.T) {
	m := New()

	m.AttemptFinished("HomeNetwork", false)
	m.AttemptFinished("HomeNetwork", true)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("HomeNetwork", "failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("HomeNetwork", "success")))
}

func TestLinkObserved(t *testing.T) {
	m := New()

	m.LinkObserved(true, false)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.apActive))

	m.LinkObserved(false, true)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apActive))
}

func TestNotify(t *testing.T) {
	m := New()
	bus := events.NewBus()
	bus.Register(m)

	bus.Dispatch(events.Connected, map[string]any{"ssid": "HomeNetwork"})
	assert.Equal(t, 1.0, testutil.ToFloat64(m.connected))

	bus.Dispatch(events.Disconnected, nil)
	bus.Dispatch(events.APStarted, map[string]any{"essid": "wifiman-setup"})

	assert.Equal(t, 0.0, testutil.ToFloat64(m.connected))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.apActive))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues(events.Disconnected)))
}

func TestHandlerExposition(t *testing.T) {
	m := New()
	m.SetupFinished(false, supervisor.ReasonScanError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `wifiman_setup_cycles_total{reason="scan_error",result="failure"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
