// Package metrics exports supervisor outcomes and dispatched events as
// Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "wifiman"

// Metrics implements supervisor.Recorder and events.Observer.
type Metrics struct {
	registry *prometheus.Registry

	setups    *prometheus.CounterVec
	attempts  *prometheus.CounterVec
	events    *prometheus.CounterVec
	connected prometheus.Gauge
	apActive  prometheus.Gauge
	lastSetup prometheus.Gauge
}

// New creates the collectors on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		setups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "setup_cycles_total",
			Help:      "Setup cycles by outcome.",
		}, []string{"result", "reason"}),
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_attempts_total",
			Help:      "Connection attempts by network and outcome.",
		}, []string{"ssid", "result"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Dispatched events by name.",
		}, []string{"event"}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "station_connected",
			Help:      "1 when the station reports a connection.",
		}),
		apActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "access_point_active",
			Help:      "1 when the access point is active.",
		}),
		lastSetup: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_setup_timestamp_seconds",
			Help:      "Unix time of the last finished setup cycle.",
		}),
	}

	m.registry.MustRegister(
		m.setups,
		m.attempts,
		m.events,
		m.connected,
		m.apActive,
		m.lastSetup,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) SetupFinished(connected bool, reason string) {
	m.setups.WithLabelValues(result(connected), reason).Inc()
	m.lastSetup.SetToCurrentTime()
}

func (m *Metrics) AttemptFinished(ssid string, ok bool) {
	m.attempts.WithLabelValues(ssid, result(ok)).Inc()
}

func (m *Metrics) LinkObserved(connected, apActive bool) {
	m.connected.Set(boolValue(connected))
	m.apActive.Set(boolValue(apActive))
}

// Notify counts ev and keeps the gauges in step with connectivity events.
func (m *Metrics) Notify(ev events.Event) error {
	m.events.WithLabelValues(ev.Name).Inc()
	switch ev.Name {
	case events.Connected:
		m.connected.Set(1)
	case events.Disconnected:
		m.connected.Set(0)
	case events.APStarted:
		m.apActive.Set(1)
	}
	return nil
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on listen until ctx ends.
func (m *Metrics) Serve(ctx context.Context, listen string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Metrics listener started", zap.String("addr", listen))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics listener failed: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics listener shutdown: %w", err)
		}
		return nil
	}
}

func result(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
