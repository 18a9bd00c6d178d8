package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/muurk/wifiman/internal/companion"
	"github.com/muurk/wifiman/internal/config"
	"github.com/muurk/wifiman/internal/configserver"
	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/history"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/metrics"
	"github.com/muurk/wifiman/internal/mqtt"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/station"
	"github.com/muurk/wifiman/internal/station/wpa"
	"github.com/muurk/wifiman/internal/stream"
	"github.com/muurk/wifiman/internal/supervisor"
	"go.uber.org/zap"
)

// daemon is everything one process needs, assembled from settings.
type daemon struct {
	settings *config.Settings
	store    networks.Store

	station station.Station
	ap      station.AccessPoint

	supervisor *supervisor.Supervisor
	server     *configserver.Server

	metrics   *metrics.Metrics
	journal   *history.Journal
	publisher *mqtt.Publisher
	forwarder *stream.Forwarder

	closers []func()
}

// lateSetup lets the config server call a supervisor that is built after
// it.
type lateSetup struct {
	supervisor *supervisor.Supervisor
}

func (l *lateSetup) Setup(ctx context.Context) bool {
	return l.supervisor.Setup(ctx)
}

// openDrivers returns the station and access point for the configured
// driver, plus a function that releases them.
func openDrivers(s *config.Settings) (station.Station, station.AccessPoint, func(), error) {
	switch s.Driver {
	case config.DriverMock:
		st := station.NewMock()
		if s.MockScanFile != "" {
			if err := st.LoadScanFile(s.MockScanFile); err != nil {
				return nil, nil, nil, err
			}
		}
		logging.Warn("Using the in-memory radio driver", zap.String("scan_file", s.MockScanFile))
		return st, station.NewMockAP(), func() {}, nil
	default:
		sup, err := wpa.Dial()
		if err != nil {
			return nil, nil, nil, err
		}
		closeFn := func() {
			if err := sup.Close(); err != nil {
				logging.Warn("Failed to close wpa_supplicant connection", zap.Error(err))
			}
		}
		return wpa.NewStation(sup, s.StationInterface), wpa.NewAccessPoint(sup, s.APInterface), closeFn, nil
	}
}

// newDaemon wires drivers, the supervisor and the config server. Observers
// are added by attachObservers so one-shot commands can skip them.
func newDaemon(ctx context.Context, s *config.Settings) (*daemon, error) {
	d := &daemon{settings: s, store: networks.NewFileStore()}

	st, ap, closeDrivers, err := openDrivers(s)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s driver: %w", s.Driver, err)
	}
	d.station, d.ap = st, ap
	d.closers = append(d.closers, closeDrivers)

	late := &lateSetup{}
	d.server, err = newConfigServer(ctx, s, d.store, late)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.closers = append(d.closers, d.server.Stop)

	var svc companion.Service = companion.Noop{}
	if len(s.Companion.Command) > 0 {
		svc = companion.NewCommand(s.Companion.Command, s.Companion.Timeout)
	}

	bus := events.NewBus()
	bus.Register(events.Func("log", func(ev events.Event) error {
		logging.LogEvent(ev.Name, ev.Payload)
		return nil
	}))

	d.metrics = metrics.New()
	d.supervisor, err = supervisor.New(supervisor.Config{
		NetworksPath: s.NetworksPath,
		Store:        d.store,
		Station:      st,
		AccessPoint:  ap,
		Bus:          bus,
		Companion:    svc,
		ConfigServer: d.server,
		Recorder:     d.metrics,
		PollInterval: s.Supervisor.PollInterval,
		MaxPolls:     s.Supervisor.PollAttempts,
		Interval:     s.Supervisor.Interval,
	})
	if err != nil {
		d.Close()
		return nil, err
	}
	late.supervisor = d.supervisor

	return d, nil
}

// attachObservers registers every observer enabled in settings on the
// supervisor's bus. Background work (metrics listener, websocket
// forwarder) runs until ctx ends.
func (d *daemon) attachObservers(ctx context.Context) error {
	s := d.settings
	bus := d.supervisor.Bus()

	bus.Register(d.metrics)

	if s.Metrics.Listen != "" {
		go func() {
			if err := d.metrics.Serve(ctx, s.Metrics.Listen); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Metrics listener stopped", zap.Error(err))
			}
		}()
	}

	if s.History.Path != "" {
		journal, err := history.Open(s.History.Path, s.History.Limit)
		if err != nil {
			return err
		}
		d.journal = journal
		d.closers = append(d.closers, func() { _ = journal.Close() })
		bus.Register(journal)
	}

	if s.MQTT.Enabled {
		d.publisher = mqtt.NewPublisher(&mqtt.Config{
			Broker:      s.MQTT.Broker,
			Port:        s.MQTT.Port,
			ClientID:    s.MQTT.ClientID,
			Username:    s.MQTT.Username,
			Password:    s.MQTT.Password,
			TopicPrefix: s.MQTT.TopicPrefix,
			QoS:         s.MQTT.QoS,
			Retain:      s.MQTT.Retain,
		})
		if err := d.publisher.Connect(); err != nil {
			return err
		}
		d.closers = append(d.closers, d.publisher.Disconnect)
		bus.Register(d.publisher)
	}

	if s.EventStream.URL != "" {
		d.forwarder = stream.NewForwarder(s.EventStream.URL)
		go func() {
			if err := d.forwarder.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("Event stream stopped", zap.Error(err))
			}
		}()
		bus.Register(d.forwarder)
	}

	logging.Info("Observers registered", zap.Int("count", bus.Len()))
	return nil
}

// Close releases resources in reverse order of acquisition.
func (d *daemon) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
	d.closers = nil
}

// newConfigServer builds the config server from settings. A nil setup
// stores updates without running a setup cycle.
func newConfigServer(ctx context.Context, s *config.Settings, store networks.Store, setup configserver.Setupper) (*configserver.Server, error) {
	cs := s.ConfigServer
	return configserver.New(&configserver.Config{
		Host:          cs.Host,
		Port:          cs.Port,
		AcceptTimeout: cs.AcceptTimeout,
		ReadTimeout:   cs.ReadTimeout,
		MaxBody:       cs.MaxBody,
		Advertise:     cs.Advertise,
		NetworksPath:  s.NetworksPath,
		Store:         store,
		Setup:         setup,
		Context:       ctx,
	})
}
