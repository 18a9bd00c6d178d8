package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

// CheckTransition compares the station's link with the last observed state
// and emits connected or disconnected when it changed.
func (s *Supervisor) CheckTransition() {
	s.transitionMu.Lock()
	connected, err := s.config.Station.IsConnected()
	if err != nil {
		s.log.Warn("Connectivity check failed", zap.Error(err))
		connected = false
	}

	prev := s.State()
	switch {
	case connected && prev != Connected:
		s.setState(Connected)
		s.config.Bus.Dispatch(events.Connected, map[string]any{
			"ssid": s.currentSSID(),
			"ip":   s.currentIP(),
		})
	case !connected && prev == Connected:
		s.setState(Disconnected)
		s.config.Bus.Dispatch(events.Disconnected, map[string]any{})
	}
	s.transitionMu.Unlock()
	s.config.Recorder.LinkObserved(connected, s.config.AccessPoint.Active())
}

// NeedsSetup reports whether the station lacks a usable connection: a
// status other than GotIP, or GotIP with an all-zero address.
func (s *Supervisor) NeedsSetup() bool {
	status, err := s.config.Station.Status()
	if err != nil || status != station.StatusGotIP {
		return true
	}
	info, err := s.config.Station.AddressInfo()
	if err != nil {
		return true
	}
	return info.Unassigned()
}

// Tick runs one iteration of the periodic loop.
func (s *Supervisor) Tick(ctx context.Context) {
	s.CheckTransition()
	if s.NeedsSetup() {
		s.log.Info("Station not connected, running setup")
		s.Setup(ctx)
	}
}

// Run ticks every Interval until ctx is done. A failing tick is logged and
// the loop carries on.
func (s *Supervisor) Run(ctx context.Context) error {
	s.log.Info("Managing network", zap.Duration("interval", s.config.Interval))

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Network management stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if err := s.safeTick(ctx); err != nil {
			s.log.Error("Supervisor tick failed", zap.Error(err))
		}
		timer.Reset(s.config.Interval)
	}
}

func (s *Supervisor) safeTick(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	s.Tick(ctx)
	return nil
}
