package planner

import (
	"context"
	"time"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is the wait between connectivity checks.
	DefaultPollInterval = 500 * time.Millisecond
	// DefaultMaxPolls bounds one attempt to DefaultPollInterval*DefaultMaxPolls.
	DefaultMaxPolls = 10
)

// Attempter joins candidates one at a time.
type Attempter struct {
	Station      station.Station
	PollInterval time.Duration
	MaxPolls     int
}

// NewAttempter returns an Attempter with the default poll budget.
func NewAttempter(st station.Station) *Attempter {
	return &Attempter{
		Station:      st,
		PollInterval: DefaultPollInterval,
		MaxPolls:     DefaultMaxPolls,
	}
}

// Attempt asks the station to join c and polls until it reports connected.
// It returns false when the driver rejects the request, a status check
// fails, the poll budget runs out or ctx is done.
func (a *Attempter) Attempt(ctx context.Context, c Candidate) bool {
	log := logging.Named("attempt").With(
		zap.String("ssid", c.SSID),
		zap.Stringer("bssid", c.BSSID),
	)

	if err := a.Station.Connect(c.SSID, c.Password, c.BSSID.Bytes()); err != nil {
		log.Warn("Connect request rejected", zap.Error(err))
		return false
	}

	interval := a.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	polls := a.MaxPolls
	if polls <= 0 {
		polls = DefaultMaxPolls
	}

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for i := 0; i < polls; i++ {
		ok, err := a.Station.IsConnected()
		if err != nil {
			log.Warn("Status check failed", zap.Int("poll", i+1), zap.Error(err))
			return false
		}
		if ok {
			log.Debug("Connected", zap.Int("poll", i+1))
			return true
		}

		timer.Reset(interval)
		select {
		case <-ctx.Done():
			log.Debug("Attempt cancelled")
			return false
		case <-timer.C:
		}
	}

	log.Info("Connection attempt timed out", zap.Duration("waited", interval*time.Duration(polls)))
	return false
}
