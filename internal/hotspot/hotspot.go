// Package hotspot decides whether the local access point runs and applies
// its configuration.
package hotspot

import (
	"errors"
	"fmt"
	"sync"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/networks"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

// ErrApConfig wraps driver failures while switching or configuring the AP.
var ErrApConfig = errors.New("access point configuration failed")

// ShouldActivate applies the start policy. Under fallback anything short of
// a station with an address, including intermediate connecting states,
// activates the AP.
func ShouldActivate(policy networks.Policy, status station.Status) bool {
	switch policy {
	case networks.PolicyAlways:
		return true
	case networks.PolicyFallback:
		return status != station.StatusGotIP
	default:
		return false
	}
}

// Result describes one Apply call.
type Result struct {
	Active     bool
	Started    bool
	Configured bool
}

// Controller owns the access point for the supervisor.
type Controller struct {
	AP     station.AccessPoint
	Status func() station.Status

	mu      sync.Mutex
	applied networks.AccessPointConfig
}

// NewController returns a Controller that reads the station status from st.
func NewController(ap station.AccessPoint, st station.Station) *Controller {
	return &Controller{
		AP: ap,
		Status: func() station.Status {
			s, err := st.Status()
			if err != nil {
				return station.StatusIdle
			}
			return s
		},
	}
}

// Apply brings the AP in line with policy.
//
// The AP is switched provisionally, configured only when it is being turned
// on and either was off or has a different config than last applied, then
// switched again from a fresh decision. The second switch works around
// drivers that leave the AP up after a config change; it is not known to be
// required by any particular driver.
//
// A driver error is returned wrapped in ErrApConfig alongside the best
// known result; callers log it and carry on.
func (c *Controller) Apply(policy networks.Policy, cfg networks.AccessPointConfig) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	log := logging.Named("hotspot")
	wasActive := c.AP.Active()
	want := ShouldActivate(policy, c.Status())

	var errs []error
	if err := c.AP.Activate(want); err != nil {
		errs = append(errs, fmt.Errorf("activate(%v): %w", want, err))
	}

	res := Result{}
	if want && (!wasActive || !cfg.Equal(c.applied)) {
		log.Info("Configuring access point", zap.String("essid", cfg.Essid()), zap.Strings("options", cfg.Keys()))
		if err := c.AP.SetConfig(cfg.Clone()); err != nil {
			errs = append(errs, fmt.Errorf("set config: %w", err))
		} else {
			c.applied = cfg.Clone()
			res.Configured = true
		}
	}

	final := ShouldActivate(policy, c.Status())
	if err := c.AP.Activate(final); err != nil {
		errs = append(errs, fmt.Errorf("activate(%v): %w", final, err))
	}

	res.Active = c.AP.Active()
	res.Started = res.Active && !wasActive
	if !res.Active {
		c.applied = nil
	}

	if len(errs) > 0 {
		err := fmt.Errorf("%w: %w", ErrApConfig, errors.Join(errs...))
		log.Error("Access point update failed", zap.Error(err))
		return res, err
	}
	return res, nil
}
