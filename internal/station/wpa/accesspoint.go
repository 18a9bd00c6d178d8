package wpa

import (
	"fmt"
	"sync"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

var _ station.AccessPoint = (*AccessPoint)(nil)

// AccessPoint hosts a network through a mode 2 network block.
type AccessPoint struct {
	sup    *Supplicant
	ifname string
	log    *zap.Logger

	mu      sync.Mutex
	iface   *Interface
	active  bool
	options map[string]any
}

// NewAccessPoint binds to ifname, which is usually a virtual AP interface
// such as uap0.
func NewAccessPoint(sup *Supplicant, ifname string) *AccessPoint {
	return &AccessPoint{
		sup:     sup,
		ifname:  ifname,
		log:     logging.Named("wpa-ap").With(zap.String("ifname", ifname)),
		options: make(map[string]any),
	}
}

func (a *AccessPoint) Activate(active bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if active == a.active {
		return nil
	}
	if !active {
		a.active = false
		if a.iface == nil {
			return nil
		}
		return a.iface.RemoveAllNetworks()
	}

	if a.iface == nil {
		iface, err := a.sup.Interface(a.ifname)
		if err != nil {
			return err
		}
		a.iface = iface
	}
	a.active = true

	// Without an essid there is nothing to host yet; SetConfig starts it.
	if _, ok := a.options["essid"]; !ok {
		if _, ok := a.options["ssid"]; !ok {
			return nil
		}
	}
	return a.applyLocked()
}

func (a *AccessPoint) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *AccessPoint) SetConfig(options map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	for k, v := range options {
		a.options[k] = v
	}
	if !a.active {
		return nil
	}
	return a.applyLocked()
}

func (a *AccessPoint) Config(key string) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.options[key]
	if !ok {
		return nil, fmt.Errorf("config %q: %w", key, station.ErrUnsupported)
	}
	return v, nil
}

func (a *AccessPoint) applyLocked() error {
	args, err := accessPointNetworkArgs(a.options)
	if err != nil {
		return err
	}
	if err := a.iface.RemoveAllNetworks(); err != nil {
		return err
	}
	path, err := a.iface.AddNetwork(args)
	if err != nil {
		return err
	}
	if err := a.iface.SelectNetwork(path); err != nil {
		return err
	}
	a.log.Info("Access point network selected",
		zap.Any("ssid", args["ssid"]),
		zap.Any("frequency", args["frequency"]),
	)
	return nil
}
