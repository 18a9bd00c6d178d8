package wpa

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

var _ station.Station = (*Station)(nil)

// Station is a station.Station backed by a wpa_supplicant interface.
type Station struct {
	sup         *Supplicant
	ifname      string
	scanTimeout time.Duration
	log         *zap.Logger

	mu     sync.Mutex
	iface  *Interface
	active bool
}

// NewStation binds to ifname. The interface is only looked up on Activate.
func NewStation(sup *Supplicant, ifname string) *Station {
	return &Station{
		sup:         sup,
		ifname:      ifname,
		scanTimeout: DefaultScanTimeout,
		log:         logging.Named("wpa").With(zap.String("ifname", ifname)),
	}
}

func (s *Station) current() (*Interface, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.iface == nil {
		return nil, fmt.Errorf("interface %s is not active", s.ifname)
	}
	return s.iface, nil
}

func (s *Station) Activate(active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !active {
		if s.iface != nil {
			_ = s.iface.Disconnect()
		}
		s.active = false
		return nil
	}

	if s.iface == nil {
		iface, err := s.sup.Interface(s.ifname)
		if err != nil {
			return err
		}
		s.iface = iface
		s.log.Debug("Bound supplicant interface", zap.String("path", string(iface.Path())))
	}
	s.active = true
	return nil
}

func (s *Station) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Station) Connect(ssid, password string, bssid []byte) error {
	iface, err := s.current()
	if err != nil {
		return err
	}

	if err := iface.RemoveAllNetworks(); err != nil {
		return err
	}
	path, err := iface.AddNetwork(stationNetworkArgs(ssid, password, bssid))
	if err != nil {
		return err
	}
	return iface.SelectNetwork(path)
}

func (s *Station) IsConnected() (bool, error) {
	st, err := s.Status()
	if err != nil {
		return false, err
	}
	return st == station.StatusGotIP, nil
}

func (s *Station) Status() (station.Status, error) {
	iface, err := s.current()
	if err != nil {
		return station.StatusIdle, nil
	}
	state, err := iface.State()
	if err != nil {
		return station.StatusIdle, err
	}

	hasAddr := false
	if state == "completed" {
		if info, err := addressInfo(s.ifname); err == nil {
			hasAddr = !info.Unassigned()
		}
	}
	return stationStatus(state, hasAddr, iface.DisconnectReason()), nil
}

func (s *Station) Scan() ([]station.RawScanResult, error) {
	iface, err := s.current()
	if err != nil {
		return nil, err
	}
	if err := iface.Scan(s.scanTimeout); err != nil {
		return nil, err
	}

	bsss, err := iface.BSSs()
	if err != nil {
		return nil, err
	}
	results := make([]station.RawScanResult, 0, len(bsss))
	for _, props := range bsss {
		results = append(results, scanResult(props))
	}
	return results, nil
}

func (s *Station) AddressInfo() (station.AddressInfo, error) {
	return addressInfo(s.ifname)
}

// SetConfig writes supported Interface properties: "country" and "ap_scan".
func (s *Station) SetConfig(options map[string]any) error {
	iface, err := s.current()
	if err != nil {
		return err
	}
	for k, v := range options {
		switch k {
		case "country":
			if err := iface.SetProperty("Country", fmt.Sprint(v)); err != nil {
				return err
			}
		case "ap_scan":
			n, ok := numeric(v)
			if !ok {
				return fmt.Errorf("ap_scan must be a number")
			}
			if err := iface.SetProperty("ApScan", uint32(n)); err != nil {
				return err
			}
		default:
			return fmt.Errorf("option %q: %w", k, station.ErrUnsupported)
		}
	}
	return nil
}

// Config answers "ssid" and "bssid" from the current BSS, and "ifname".
func (s *Station) Config(key string) (any, error) {
	if key == "ifname" {
		return s.ifname, nil
	}

	iface, err := s.current()
	if err != nil {
		return nil, err
	}
	switch key {
	case "ssid", "bssid":
		props, err := iface.CurrentBSS()
		if err != nil {
			return nil, err
		}
		r := scanResult(props)
		if key == "ssid" {
			return string(r.SSID), nil
		}
		return net.HardwareAddr(r.BSSID).String(), nil
	default:
		return nil, fmt.Errorf("config %q: %w", key, station.ErrUnsupported)
	}
}
