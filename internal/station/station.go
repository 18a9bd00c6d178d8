// Package station defines the radio driver boundary: a station-mode
// interface that scans and joins networks and an access-point interface
// that hosts one.
package station

import (
	"errors"
	"fmt"
	"net"
)

// Status is the driver's view of the station link.
type Status int

const (
	StatusIdle Status = iota
	StatusConnecting
	StatusWrongPassword
	StatusNoAPFound
	StatusConnectFail
	StatusGotIP
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusConnecting:
		return "connecting"
	case StatusWrongPassword:
		return "wrong_password"
	case StatusNoAPFound:
		return "no_ap_found"
	case StatusConnectFail:
		return "connect_fail"
	case StatusGotIP:
		return "got_ip"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Security is the advertised authentication mode of a scanned network.
type Security int

const (
	SecurityOpen Security = iota
	SecurityWEP
	SecurityWPAPSK
	SecurityWPA2PSK
	SecurityWPAWPA2PSK
	SecurityWPA3
	SecurityEnterprise
)

func (s Security) String() string {
	switch s {
	case SecurityOpen:
		return "open"
	case SecurityWEP:
		return "wep"
	case SecurityWPAPSK:
		return "wpa-psk"
	case SecurityWPA2PSK:
		return "wpa2-psk"
	case SecurityWPAWPA2PSK:
		return "wpa/wpa2-psk"
	case SecurityWPA3:
		return "wpa3-sae"
	case SecurityEnterprise:
		return "enterprise"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// RawScanResult is one access point as reported by the driver. SSID and
// BSSID are raw bytes and may be malformed.
type RawScanResult struct {
	SSID     []byte
	BSSID    []byte
	Channel  int
	RSSI     int
	Security Security
	Hidden   bool
}

// AddressInfo is the station's layer-3 configuration.
type AddressInfo struct {
	IP      string
	Netmask string
	Gateway string
	DNS     string
}

// Unassigned reports whether no usable address is present. An all-zero
// address counts as unassigned.
func (a AddressInfo) Unassigned() bool {
	if a.IP == "" {
		return true
	}
	ip := net.ParseIP(a.IP)
	return ip == nil || ip.IsUnspecified()
}

// ErrUnsupported is returned for config keys a driver does not know.
var ErrUnsupported = errors.New("unsupported by driver")

// Station is a station-mode (client) interface.
type Station interface {
	Activate(active bool) error
	Active() bool
	// Connect starts joining ssid. A nil bssid lets the driver pick the radio.
	Connect(ssid, password string, bssid []byte) error
	IsConnected() (bool, error)
	Status() (Status, error)
	Scan() ([]RawScanResult, error)
	AddressInfo() (AddressInfo, error)
	SetConfig(options map[string]any) error
	// Config reads a single option, for example "ssid" of the joined network.
	Config(key string) (any, error)
}

// AccessPoint is an access-point-mode interface.
type AccessPoint interface {
	Activate(active bool) error
	Active() bool
	SetConfig(options map[string]any) error
	Config(key string) (any, error)
}
