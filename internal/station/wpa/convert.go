package wpa

import (
	"fmt"
	"net"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/muurk/wifiman/internal/station"
)

// IEEE 802.11 reason code for a 4-way handshake timeout, which is what a
// wrong PSK looks like from the station side.
const reasonHandshakeTimeout = 15

// channelFromFrequency maps a centre frequency in MHz to a channel number.
func channelFromFrequency(mhz int) int {
	switch {
	case mhz == 2484:
		return 14
	case mhz >= 2412 && mhz <= 2472:
		return (mhz - 2407) / 5
	case mhz >= 5955 && mhz <= 7115:
		return (mhz - 5950) / 5
	case mhz >= 5000 && mhz < 5955:
		return (mhz - 5000) / 5
	default:
		return 0
	}
}

// frequencyFromChannel is the inverse for the 2.4 and 5 GHz bands.
func frequencyFromChannel(ch int) (int, error) {
	switch {
	case ch == 14:
		return 2484, nil
	case ch >= 1 && ch <= 13:
		return 2407 + ch*5, nil
	case ch >= 32 && ch <= 177:
		return 5000 + ch*5, nil
	default:
		return 0, fmt.Errorf("unsupported channel %d", ch)
	}
}

// stationStatus maps the supplicant State property onto station.Status.
func stationStatus(state string, hasAddress bool, reason int32) station.Status {
	switch state {
	case "completed":
		if hasAddress {
			return station.StatusGotIP
		}
		return station.StatusConnecting
	case "scanning", "authenticating", "associating", "associated", "4way_handshake", "group_handshake":
		return station.StatusConnecting
	case "disconnected":
		if reason == reasonHandshakeTimeout || reason == -reasonHandshakeTimeout {
			return station.StatusWrongPassword
		}
		return station.StatusIdle
	case "interface_disabled":
		return station.StatusConnectFail
	default:
		return station.StatusIdle
	}
}

func keyMgmt(v dbus.Variant) []string {
	m, ok := v.Value().(map[string]dbus.Variant)
	if !ok {
		return nil
	}
	km, _ := m["KeyMgmt"].Value().([]string)
	return km
}

func securityFrom(rsn, wpa []string, privacy bool) station.Security {
	has := func(list []string, want string) bool {
		for _, s := range list {
			if strings.Contains(s, want) {
				return true
			}
		}
		return false
	}

	switch {
	case has(rsn, "sae"):
		return station.SecurityWPA3
	case has(rsn, "eap") || has(wpa, "eap"):
		return station.SecurityEnterprise
	case len(rsn) > 0 && len(wpa) > 0:
		return station.SecurityWPAWPA2PSK
	case len(rsn) > 0:
		return station.SecurityWPA2PSK
	case len(wpa) > 0:
		return station.SecurityWPAPSK
	case privacy:
		return station.SecurityWEP
	default:
		return station.SecurityOpen
	}
}

// scanResult converts BSS properties. Missing SSID or BSSID leave the
// corresponding field nil so the normalizer can reject the record.
func scanResult(props map[string]dbus.Variant) station.RawScanResult {
	var r station.RawScanResult

	if v, ok := props["SSID"]; ok {
		r.SSID, _ = v.Value().([]byte)
	}
	if v, ok := props["BSSID"]; ok {
		r.BSSID, _ = v.Value().([]byte)
	}
	if v, ok := props["Signal"]; ok {
		if sig, ok := v.Value().(int16); ok {
			r.RSSI = int(sig)
		}
	}
	if v, ok := props["Frequency"]; ok {
		if f, ok := v.Value().(uint16); ok {
			r.Channel = channelFromFrequency(int(f))
		}
	}

	privacy, _ := props["Privacy"].Value().(bool)
	r.Security = securityFrom(keyMgmt(props["RSN"]), keyMgmt(props["WPA"]), privacy)
	r.Hidden = r.SSID != nil && len(r.SSID) == 0

	return r
}

// stationNetworkArgs builds the AddNetwork arguments for joining a network.
func stationNetworkArgs(ssid, password string, bssid []byte) map[string]any {
	args := map[string]any{
		"ssid":      ssid,
		"scan_ssid": int32(1),
	}
	if password != "" {
		args["psk"] = password
	} else {
		args["key_mgmt"] = "NONE"
	}
	if len(bssid) == 6 {
		args["bssid"] = net.HardwareAddr(bssid).String()
	}
	return args
}

// accessPointNetworkArgs builds a mode 2 (AP) network block from the
// document's access point options.
func accessPointNetworkArgs(options map[string]any) (map[string]any, error) {
	essid, _ := options["essid"].(string)
	if essid == "" {
		essid, _ = options["ssid"].(string)
	}
	if essid == "" {
		return nil, fmt.Errorf("access point config has no essid")
	}

	channel := 6
	if v, ok := numeric(options["channel"]); ok {
		channel = v
	}
	freq, err := frequencyFromChannel(channel)
	if err != nil {
		return nil, err
	}

	args := map[string]any{
		"ssid":      essid,
		"mode":      uint32(2),
		"frequency": uint32(freq),
	}

	if password, _ := options["password"].(string); password != "" {
		args["key_mgmt"] = "WPA-PSK"
		args["proto"] = "RSN"
		args["pairwise"] = "CCMP"
		args["psk"] = password
	} else {
		args["key_mgmt"] = "NONE"
	}

	if hidden, _ := options["hidden"].(bool); hidden {
		args["ignore_broadcast_ssid"] = int32(1)
	}

	return args, nil
}

func numeric(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
