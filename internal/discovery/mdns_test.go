package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, ips []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = ips
	e.Text = txt
	return e
}

func TestScanner_parseServiceEntry(t *testing.T) {
	scanner := NewScanner()

	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name:         "device with IPv4",
			entry:        entry("garden-pi", "garden-pi.local.", 8080, []net.IP{net.ParseIP("192.168.4.16")}, "auth=basic"),
			wantInstance: "garden-pi",
			wantIP:       "192.168.4.16",
			wantPort:     8080,
		},
		{
			name:         "missing port falls back to default",
			entry:        entry("shed", "shed.local.", 0, []net.IP{net.ParseIP("10.0.0.5")}),
			wantInstance: "shed",
			wantIP:       "10.0.0.5",
			wantPort:     DefaultPort,
		},
		{
			name: "IPv6 only",
			entry: func() *zeroconf.ServiceEntry {
				e := entry("v6", "v6.local.", 8080, nil)
				e.AddrIPv6 = []net.IP{net.ParseIP("fe80::1")}
				return e
			}(),
			wantInstance: "v6",
			wantIP:       "fe80::1",
			wantPort:     8080,
		},
		{
			name:    "no address",
			entry:   entry("ghost", "ghost.local.", 8080, nil),
			wantNil: true,
		},
		{
			name:    "no instance",
			entry:   entry("", "anon.local.", 8080, []net.IP{net.ParseIP("10.0.0.9")}),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device := scanner.parseServiceEntry(tt.entry)

			if tt.wantNil {
				if device != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", device)
				}
				return
			}
			if device == nil {
				t.Fatal("parseServiceEntry() = nil, want device")
			}
			if device.Instance != tt.wantInstance {
				t.Errorf("device.Instance = %q, want %q", device.Instance, tt.wantInstance)
			}
			if device.IP != tt.wantIP {
				t.Errorf("device.IP = %q, want %q", device.IP, tt.wantIP)
			}
			if device.Port != tt.wantPort {
				t.Errorf("device.Port = %d, want %d", device.Port, tt.wantPort)
			}
			if time.Since(device.DiscoveredAt) > time.Second {
				t.Errorf("device.DiscoveredAt is not recent: %v", device.DiscoveredAt)
			}
		})
	}
}

func TestScanner_parseServiceEntry_Metadata(t *testing.T) {
	scanner := NewScanner()

	device := scanner.parseServiceEntry(entry("pi", "pi.local.", 8080,
		[]net.IP{net.ParseIP("192.168.4.16")},
		"version=v0.3.0", "auth=none", "path=/config", "flag"))
	if device == nil {
		t.Fatal("parseServiceEntry() = nil, want device")
	}

	expected := map[string]string{
		"version": "v0.3.0",
		"auth":    "none",
		"path":    "/config",
		"flag":    "",
	}
	if len(device.Metadata) != len(expected) {
		t.Errorf("device.Metadata has %d entries, want %d", len(device.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := device.Metadata[key]; !ok || got != want {
			t.Errorf("device.Metadata[%q] = %q, %v, want %q", key, got, ok, want)
		}
	}
	if device.AuthRequired() {
		t.Error("AuthRequired() = true for auth=none")
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}
