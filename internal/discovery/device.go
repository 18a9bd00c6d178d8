package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Device is a config server found on the network.
type Device struct {
	// Instance is the advertised instance name, usually the hostname.
	Instance string

	// Hostname is the mDNS host (e.g. "garden-pi.local.")
	Hostname string

	IP   string
	Port int

	// Metadata holds the TXT record key/value pairs.
	Metadata map[string]string

	DiscoveredAt time.Time
}

// String returns a human-readable string representation of the device
func (d *Device) String() string {
	return fmt.Sprintf("wifiman %s (%s) at %s", d.Instance, d.Hostname, net.JoinHostPort(d.IP, strconv.Itoa(d.Port)))
}

// BaseURL returns the HTTP base URL for the device
func (d *Device) BaseURL() string {
	return "http://" + net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Device) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

// AuthRequired reports whether the device advertised Basic auth. Devices
// that say nothing are assumed to require it.
func (d *Device) AuthRequired() bool {
	return d.GetMetadata("auth") != "none"
}
