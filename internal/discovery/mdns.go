package discovery

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

const (
	// ServiceType is the mDNS service type of the config server
	ServiceType = "_wifiman._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for device discovery
	DefaultScanTimeout = 5 * time.Second

	// DefaultPort is the config server port
	DefaultPort = 8080
)

// Scanner handles mDNS device discovery
type Scanner struct {
	// Timeout is the maximum time to wait for device discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// ScanForDevices discovers all config servers on the local network
func (s *Scanner) ScanForDevices() ([]*Device, error) {
	return s.ScanForDevicesWithContext(context.Background(), nil)
}

// ScanForDevicesWithContext browses until ctx or the timeout ends. found,
// when non-nil, is called for each new device as it arrives.
func (s *Scanner) ScanForDevicesWithContext(ctx context.Context, found func(*Device)) ([]*Device, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		devices []*Device
		seen    = make(map[string]bool)
		done    = make(chan struct{})
	)

	go func() {
		defer close(done)
		for entry := range entries {
			device := s.parseServiceEntry(entry)
			if device == nil {
				continue
			}
			mu.Lock()
			if seen[device.Instance] {
				mu.Unlock()
				continue
			}
			seen[device.Instance] = true
			devices = append(devices, device)
			mu.Unlock()
			if found != nil {
				found(device)
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()
	// The resolver closes entries once the browse context ends.
	select {
	case <-done:
	case <-time.After(time.Second):
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]*Device(nil), devices...), nil
}

// WaitForDevice waits for a device with the given instance name
func (s *Scanner) WaitForDevice(ctx context.Context, instance string) (*Device, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var match *Device
	var once sync.Once
	_, err := s.ScanForDevicesWithContext(ctx, func(d *Device) {
		if d.Instance == instance {
			once.Do(func() {
				match = d
				cancel()
			})
		}
	})
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, fmt.Errorf("device %s not found within %s", instance, s.Timeout)
	}
	return match, nil
}

// parseServiceEntry converts a zeroconf service entry to a Device. Entries
// without an address are dropped.
func (s *Scanner) parseServiceEntry(entry *zeroconf.ServiceEntry) *Device {
	if entry == nil || entry.Instance == "" {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	metadata := make(map[string]string)
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		metadata[key] = value
	}

	return &Device{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// Advertisement is a registered mDNS service.
type Advertisement struct {
	server *zeroconf.Server
}

// Advertise registers the config server on port. An empty instance uses
// the hostname.
func Advertise(instance string, port int, txt []string) (*Advertisement, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("failed to get hostname: %w", err)
		}
		instance = host
	}

	server, err := zeroconf.Register(instance, ServiceType, ServiceDomain, port, txt, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logging.Info("Advertising config server",
		zap.String("instance", instance),
		zap.String("service", ServiceType),
		zap.Int("port", port),
	)
	return &Advertisement{server: server}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertisement) Shutdown() {
	if a != nil && a.server != nil {
		a.server.Shutdown()
	}
}
