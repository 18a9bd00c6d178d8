package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName      = "wifiman"
	registryFile = "devices.yaml"

	registryVersion = 1
)

// Mutex for file operations
var fileMutex sync.Mutex

// Registry is the operator's list of known devices.
type Registry struct {
	Version     int                `yaml:"version"`
	Devices     map[string]*Device `yaml:"devices,omitempty"` // Keyed by mDNS instance name
	Preferences *Preferences       `yaml:"preferences,omitempty"`
}

// Device is what the operator CLI remembers about one device.
type Device struct {
	Nickname string    `yaml:"nickname,omitempty"`
	LastHost string    `yaml:"last_host,omitempty"`
	LastPort int       `yaml:"last_port,omitempty"`
	LastSeen time.Time `yaml:"last_seen,omitempty"`

	// LastPush is when a document was last pushed and verified.
	LastPush time.Time `yaml:"last_push,omitempty"`
}

// Preferences for the operator CLI.
type Preferences struct {
	DiscoverTimeout int `yaml:"discover_timeout"` // seconds
	DefaultPort     int `yaml:"default_port"`
}

// NewRegistry creates a new Registry with default values.
func NewRegistry() *Registry {
	return &Registry{
		Version: registryVersion,
		Devices: make(map[string]*Device),
		Preferences: &Preferences{
			DiscoverTimeout: 5,
			DefaultPort:     8080,
		},
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, appName), nil
		}
		profile := os.Getenv("USERPROFILE")
		if profile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(profile, "AppData", "Local", appName), nil
	case "darwin":
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// GetRegistryPath returns the full path to the device registry.
func GetRegistryPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, registryFile), nil
}

// LoadRegistry loads the registry from its default location.
func LoadRegistry() (*Registry, error) {
	path, err := GetRegistryPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry path: %w", err)
	}
	return LoadRegistryFile(path)
}

// LoadRegistryFile loads the registry at path. A missing file yields a new
// default registry.
func LoadRegistryFile(path string) (*Registry, error) {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var registry Registry
	if err := yaml.Unmarshal(data, &registry); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if registry.Version != registryVersion {
		return nil, fmt.Errorf("unsupported registry version: %d (expected %d)", registry.Version, registryVersion)
	}

	defaults := NewRegistry()
	if registry.Devices == nil {
		registry.Devices = defaults.Devices
	}
	if registry.Preferences == nil {
		registry.Preferences = defaults.Preferences
	}
	return &registry, nil
}

// Save writes the registry to its default location.
func (r *Registry) Save() error {
	path, err := GetRegistryPath()
	if err != nil {
		return fmt.Errorf("failed to get registry path: %w", err)
	}
	return r.SaveFile(path)
}

// SaveFile writes the registry to path atomically.
func (r *Registry) SaveFile(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create registry directory: %w", err)
	}

	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal registry: %w", err)
	}

	header := []byte("# wifiman device registry\n# Passwords are never stored here.\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary registry file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save registry: %w", err)
	}
	return nil
}

// EnsureDevice returns the entry for instance, creating it if needed.
func (r *Registry) EnsureDevice(instance string) *Device {
	if r.Devices == nil {
		r.Devices = make(map[string]*Device)
	}
	if device, exists := r.Devices[instance]; exists {
		return device
	}
	device := &Device{}
	r.Devices[instance] = device
	return device
}

// GetDevice returns nil for unknown devices.
func (r *Registry) GetDevice(instance string) *Device {
	return r.Devices[instance]
}

// Seen records where a device was last reached.
func (r *Registry) Seen(instance, host string, port int) {
	device := r.EnsureDevice(instance)
	device.LastHost = host
	device.LastPort = port
	device.LastSeen = time.Now()
}

// Pushed records a verified push.
func (r *Registry) Pushed(instance string) {
	r.EnsureDevice(instance).LastPush = time.Now()
}

// SetNickname sets a user-friendly name for a device.
func (r *Registry) SetNickname(instance, nickname string) {
	r.EnsureDevice(instance).Nickname = nickname
}

// Resolve finds a device by instance name or nickname.
func (r *Registry) Resolve(name string) (string, *Device) {
	if device, ok := r.Devices[name]; ok {
		return name, device
	}
	for _, instance := range r.Instances() {
		if r.Devices[instance].Nickname == name {
			return instance, r.Devices[instance]
		}
	}
	return "", nil
}

// Instances returns the device keys in sorted order.
func (r *Registry) Instances() []string {
	keys := make([]string, 0, len(r.Devices))
	for k := range r.Devices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
