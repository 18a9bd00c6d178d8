package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetConfigDir(t *testing.T) {
	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}

	if !strings.Contains(configDir, "wifiman") {
		t.Errorf("GetConfigDir() = %v, should contain 'wifiman'", configDir)
	}

	if runtime.GOOS == "darwin" && !strings.Contains(configDir, ".config") {
		t.Errorf("macOS config dir should contain '.config', got: %v", configDir)
	}
}

func TestGetConfigDirHonoursXDG(t *testing.T) {
	if runtime.GOOS == "windows" || runtime.GOOS == "darwin" {
		t.Skip("XDG_CONFIG_HOME only applies on Linux and other Unix systems")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")

	configDir, err := GetConfigDir()
	if err != nil {
		t.Fatalf("GetConfigDir() error = %v", err)
	}
	if configDir != "/tmp/xdg/wifiman" {
		t.Errorf("GetConfigDir() = %v, want /tmp/xdg/wifiman", configDir)
	}
}

func TestGetRegistryPath(t *testing.T) {
	path, err := GetRegistryPath()
	if err != nil {
		t.Fatalf("GetRegistryPath() error = %v", err)
	}
	if filepath.Base(path) != "devices.yaml" {
		t.Errorf("GetRegistryPath() should end with 'devices.yaml', got: %v", path)
	}
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()

	if reg.Version != 1 {
		t.Errorf("NewRegistry().Version = %v, want 1", reg.Version)
	}
	if reg.Devices == nil {
		t.Error("NewRegistry().Devices should not be nil")
	}
	if reg.Preferences.DefaultPort != 8080 {
		t.Errorf("NewRegistry().Preferences.DefaultPort = %v, want 8080", reg.Preferences.DefaultPort)
	}
}

func TestRegistryEnsureDevice(t *testing.T) {
	reg := NewRegistry()

	device1 := reg.EnsureDevice("garden-pi")
	if device1 == nil {
		t.Fatal("EnsureDevice() returned nil")
	}
	if device2 := reg.EnsureDevice("garden-pi"); device1 != device2 {
		t.Error("EnsureDevice() should return same entry for same instance")
	}
	if device3 := reg.EnsureDevice("shed"); device1 == device3 {
		t.Error("EnsureDevice() should create new entry for different instance")
	}
}

func TestRegistrySeen(t *testing.T) {
	reg := NewRegistry()

	before := time.Now()
	reg.Seen("garden-pi", "192.168.4.16", 8080)
	after := time.Now()

	device := reg.GetDevice("garden-pi")
	if device == nil {
		t.Fatal("Device should exist after Seen()")
	}
	if device.LastHost != "192.168.4.16" || device.LastPort != 8080 {
		t.Errorf("LastHost/LastPort = %v/%v, want 192.168.4.16/8080", device.LastHost, device.LastPort)
	}
	if device.LastSeen.Before(before) || device.LastSeen.After(after) {
		t.Errorf("LastSeen = %v, should be between %v and %v", device.LastSeen, before, after)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()
	reg.SetNickname("garden-pi", "garden")
	reg.Seen("shed", "10.0.0.5", 8080)

	tests := []struct {
		name         string
		wantInstance string
	}{
		{"garden-pi", "garden-pi"},
		{"garden", "garden-pi"},
		{"shed", "shed"},
		{"attic", ""},
	}

	for _, tt := range tests {
		instance, device := reg.Resolve(tt.name)
		if instance != tt.wantInstance {
			t.Errorf("Resolve(%q) = %q, want %q", tt.name, instance, tt.wantInstance)
		}
		if (device == nil) != (tt.wantInstance == "") {
			t.Errorf("Resolve(%q) device = %v", tt.name, device)
		}
	}
}

func TestRegistrySaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "devices.yaml")

	reg := NewRegistry()
	reg.SetNickname("garden-pi", "Garden")
	reg.Seen("garden-pi", "192.168.4.16", 8080)
	reg.Pushed("garden-pi")

	if err := reg.SaveFile(path); err != nil {
		t.Fatalf("SaveFile() error = %v", err)
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temporary file left behind: %v", err)
	}

	loaded, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}

	device := loaded.GetDevice("garden-pi")
	if device == nil {
		t.Fatal("Device should exist in loaded registry")
	}
	if device.Nickname != "Garden" {
		t.Errorf("Loaded nickname = %v, want 'Garden'", device.Nickname)
	}
	if device.LastHost != "192.168.4.16" {
		t.Errorf("Loaded LastHost = %v, want 192.168.4.16", device.LastHost)
	}
	if device.LastPush.IsZero() {
		t.Error("Loaded LastPush should be set")
	}
}

func TestLoadRegistryFileMissing(t *testing.T) {
	reg, err := LoadRegistryFile(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if len(reg.Devices) != 0 {
		t.Errorf("Devices = %v, want empty", reg.Devices)
	}
}

func TestLoadRegistryFileBadVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte("version: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadRegistryFile(path); err == nil {
		t.Error("LoadRegistryFile() should reject unknown versions")
	}
}

func TestLoadRegistryFileFillsPreferences(t *testing.T) {
	path := filepath.Join(t.TempDir(), "devices.yaml")
	if err := os.WriteFile(path, []byte("version: 1\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	reg, err := LoadRegistryFile(path)
	if err != nil {
		t.Fatalf("LoadRegistryFile() error = %v", err)
	}
	if reg.Preferences == nil || reg.Devices == nil {
		t.Fatalf("LoadRegistryFile() left nil fields: %+v", reg)
	}
}

func BenchmarkEnsureDevice(b *testing.B) {
	reg := NewRegistry()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.EnsureDevice("garden-pi")
	}
}
