package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wifiman.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	s := Default()

	if s.NetworksPath != "/networks.json" {
		t.Errorf("NetworksPath = %v, want /networks.json", s.NetworksPath)
	}
	if s.Supervisor.Interval != 10*time.Second {
		t.Errorf("Supervisor.Interval = %v, want 10s", s.Supervisor.Interval)
	}
	if s.Supervisor.PollInterval != 500*time.Millisecond || s.Supervisor.PollAttempts != 10 {
		t.Errorf("poll = %v x %d, want 500ms x 10", s.Supervisor.PollInterval, s.Supervisor.PollAttempts)
	}
	if s.ConfigServer.Port != 8080 {
		t.Errorf("ConfigServer.Port = %v, want 8080", s.ConfigServer.Port)
	}
	if err := s.Validate(); err != nil {
		t.Errorf("Default().Validate() error = %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Driver != DriverWPA {
		t.Errorf("Driver = %v, want %v", s.Driver, DriverWPA)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeSettings(t, `
networks_path: /data/networks.json
driver: mock
mock_scan_file: /data/scan.json
supervisor:
  interval: 30s
config_server:
  port: 9000
  advertise: true
companion:
  command: ["/usr/bin/webrepl", "--port", "8266"]
mqtt:
  enabled: true
  broker: broker.local
  qos: 1
log_level: debug
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if s.NetworksPath != "/data/networks.json" || s.Driver != DriverMock {
		t.Errorf("NetworksPath/Driver = %v/%v", s.NetworksPath, s.Driver)
	}
	if s.Supervisor.Interval != 30*time.Second {
		t.Errorf("Supervisor.Interval = %v, want 30s", s.Supervisor.Interval)
	}
	if s.Supervisor.PollAttempts != 10 {
		t.Errorf("Supervisor.PollAttempts = %v, want default 10", s.Supervisor.PollAttempts)
	}
	if s.ConfigServer.Port != 9000 || !s.ConfigServer.Advertise {
		t.Errorf("ConfigServer = %+v", s.ConfigServer)
	}
	if s.ConfigServer.ReadTimeout != 5*time.Second {
		t.Errorf("ConfigServer.ReadTimeout = %v, want default 5s", s.ConfigServer.ReadTimeout)
	}
	if len(s.Companion.Command) != 3 {
		t.Errorf("Companion.Command = %v", s.Companion.Command)
	}
	if s.MQTT.Broker != "broker.local" || s.MQTT.QoS != 1 || s.MQTT.Port != 1883 {
		t.Errorf("MQTT = %+v", s.MQTT)
	}
	if s.LogLevel != "debug" {
		t.Errorf("LogLevel = %v, want debug", s.LogLevel)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"bad yaml", "driver: [", "failed to parse"},
		{"unknown driver", "driver: nl80211", "driver must be"},
		{"zero interval", "supervisor:\n  interval: 0s", "supervisor.interval"},
		{"port range", "config_server:\n  port: 70000", "config_server.port"},
		{"mqtt without broker", "mqtt:\n  enabled: true", "mqtt.broker"},
		{"mqtt qos", "mqtt:\n  enabled: true\n  broker: b\n  qos: 3", "mqtt.qos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeSettings(t, tt.content))
			if err == nil {
				t.Fatal("Load() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := Default()
	s.Driver = "bogus"
	s.ConfigServer.Port = 0

	err := s.Validate()
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	msg := err.Error()
	if !strings.Contains(msg, "driver") || !strings.Contains(msg, "config_server.port") {
		t.Errorf("Validate() error = %v, want both problems", err)
	}
}
