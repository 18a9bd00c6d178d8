package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/muurk/wifiman/internal/networks"
	"gopkg.in/yaml.v3"
)

// DefaultSettingsPath is where the daemon looks for its settings.
const DefaultSettingsPath = "/etc/wifiman/wifiman.yaml"

// Drivers understood by the daemon.
const (
	DriverWPA  = "wpa"
	DriverMock = "mock"
)

// Settings is the daemon settings file.
type Settings struct {
	NetworksPath     string `yaml:"networks_path"`
	Driver           string `yaml:"driver"`
	StationInterface string `yaml:"station_interface"`
	APInterface      string `yaml:"ap_interface"`
	MockScanFile     string `yaml:"mock_scan_file,omitempty"`

	Supervisor   SupervisorSettings   `yaml:"supervisor"`
	ConfigServer ConfigServerSettings `yaml:"config_server"`
	Companion    CompanionSettings    `yaml:"companion"`
	History      HistorySettings      `yaml:"history"`
	Metrics      MetricsSettings      `yaml:"metrics"`
	MQTT         MQTTSettings         `yaml:"mqtt"`
	EventStream  EventStreamSettings  `yaml:"event_stream"`

	LogLevel string `yaml:"log_level"`
}

// SupervisorSettings controls the periodic loop and connection polling.
type SupervisorSettings struct {
	Interval     time.Duration `yaml:"interval"`
	PollInterval time.Duration `yaml:"poll_interval"`
	PollAttempts int           `yaml:"poll_attempts"`
}

// ConfigServerSettings controls the listener. Whether it runs at all and
// its password come from the network document.
type ConfigServerSettings struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	AcceptTimeout time.Duration `yaml:"accept_timeout"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	MaxBody       int           `yaml:"max_body"`
	Advertise     bool          `yaml:"advertise"`
}

// CompanionSettings names the program started as the companion service.
// An empty command leaves the service unavailable.
type CompanionSettings struct {
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

type HistorySettings struct {
	Path  string `yaml:"path"`
	Limit int    `yaml:"limit"`
}

type MetricsSettings struct {
	Listen string `yaml:"listen"`
}

// MQTTSettings configures the event publisher.
type MQTTSettings struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	Port        int    `yaml:"port"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retain      bool   `yaml:"retain"`
}

type EventStreamSettings struct {
	URL string `yaml:"url"`
}

// Default returns settings with every default filled in.
func Default() *Settings {
	return &Settings{
		NetworksPath:     networks.DefaultPath,
		Driver:           DriverWPA,
		StationInterface: "wlan0",
		APInterface:      "uap0",
		Supervisor: SupervisorSettings{
			Interval:     10 * time.Second,
			PollInterval: 500 * time.Millisecond,
			PollAttempts: 10,
		},
		ConfigServer: ConfigServerSettings{
			Port:          8080,
			AcceptTimeout: time.Second,
			ReadTimeout:   5 * time.Second,
			MaxBody:       64 * 1024,
		},
		Companion: CompanionSettings{
			Timeout: 3 * time.Second,
		},
		History: HistorySettings{
			Limit: 500,
		},
		MQTT: MQTTSettings{
			Port:        1883,
			ClientID:    "wifiman",
			TopicPrefix: "wifiman",
		},
	}
}

// Load reads settings from path on top of Default. A missing file is not an
// error.
func Load(path string) (*Settings, error) {
	s := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse settings file %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return s, nil
}

// Validate checks value ranges.
func (s *Settings) Validate() error {
	var errs []error

	switch s.Driver {
	case DriverWPA, DriverMock:
	default:
		errs = append(errs, fmt.Errorf("driver must be %q or %q, got %q", DriverWPA, DriverMock, s.Driver))
	}
	if s.NetworksPath == "" {
		errs = append(errs, errors.New("networks_path must not be empty"))
	}
	if s.Supervisor.Interval <= 0 {
		errs = append(errs, errors.New("supervisor.interval must be positive"))
	}
	if s.Supervisor.PollInterval <= 0 {
		errs = append(errs, errors.New("supervisor.poll_interval must be positive"))
	}
	if s.Supervisor.PollAttempts < 1 {
		errs = append(errs, errors.New("supervisor.poll_attempts must be at least 1"))
	}
	if s.ConfigServer.Port < 1 || s.ConfigServer.Port > 65535 {
		errs = append(errs, fmt.Errorf("config_server.port out of range: %d", s.ConfigServer.Port))
	}
	if s.ConfigServer.AcceptTimeout <= 0 || s.ConfigServer.ReadTimeout <= 0 {
		errs = append(errs, errors.New("config_server timeouts must be positive"))
	}
	if s.ConfigServer.MaxBody < 1 {
		errs = append(errs, errors.New("config_server.max_body must be positive"))
	}
	if s.MQTT.Enabled {
		if strings.TrimSpace(s.MQTT.Broker) == "" {
			errs = append(errs, errors.New("mqtt.broker is required when mqtt is enabled"))
		}
		if s.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", s.MQTT.QoS))
		}
	}
	if s.History.Path != "" && s.History.Limit < 0 {
		errs = append(errs, errors.New("history.limit must not be negative"))
	}

	return errors.Join(errs...)
}
