// Package config holds the two YAML files wifiman reads besides the
// network document itself.
//
// # Daemon settings
//
// The device daemon reads /etc/wifiman/wifiman.yaml (override with
// --settings). A missing file means every default applies:
//
//	networks_path: /networks.json
//	driver: wpa
//	station_interface: wlan0
//	ap_interface: uap0
//	supervisor:
//	  interval: 10s
//	  poll_interval: 500ms
//	  poll_attempts: 10
//	config_server:
//	  port: 8080
//	  accept_timeout: 1s
//	  read_timeout: 5s
//	  max_body: 65536
//	  advertise: false
//	history:
//	  path: /var/lib/wifiman/history.db
//	  limit: 500
//	metrics:
//	  listen: ":9108"
//	mqtt:
//	  enabled: true
//	  broker: broker.local
//	  topic_prefix: wifiman/garden-pi
//
// # Device registry
//
// The operator CLI remembers devices it has talked to in a per-user file:
//   - Linux: $XDG_CONFIG_HOME/wifiman/devices.yaml or $HOME/.config/wifiman/devices.yaml
//   - macOS: $HOME/.config/wifiman/devices.yaml
//   - Windows: %LOCALAPPDATA%\wifiman\devices.yaml
//
// Passwords are never written to the registry.
package config
