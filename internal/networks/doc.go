// Package networks models the persisted network configuration document.
//
// The document is a JSON file (default /networks.json) holding the ordered
// list of known networks, the access point settings and the optional config
// server settings. It is read wholesale at the start of every setup cycle
// and replaced wholesale when the config server accepts an update.
//
// Example document:
//
//	{
//	  "schema_version": 2,
//	  "known_networks": [
//	    {"ssid": "HomeNetwork", "password": "secret", "enables_companion_service": false}
//	  ],
//	  "access_point": {
//	    "config": {"essid": "wifiman-setup", "channel": 11, "hidden": false, "password": "setup-pass"},
//	    "enables_companion_service": true,
//	    "start_policy": "fallback"
//	  },
//	  "config_server": {"enabled": true, "password": "admin-pass"}
//	}
//
// The older keys "schema" and "enables_webrepl" are accepted when reading.
package networks
