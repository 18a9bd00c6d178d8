// Package discovery advertises and finds wifiman config servers over mDNS.
//
// A device running the config server with advertising enabled registers a
// "_wifiman._tcp" service in the "local." domain. The TXT record carries:
//
//	version=<build version>
//	auth=basic|none
//	path=/config
//
// Operators find devices with a Scanner:
//
//	devices, err := discovery.NewScanner().ScanForDevices()
//	for _, d := range devices {
//	    fmt.Println(d.Instance, d.BaseURL())
//	}
//
// Devices that joined a network are found on that network; devices running
// only their own access point are found by clients joined to that AP.
package discovery
