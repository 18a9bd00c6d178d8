// Package wpa drives wpa_supplicant over its D-Bus API
// (fi.w1.wpa_supplicant1) and exposes it as station.Station and
// station.AccessPoint.
//
// wpa_supplicant must run with the -u flag so that it registers on the
// system bus. The access point side requires a build with AP mode support;
// the network is added with mode 2 on the AP interface.
package wpa
