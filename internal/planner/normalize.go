package planner

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"unicode/utf8"

	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/station"
	"go.uber.org/zap"
)

// BSSID is the 6-byte hardware address of one radio.
type BSSID [6]byte

func (b BSSID) String() string {
	return net.HardwareAddr(b[:]).String()
}

// Bytes returns the address as a slice for the driver.
func (b BSSID) Bytes() []byte {
	return append([]byte(nil), b[:]...)
}

// ScanRecord is a validated scan entry.
type ScanRecord struct {
	SSID     string
	BSSID    BSSID
	Channel  int
	Strength int
	Security station.Security
	Hidden   bool
}

// ScanError is a driver failure while scanning. It aborts the setup cycle.
type ScanError struct {
	Err error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("network scan failed: %v", e.Err)
}

func (e *ScanError) Unwrap() error {
	return e.Err
}

var (
	errBadSSID  = errors.New("ssid is not valid UTF-8")
	errBadBSSID = errors.New("bssid is not 6 bytes")
)

// Scan runs a scan on st and normalizes the result.
func Scan(st station.Station) ([]ScanRecord, error) {
	raw, err := st.Scan()
	if err != nil {
		return nil, &ScanError{Err: err}
	}
	return Normalize(raw), nil
}

// Normalize drops malformed entries, logging each one, and returns the rest
// sorted by descending strength. The sort is stable so equal strengths keep
// scan order.
func Normalize(raw []station.RawScanResult) []ScanRecord {
	records := make([]ScanRecord, 0, len(raw))
	for i, r := range raw {
		rec, err := toRecord(r)
		if err != nil {
			logging.Warn("Skipping scan result",
				zap.Int("index", i),
				zap.Binary("ssid", r.SSID),
				zap.Error(err),
			)
			continue
		}
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Strength > records[j].Strength
	})
	return records
}

func toRecord(r station.RawScanResult) (ScanRecord, error) {
	if r.SSID == nil || !utf8.Valid(r.SSID) {
		return ScanRecord{}, errBadSSID
	}
	if len(r.BSSID) != len(BSSID{}) {
		return ScanRecord{}, errBadBSSID
	}

	rec := ScanRecord{
		SSID:     string(r.SSID),
		Channel:  r.Channel,
		Strength: r.RSSI,
		Security: r.Security,
		Hidden:   r.Hidden,
	}
	copy(rec.BSSID[:], r.BSSID)
	return rec, nil
}
