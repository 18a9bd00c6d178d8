package station

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
)

// MockAddress is the address handed out by Mock after a successful join.
const MockAddress = "192.168.4.20"

// ConnectCall records one Connect request made to a Mock.
type ConnectCall struct {
	SSID     string
	Password string
	BSSID    []byte
}

// Mock is an in-memory Station. A join succeeds when the ssid (and the bssid,
// if given) appears in the current scan list and the password matches the
// one registered with SetPassword, if any.
type Mock struct {
	mu sync.Mutex

	active    bool
	scan      []RawScanResult
	passwords map[string]string
	config    map[string]any

	connected bool
	status    Status
	address   AddressInfo

	pendingPolls int
	connectDelay int

	scanErr    error
	connectErr error
	statusErr  error

	calls []ConnectCall
}

// NewMock returns an idle, inactive mock station.
func NewMock() *Mock {
	return &Mock{
		passwords: make(map[string]string),
		config:    make(map[string]any),
		status:    StatusIdle,
	}
}

// SetScanResults replaces what Scan returns.
func (m *Mock) SetScanResults(results []RawScanResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scan = append([]RawScanResult(nil), results...)
}

// SetPassword makes joins to ssid require password.
func (m *Mock) SetPassword(ssid, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passwords[ssid] = password
}

// SetConnectDelay makes IsConnected report false for n polls after a join.
func (m *Mock) SetConnectDelay(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectDelay = n
}

// SetErrors injects driver failures. Nil clears them.
func (m *Mock) SetErrors(scanErr, connectErr, statusErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanErr = scanErr
	m.connectErr = connectErr
	m.statusErr = statusErr
}

// SetLink forces the link state, e.g. to simulate a dropped connection or a
// join that has not obtained an address yet.
func (m *Mock) SetLink(connected bool, status Status, ip string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = connected
	m.status = status
	m.address = AddressInfo{IP: ip}
	m.pendingPolls = 0
}

// Drop simulates losing the network.
func (m *Mock) Drop() {
	m.SetLink(false, StatusIdle, "")
}

// Calls returns the Connect requests made so far.
func (m *Mock) Calls() []ConnectCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ConnectCall(nil), m.calls...)
}

// LastConnected returns the ssid and bssid of the last successful join.
func (m *Mock) LastConnected() (string, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ssid, _ := m.config["ssid"].(string)
	bssid, _ := m.config["bssid"].([]byte)
	return ssid, bssid
}

func (m *Mock) Activate(active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = active
	return nil
}

func (m *Mock) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

func (m *Mock) Connect(ssid, password string, bssid []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, ConnectCall{SSID: ssid, Password: password, BSSID: append([]byte(nil), bssid...)})
	if m.connectErr != nil {
		return m.connectErr
	}

	m.connected = false
	m.address = AddressInfo{}
	m.status = StatusNoAPFound

	for _, r := range m.scan {
		if string(r.SSID) != ssid || (bssid != nil && !bytes.Equal(bssid, r.BSSID)) {
			continue
		}
		if want, ok := m.passwords[ssid]; ok && want != password {
			m.status = StatusWrongPassword
			return nil
		}
		m.connected = true
		m.status = StatusGotIP
		m.address = AddressInfo{IP: MockAddress, Netmask: "255.255.255.0", Gateway: "192.168.4.1", DNS: "192.168.4.1"}
		m.pendingPolls = m.connectDelay
		m.config["ssid"] = ssid
		m.config["bssid"] = append([]byte(nil), bssid...)
		return nil
	}
	return nil
}

func (m *Mock) IsConnected() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return false, m.statusErr
	}
	if m.pendingPolls > 0 {
		m.pendingPolls--
		return false, nil
	}
	return m.connected, nil
}

func (m *Mock) Status() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return StatusIdle, m.statusErr
	}
	if m.pendingPolls > 0 {
		return StatusConnecting, nil
	}
	return m.status, nil
}

func (m *Mock) Scan() ([]RawScanResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	return append([]RawScanResult(nil), m.scan...), nil
}

func (m *Mock) AddressInfo() (AddressInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statusErr != nil {
		return AddressInfo{}, m.statusErr
	}
	return m.address, nil
}

func (m *Mock) SetConfig(options map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range options {
		m.config[k] = v
	}
	return nil
}

func (m *Mock) Config(key string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.config[key]
	if !ok {
		return nil, fmt.Errorf("config %q: %w", key, ErrUnsupported)
	}
	return v, nil
}

// MockAP is an in-memory AccessPoint that records every call.
type MockAP struct {
	mu          sync.Mutex
	active      bool
	config      map[string]any
	activations []bool
	configures  int
	configErr   error
}

// NewMockAP returns an inactive mock access point.
func NewMockAP() *MockAP {
	return &MockAP{config: make(map[string]any)}
}

// SetConfigError makes SetConfig fail.
func (a *MockAP) SetConfigError(err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configErr = err
}

// Activations returns every value passed to Activate, in order.
func (a *MockAP) Activations() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.activations...)
}

// ConfigureCount returns how many times SetConfig succeeded.
func (a *MockAP) ConfigureCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.configures
}

func (a *MockAP) Activate(active bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = active
	a.activations = append(a.activations, active)
	return nil
}

func (a *MockAP) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *MockAP) SetConfig(options map[string]any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.configErr != nil {
		return a.configErr
	}
	for k, v := range options {
		a.config[k] = v
	}
	a.configures++
	return nil
}

func (a *MockAP) Config(key string) (any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	v, ok := a.config[key]
	if !ok {
		return nil, fmt.Errorf("config %q: %w", key, ErrUnsupported)
	}
	return v, nil
}

// ScanFileEntry is one line of a mock scan file.
type ScanFileEntry struct {
	SSID     string `json:"ssid"`
	BSSID    string `json:"bssid"`
	Channel  int    `json:"channel"`
	RSSI     int    `json:"rssi"`
	Security string `json:"security"`
	Hidden   bool   `json:"hidden"`
	Password string `json:"password,omitempty"`
}

// LoadScanFile fills a Mock from a JSON array of ScanFileEntry.
func (m *Mock) LoadScanFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read scan file: %w", err)
	}

	var entries []ScanFileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse scan file: %w", err)
	}

	results := make([]RawScanResult, 0, len(entries))
	for i, e := range entries {
		bssid, err := net.ParseMAC(e.BSSID)
		if err != nil {
			return fmt.Errorf("entry %d: invalid bssid %q: %w", i, e.BSSID, err)
		}
		results = append(results, RawScanResult{
			SSID:     []byte(e.SSID),
			BSSID:    []byte(bssid),
			Channel:  e.Channel,
			RSSI:     e.RSSI,
			Security: ParseSecurity(e.Security),
			Hidden:   e.Hidden,
		})
		if e.Password != "" {
			m.SetPassword(e.SSID, e.Password)
		}
	}

	m.SetScanResults(results)
	return nil
}

// ParseSecurity maps a security name back to a Security value.
func ParseSecurity(s string) Security {
	for sec := SecurityOpen; sec <= SecurityEnterprise; sec++ {
		if sec.String() == s {
			return sec
		}
	}
	return SecurityOpen
}
