package wpa

import (
	"errors"
	"fmt"
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	service        = "fi.w1.wpa_supplicant1"
	rootPath       = dbus.ObjectPath("/fi/w1/wpa_supplicant1")
	ifaceInterface = "fi.w1.wpa_supplicant1.Interface"
	bssInterface   = "fi.w1.wpa_supplicant1.BSS"
	propsGetAll    = "org.freedesktop.DBus.Properties.GetAll"
)

// DefaultScanTimeout bounds the wait for the ScanDone signal.
const DefaultScanTimeout = 10 * time.Second

// ErrScanAborted is returned when wpa_supplicant reports an unsuccessful scan.
var ErrScanAborted = errors.New("scan reported failure")

// ErrSignalsClosed is returned when the bus connection goes away while
// waiting for a signal.
var ErrSignalsClosed = errors.New("d-bus signal channel closed")

// Supplicant is a connection to the wpa_supplicant root object.
type Supplicant struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Dial connects to wpa_supplicant on the system bus.
func Dial() (*Supplicant, error) {
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, fmt.Errorf("could not connect to system bus: %w", err)
	}
	return &Supplicant{
		conn: conn,
		obj:  conn.Object(service, rootPath),
	}, nil
}

// Close releases the bus connection.
func (s *Supplicant) Close() error {
	return s.conn.Close()
}

// Interface returns the supplicant interface bound to ifname, asking
// wpa_supplicant to create it when it is not managed yet.
func (s *Supplicant) Interface(ifname string) (*Interface, error) {
	var path dbus.ObjectPath

	err := s.obj.Call(service+".GetInterface", 0, ifname).Store(&path)
	if err != nil {
		args := map[string]any{"Ifname": ifname}
		if cerr := s.obj.Call(service+".CreateInterface", 0, args).Store(&path); cerr != nil {
			return nil, fmt.Errorf("could not get or create interface %s: %v / %w", ifname, err, cerr)
		}
	}

	return &Interface{
		conn: s.conn,
		obj:  s.conn.Object(service, path),
	}, nil
}

// Interface is one fi.w1.wpa_supplicant1.Interface object.
type Interface struct {
	conn *dbus.Conn
	obj  dbus.BusObject
}

// Path returns the D-Bus object path.
func (i *Interface) Path() dbus.ObjectPath {
	return i.obj.Path()
}

// Scan triggers an active scan and waits for ScanDone.
func (i *Interface) Scan(timeout time.Duration) error {
	opts := []dbus.MatchOption{
		dbus.WithMatchObjectPath(i.obj.Path()),
		dbus.WithMatchInterface(ifaceInterface),
		dbus.WithMatchMember("ScanDone"),
	}
	if err := i.conn.AddMatchSignal(opts...); err != nil {
		return fmt.Errorf("could not add ScanDone match: %w", err)
	}
	defer func() { _ = i.conn.RemoveMatchSignal(opts...) }()

	signals := make(chan *dbus.Signal, 8)
	i.conn.Signal(signals)
	defer i.conn.RemoveSignal(signals)

	call := i.obj.Call(ifaceInterface+".Scan", 0, map[string]any{"Type": "active"})
	if call.Err != nil {
		return fmt.Errorf("could not start scan: %w", call.Err)
	}

	return waitScanDone(signals, i.obj.Path(), timeout)
}

// waitScanDone reads signals until ScanDone arrives for path. A ScanDone
// without a success flag counts as a failed scan.
func waitScanDone(signals <-chan *dbus.Signal, path dbus.ObjectPath, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case sig, open := <-signals:
			if !open {
				return ErrSignalsClosed
			}
			if sig == nil || sig.Path != path || sig.Name != ifaceInterface+".ScanDone" {
				continue
			}
			if len(sig.Body) == 0 {
				return ErrScanAborted
			}
			if ok, _ := sig.Body[0].(bool); !ok {
				return ErrScanAborted
			}
			return nil
		case <-timer.C:
			return fmt.Errorf("scan did not finish within %s", timeout)
		}
	}
}

// BSSs returns the properties of every BSS currently known to the interface.
func (i *Interface) BSSs() ([]map[string]dbus.Variant, error) {
	v, err := i.obj.GetProperty(ifaceInterface + ".BSSs")
	if err != nil {
		return nil, fmt.Errorf("could not get BSSs: %w", err)
	}
	paths, ok := v.Value().([]dbus.ObjectPath)
	if !ok {
		return nil, fmt.Errorf("unexpected BSSs type %T", v.Value())
	}

	out := make([]map[string]dbus.Variant, 0, len(paths))
	for _, p := range paths {
		props, err := i.getAll(p, bssInterface)
		if err != nil {
			// BSS objects vanish when they expire between listing and reading.
			continue
		}
		out = append(out, props)
	}
	return out, nil
}

// CurrentBSS returns the properties of the BSS the interface is joined to.
func (i *Interface) CurrentBSS() (map[string]dbus.Variant, error) {
	v, err := i.obj.GetProperty(ifaceInterface + ".CurrentBSS")
	if err != nil {
		return nil, fmt.Errorf("could not get CurrentBSS: %w", err)
	}
	p, ok := v.Value().(dbus.ObjectPath)
	if !ok || p == "/" || p == "" {
		return nil, errors.New("not associated")
	}
	return i.getAll(p, bssInterface)
}

// State returns the supplicant state string, e.g. "completed".
func (i *Interface) State() (string, error) {
	v, err := i.obj.GetProperty(ifaceInterface + ".State")
	if err != nil {
		return "", fmt.Errorf("could not get State: %w", err)
	}
	s, _ := v.Value().(string)
	return s, nil
}

// DisconnectReason returns the last IEEE 802.11 reason code.
func (i *Interface) DisconnectReason() int32 {
	v, err := i.obj.GetProperty(ifaceInterface + ".DisconnectReason")
	if err != nil {
		return 0
	}
	r, _ := v.Value().(int32)
	return r
}

// SetProperty writes an Interface property.
func (i *Interface) SetProperty(name string, value any) error {
	if err := i.obj.SetProperty(ifaceInterface+"."+name, dbus.MakeVariant(value)); err != nil {
		return fmt.Errorf("could not set %s: %w", name, err)
	}
	return nil
}

// AddNetwork adds a network block and returns its object path.
func (i *Interface) AddNetwork(args map[string]any) (dbus.ObjectPath, error) {
	var path dbus.ObjectPath
	if err := i.obj.Call(ifaceInterface+".AddNetwork", 0, args).Store(&path); err != nil {
		return "", fmt.Errorf("could not add network: %w", err)
	}
	return path, nil
}

// SelectNetwork makes the supplicant join the given network.
func (i *Interface) SelectNetwork(path dbus.ObjectPath) error {
	if call := i.obj.Call(ifaceInterface+".SelectNetwork", 0, path); call.Err != nil {
		return fmt.Errorf("could not select network: %w", call.Err)
	}
	return nil
}

// RemoveAllNetworks drops every configured network block.
func (i *Interface) RemoveAllNetworks() error {
	if call := i.obj.Call(ifaceInterface+".RemoveAllNetworks", 0); call.Err != nil {
		return fmt.Errorf("could not remove networks: %w", call.Err)
	}
	return nil
}

// Disconnect leaves the current network.
func (i *Interface) Disconnect() error {
	if call := i.obj.Call(ifaceInterface+".Disconnect", 0); call.Err != nil {
		return fmt.Errorf("could not disconnect: %w", call.Err)
	}
	return nil
}

func (i *Interface) getAll(path dbus.ObjectPath, iface string) (map[string]dbus.Variant, error) {
	var props map[string]dbus.Variant
	obj := i.conn.Object(service, path)
	if err := obj.Call(propsGetAll, 0, iface).Store(&props); err != nil {
		return nil, fmt.Errorf("could not get properties of %s: %w", path, err)
	}
	return props, nil
}
