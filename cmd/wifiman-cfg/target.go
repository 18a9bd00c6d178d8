package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/config"
	"github.com/muurk/wifiman/internal/deviceconfig"
	"github.com/muurk/wifiman/internal/discovery"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/ui"
	"go.uber.org/zap"
)

// target is the device a command talks to.
type target struct {
	// Instance keys the device in the registry.
	Instance string
	Host     string
	Port     int

	// AuthNone is set when the device advertised that it needs no password.
	AuthNone bool
}

func (t *target) String() string {
	return t.Host + ":" + strconv.Itoa(t.Port)
}

// loadRegistry returns the operator registry. An unreadable registry is
// logged and replaced by an empty one.
func loadRegistry() *config.Registry {
	reg, err := config.LoadRegistry()
	if err != nil {
		logging.Warn("Ignoring unreadable device registry", zap.Error(err))
		return config.NewRegistry()
	}
	return reg
}

func saveRegistry(reg *config.Registry) {
	if err := reg.Save(); err != nil {
		logging.Warn("Failed to save device registry", zap.Error(err))
	}
}

func discoverTimeout(reg *config.Registry) time.Duration {
	if reg.Preferences != nil && reg.Preferences.DiscoverTimeout > 0 {
		return time.Duration(reg.Preferences.DiscoverTimeout) * time.Second
	}
	return discovery.DefaultScanTimeout
}

// resolveTarget turns --host and --port into a target. Registry entries
// match by instance or nickname; anything else is used as an address. With
// no --host, mDNS must find exactly one device.
func resolveTarget(cmd *cobra.Command, reg *config.Registry) (*target, error) {
	portSet := cmd.Flags().Changed("port")

	if deviceHost != "" {
		if instance, dev := reg.Resolve(deviceHost); dev != nil && dev.LastHost != "" {
			t := &target{Instance: instance, Host: dev.LastHost, Port: dev.LastPort}
			if portSet || t.Port == 0 {
				t.Port = devicePort
			}
			return t, nil
		}
		if looksLikeInstance(deviceHost) {
			t, err := waitForInstance(reg, deviceHost)
			if err == nil {
				if portSet {
					t.Port = devicePort
				}
				return t, nil
			}
			logging.Debug("Instance lookup failed, using --host as an address", zap.Error(err))
		}
		t := &target{Instance: deviceHost, Host: deviceHost, Port: devicePort}
		if !portSet && reg.Preferences != nil && reg.Preferences.DefaultPort > 0 {
			t.Port = reg.Preferences.DefaultPort
		}
		return t, nil
	}

	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout(reg)

	p := ui.NewPrinter(os.Stderr)
	var devices []*discovery.Device
	err := ui.Spin(p.Writer(), "No --host given, looking for devices", func() error {
		var err error
		devices, err = scanner.ScanForDevicesWithContext(context.Background(), nil)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return nil, errors.New("no devices found, use --host to name one")
	case 1:
	default:
		p.PrintTable(deviceHeaders, deviceRows(devices, reg), -1)
		return nil, fmt.Errorf("%d devices found, use --host to pick one", len(devices))
	}

	d := devices[0]
	reg.Seen(d.Instance, d.IP, d.Port)
	t := &target{Instance: d.Instance, Host: d.IP, Port: d.Port, AuthNone: !d.AuthRequired()}
	if portSet {
		t.Port = devicePort
	}
	return t, nil
}

// looksLikeInstance reports whether name could be a bare mDNS instance
// name rather than an address or DNS name.
func looksLikeInstance(name string) bool {
	return name != "localhost" && !strings.ContainsAny(name, ".:")
}

// waitForInstance browses mDNS for one named device and records it.
func waitForInstance(reg *config.Registry, instance string) (*target, error) {
	scanner := discovery.NewScanner()
	scanner.Timeout = discoverTimeout(reg)

	var d *discovery.Device
	err := ui.Spin(os.Stderr, "Looking for "+instance, func() error {
		var err error
		d, err = scanner.WaitForDevice(context.Background(), instance)
		return err
	})
	if err != nil {
		return nil, err
	}
	reg.Seen(d.Instance, d.IP, d.Port)
	return &target{Instance: d.Instance, Host: d.IP, Port: d.Port, AuthNone: !d.AuthRequired()}, nil
}

// resolvePassword returns --password, then $WIFIMAN_PASSWORD, then asks on
// the terminal. Devices that advertise auth=none need none.
func resolvePassword(t *target) (string, error) {
	if password != "" {
		return password, nil
	}
	if env := os.Getenv(passwordEnvVar); env != "" {
		return env, nil
	}
	if t.AuthNone || !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", nil
	}
	return auth.PromptPassword(fmt.Sprintf("Password for %s@%s: ", deviceconfig.Username, t))
}

// newClient resolves the target and password and returns a client for it.
func newClient(cmd *cobra.Command, reg *config.Registry) (*deviceconfig.Client, *target, error) {
	t, err := resolveTarget(cmd, reg)
	if err != nil {
		return nil, nil, err
	}
	pw, err := resolvePassword(t)
	if err != nil {
		return nil, nil, err
	}

	client := deviceconfig.NewClient(t.Host, t.Port)
	client.Password = pw
	return client, t, nil
}

// readFailureTitle names what went wrong fetching a document from t.
func readFailureTitle(t *target, err error) string {
	switch {
	case deviceconfig.IsAuthError(err):
		return t.String() + " rejected the password"
	case deviceconfig.IsNetworkError(err):
		return "Could not reach " + t.String()
	case deviceconfig.IsHTTPError(err):
		return t.String() + " refused the request"
	case deviceconfig.IsValidationError(err):
		return t.String() + " returned an unusable document"
	default:
		return "Could not read the document from " + t.String()
	}
}

// troubleshoot turns a client error's hint into result box bullets.
func troubleshoot(err error) []string {
	hint := deviceconfig.GetTroubleshootingHint(err)
	var tips []string
	for _, line := range strings.Split(hint, "\n") {
		if tip, ok := strings.CutPrefix(strings.TrimSpace(line), "• "); ok {
			tips = append(tips, tip)
		}
	}
	if len(tips) == 0 {
		tips = append(tips, hint)
	}
	return tips
}
