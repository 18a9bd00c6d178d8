package networks

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

const (
	// SchemaVersion is the document schema this build writes and expects.
	SchemaVersion = 2

	// DefaultPath is where the document lives on the device.
	DefaultPath = "/networks.json"

	// SafeDefaultEssid names the access point of the fallback document.
	SafeDefaultEssid = "wifiman-setup"
)

// Section names that must be present for a document to be usable.
const (
	SectionKnownNetworks = "known_networks"
	SectionAccessPoint   = "access_point"
)

// ErrMissingSection is returned when a required top-level section is absent.
var ErrMissingSection = errors.New("missing required section")

// KnownNetwork is one entry of the preference list. Position in the list is
// its priority.
type KnownNetwork struct {
	SSID             string `json:"ssid"`
	Password         string `json:"password"`
	EnablesCompanion bool   `json:"enables_companion_service"`
}

// UnmarshalJSON accepts the legacy enables_webrepl key.
func (k *KnownNetwork) UnmarshalJSON(data []byte) error {
	var w struct {
		SSID      *string `json:"ssid"`
		Password  string  `json:"password"`
		Companion *bool   `json:"enables_companion_service"`
		Legacy    *bool   `json:"enables_webrepl"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.SSID == nil {
		return errors.New("known network without ssid")
	}

	k.SSID = *w.SSID
	k.Password = w.Password
	k.EnablesCompanion = firstBool(w.Companion, w.Legacy)
	return nil
}

// AccessPointConfig is passed to the AP driver as is. Only the essid is
// interpreted here.
type AccessPointConfig map[string]any

// Essid returns the configured network name, or "" when absent.
func (c AccessPointConfig) Essid() string {
	for _, key := range []string{"essid", "ssid"} {
		if v, ok := c[key].(string); ok {
			return v
		}
	}
	return ""
}

// Equal reports whether two configs carry the same options.
func (c AccessPointConfig) Equal(other AccessPointConfig) bool {
	if len(c) != len(other) {
		return false
	}
	a, errA := json.Marshal(c)
	b, errB := json.Marshal(other)
	return errA == nil && errB == nil && bytes.Equal(a, b)
}

// Keys returns the option names in sorted order.
func (c AccessPointConfig) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a shallow copy.
func (c AccessPointConfig) Clone() AccessPointConfig {
	if c == nil {
		return nil
	}
	out := make(AccessPointConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// AccessPoint is the access_point section.
type AccessPoint struct {
	Config           AccessPointConfig `json:"config"`
	EnablesCompanion bool              `json:"enables_companion_service"`
	StartPolicy      Policy            `json:"start_policy"`
}

// UnmarshalJSON accepts the legacy enables_webrepl key.
func (a *AccessPoint) UnmarshalJSON(data []byte) error {
	var w struct {
		Config      AccessPointConfig `json:"config"`
		Companion   *bool             `json:"enables_companion_service"`
		Legacy      *bool             `json:"enables_webrepl"`
		StartPolicy Policy            `json:"start_policy"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	a.Config = w.Config
	a.EnablesCompanion = firstBool(w.Companion, w.Legacy)
	a.StartPolicy = w.StartPolicy
	return nil
}

// ConfigServer is the optional config_server section.
type ConfigServer struct {
	Enabled  bool   `json:"enabled"`
	Password string `json:"password,omitempty"`
	// AllowUnauthenticated must be set to run the server without a password.
	AllowUnauthenticated bool `json:"allow_unauthenticated,omitempty"`
}

// Document is the whole persisted configuration.
type Document struct {
	SchemaVersion int            `json:"schema_version"`
	KnownNetworks []KnownNetwork `json:"known_networks"`
	AccessPoint   AccessPoint    `json:"access_point"`
	ConfigServer  *ConfigServer  `json:"config_server,omitempty"`
}

type wireDocument struct {
	SchemaVersion *int            `json:"schema_version"`
	Schema        *int            `json:"schema"`
	KnownNetworks *[]KnownNetwork `json:"known_networks"`
	AccessPoint   *AccessPoint    `json:"access_point"`
	ConfigServer  *ConfigServer   `json:"config_server"`
}

// Parse decodes a document. Both known_networks and access_point must be
// present; a schema version other than SchemaVersion is only logged.
func Parse(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("failed to decode document: %w", err)
	}

	if w.KnownNetworks == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, SectionKnownNetworks)
	}
	if w.AccessPoint == nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingSection, SectionAccessPoint)
	}

	doc := &Document{
		KnownNetworks: *w.KnownNetworks,
		AccessPoint:   *w.AccessPoint,
		ConfigServer:  w.ConfigServer,
	}

	switch {
	case w.SchemaVersion != nil:
		doc.SchemaVersion = *w.SchemaVersion
	case w.Schema != nil:
		doc.SchemaVersion = *w.Schema
	}
	if doc.SchemaVersion != SchemaVersion {
		logging.Warn("Unexpected schema version in network config",
			zap.Int("schema_version", doc.SchemaVersion),
			zap.Int("expected", SchemaVersion),
		)
	}

	return doc, nil
}

// CheckSections verifies that body is a JSON object containing both required
// sections. Nothing below the top level is inspected.
func CheckSections(body []byte) error {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	for _, name := range []string{SectionKnownNetworks, SectionAccessPoint} {
		if _, ok := top[name]; !ok {
			return fmt.Errorf("%w: %s", ErrMissingSection, name)
		}
	}
	return nil
}

// Encode renders a document as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// SafeDefault is what a setup cycle falls back to when the document cannot
// be loaded: nothing to join and no access point.
func SafeDefault() *Document {
	return &Document{
		SchemaVersion: SchemaVersion,
		KnownNetworks: []KnownNetwork{},
		AccessPoint: AccessPoint{
			Config:      AccessPointConfig{"essid": SafeDefaultEssid},
			StartPolicy: PolicyNever,
		},
	}
}

// CompanionWanted reports whether the AP section asks for the companion
// service.
func (d *Document) CompanionWanted() bool {
	return d.AccessPoint.EnablesCompanion
}

// ServerEnabled reports whether the document asks for the config server.
func (d *Document) ServerEnabled() bool {
	return d.ConfigServer != nil && d.ConfigServer.Enabled
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}
