package deviceconfig

import (
	"fmt"

	"github.com/muurk/wifiman/internal/networks"
)

// DocumentBuilder edits a network document with a fluent API and
// validates the result in Build.
//
//	data, warnings, err := NewDocumentBuilder(current).
//	    AddNetwork("Cabin", "pine-needles", false).
//	    MoveNetwork("Cabin", 0).
//	    SetStartPolicy(networks.PolicyFallback).
//	    Build()
type DocumentBuilder struct {
	doc     *networks.Document
	err     error
	changed bool
}

// NewDocumentBuilder starts from the document bytes in current. Nil starts
// from the safe default document.
func NewDocumentBuilder(current []byte) *DocumentBuilder {
	b := &DocumentBuilder{}
	if current == nil {
		b.doc = networks.SafeDefault()
		return b
	}
	doc, err := networks.Parse(current)
	if err != nil {
		b.err = NewValidationError(fmt.Sprintf("current document: %v", err))
		b.doc = networks.SafeDefault()
		return b
	}
	b.doc = doc
	return b
}

func (b *DocumentBuilder) index(ssid string) int {
	for i, n := range b.doc.KnownNetworks {
		if n.SSID == ssid {
			return i
		}
	}
	return -1
}

// AddNetwork appends a network, or updates its credentials in place when
// the SSID is already known.
func (b *DocumentBuilder) AddNetwork(ssid, password string, companion bool) *DocumentBuilder {
	b.changed = true
	entry := networks.KnownNetwork{SSID: ssid, Password: password, EnablesCompanion: companion}
	if i := b.index(ssid); i >= 0 {
		b.doc.KnownNetworks[i] = entry
		return b
	}
	b.doc.KnownNetworks = append(b.doc.KnownNetworks, entry)
	return b
}

// RemoveNetwork drops ssid from the list.
func (b *DocumentBuilder) RemoveNetwork(ssid string) *DocumentBuilder {
	i := b.index(ssid)
	if i < 0 {
		b.setErr(fmt.Sprintf("network %q is not in the document", ssid))
		return b
	}
	b.changed = true
	b.doc.KnownNetworks = append(b.doc.KnownNetworks[:i], b.doc.KnownNetworks[i+1:]...)
	return b
}

// MoveNetwork moves ssid to position pos (0 is most preferred).
func (b *DocumentBuilder) MoveNetwork(ssid string, pos int) *DocumentBuilder {
	i := b.index(ssid)
	if i < 0 {
		b.setErr(fmt.Sprintf("network %q is not in the document", ssid))
		return b
	}
	if pos < 0 || pos >= len(b.doc.KnownNetworks) {
		b.setErr(fmt.Sprintf("position %d out of range", pos))
		return b
	}
	b.changed = true
	entry := b.doc.KnownNetworks[i]
	list := append(b.doc.KnownNetworks[:i:i], b.doc.KnownNetworks[i+1:]...)
	list = append(list[:pos], append([]networks.KnownNetwork{entry}, list[pos:]...)...)
	b.doc.KnownNetworks = list
	return b
}

// SetAccessPoint sets the AP essid and passphrase. An empty password
// leaves the AP open.
func (b *DocumentBuilder) SetAccessPoint(essid, password string) *DocumentBuilder {
	b.changed = true
	cfg := b.doc.AccessPoint.Config.Clone()
	if cfg == nil {
		cfg = networks.AccessPointConfig{}
	}
	delete(cfg, "ssid")
	cfg["essid"] = essid
	if password == "" {
		delete(cfg, "password")
	} else {
		cfg["password"] = password
	}
	b.doc.AccessPoint.Config = cfg
	return b
}

// SetStartPolicy sets access_point.start_policy.
func (b *DocumentBuilder) SetStartPolicy(p networks.Policy) *DocumentBuilder {
	b.changed = true
	b.doc.AccessPoint.StartPolicy = p
	return b
}

// SetAccessPointCompanion sets access_point.enables_companion_service.
func (b *DocumentBuilder) SetAccessPointCompanion(enabled bool) *DocumentBuilder {
	b.changed = true
	b.doc.AccessPoint.EnablesCompanion = enabled
	return b
}

// SetServerPassword enables the config server with password, which may be
// an argon2id hash.
func (b *DocumentBuilder) SetServerPassword(password string) *DocumentBuilder {
	b.changed = true
	b.doc.ConfigServer = &networks.ConfigServer{Enabled: true, Password: password}
	return b
}

// DisableServer turns the config server off.
func (b *DocumentBuilder) DisableServer() *DocumentBuilder {
	b.changed = true
	if b.doc.ConfigServer == nil {
		b.doc.ConfigServer = &networks.ConfigServer{}
	}
	b.doc.ConfigServer.Enabled = false
	return b
}

// HasChanges returns true if any edit was applied.
func (b *DocumentBuilder) HasChanges() bool {
	return b.changed
}

// Document returns the working copy. Callers must not modify it.
func (b *DocumentBuilder) Document() *networks.Document {
	return b.doc
}

func (b *DocumentBuilder) setErr(msg string) {
	if b.err == nil {
		b.err = NewValidationError(msg)
	}
}

// Build encodes the document and validates it. Warnings are returned with
// the data; critical problems return an error.
func (b *DocumentBuilder) Build() ([]byte, []error, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	b.doc.SchemaVersion = networks.SchemaVersion

	data, err := networks.Encode(b.doc)
	if err != nil {
		return nil, nil, err
	}

	_, problems := ValidateDocument(data)
	warnings, critical := SeparateWarningsAndErrors(problems)
	if len(critical) > 0 {
		return nil, warnings, NewValidationError(FormatValidationErrors(critical))
	}
	return data, warnings, nil
}
