package deviceconfig

import (
	"strings"
	"testing"

	"github.com/muurk/wifiman/internal/networks"
)

func ssids(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := networks.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	var out []string
	for _, n := range doc.KnownNetworks {
		out = append(out, n.SSID)
	}
	return out
}

func TestBuilderStartsFromSafeDefault(t *testing.T) {
	b := NewDocumentBuilder(nil)
	if b.HasChanges() {
		t.Error("HasChanges() = true for an untouched builder")
	}

	data, _, err := b.SetServerPassword("s3cret").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc, err := networks.Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.AccessPoint.Config.Essid() != networks.SafeDefaultEssid {
		t.Errorf("essid = %q, want %q", doc.AccessPoint.Config.Essid(), networks.SafeDefaultEssid)
	}
	if doc.SchemaVersion != networks.SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", doc.SchemaVersion, networks.SchemaVersion)
	}
}

func TestBuilderAddNetworkUpserts(t *testing.T) {
	data, _, err := NewDocumentBuilder([]byte(deviceDoc)).
		AddNetwork("Cabin", "pine-needles", true).
		AddNetwork("HomeNetwork", "new-passphrase", false).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	got := strings.Join(ssids(t, data), ",")
	if got != "HomeNetwork,Cabin" {
		t.Errorf("networks = %s, want HomeNetwork,Cabin", got)
	}
	doc, _ := networks.Parse(data)
	if doc.KnownNetworks[0].Password != "new-passphrase" {
		t.Errorf("password = %q, want updated in place", doc.KnownNetworks[0].Password)
	}
	if !doc.KnownNetworks[1].EnablesCompanion {
		t.Error("Cabin should enable the companion service")
	}
}

func TestBuilderMoveNetwork(t *testing.T) {
	tests := []struct {
		name string
		ssid string
		pos  int
		want string
	}{
		{"to front", "C", 0, "C,A,B"},
		{"to back", "A", 2, "B,C,A"},
		{"middle", "A", 1, "B,A,C"},
		{"in place", "B", 1, "A,B,C"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _, err := NewDocumentBuilder(nil).
				AddNetwork("A", "passphrase-a", false).
				AddNetwork("B", "passphrase-b", false).
				AddNetwork("C", "passphrase-c", false).
				MoveNetwork(tt.ssid, tt.pos).
				SetServerPassword("s3cret").
				Build()
			if err != nil {
				t.Fatalf("Build() error = %v", err)
			}
			if got := strings.Join(ssids(t, data), ","); got != tt.want {
				t.Errorf("order = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestBuilderErrorsSurfaceInBuild(t *testing.T) {
	tests := []struct {
		name  string
		build func(*DocumentBuilder) *DocumentBuilder
	}{
		{"remove unknown", func(b *DocumentBuilder) *DocumentBuilder { return b.RemoveNetwork("Nope") }},
		{"move unknown", func(b *DocumentBuilder) *DocumentBuilder { return b.MoveNetwork("Nope", 0) }},
		{"move out of range", func(b *DocumentBuilder) *DocumentBuilder { return b.MoveNetwork("HomeNetwork", 5) }},
		{"short passphrase", func(b *DocumentBuilder) *DocumentBuilder { return b.AddNetwork("Cabin", "short", false) }},
		{"empty ssid", func(b *DocumentBuilder) *DocumentBuilder { return b.AddNetwork("", "", false) }},
		{"no server password", func(b *DocumentBuilder) *DocumentBuilder { return b.SetServerPassword("") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, _, err := tt.build(NewDocumentBuilder([]byte(deviceDoc))).Build()
			if !IsValidationError(err) {
				t.Errorf("Build() error = %v, want validation error", err)
			}
			if data != nil {
				t.Error("Build() returned data alongside an error")
			}
		})
	}
}

func TestBuilderInvalidCurrent(t *testing.T) {
	_, _, err := NewDocumentBuilder([]byte(`{"known_networks": []}`)).Build()
	if !IsValidationError(err) {
		t.Errorf("Build() error = %v, want validation error", err)
	}
}

func TestBuilderRemoveNetwork(t *testing.T) {
	data, _, err := NewDocumentBuilder([]byte(deviceDoc)).
		RemoveNetwork("HomeNetwork").
		SetStartPolicy(networks.PolicyAlways).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if got := ssids(t, data); len(got) != 0 {
		t.Errorf("networks = %v, want none", got)
	}
}

func TestBuilderSetAccessPoint(t *testing.T) {
	data, _, err := NewDocumentBuilder([]byte(deviceDoc)).
		SetAccessPoint("garage-pi", "ap-passphrase").
		SetAccessPointCompanion(true).
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	doc, _ := networks.Parse(data)
	if doc.AccessPoint.Config.Essid() != "garage-pi" {
		t.Errorf("essid = %q, want garage-pi", doc.AccessPoint.Config.Essid())
	}
	if doc.AccessPoint.Config["password"] != "ap-passphrase" {
		t.Errorf("password = %v, want ap-passphrase", doc.AccessPoint.Config["password"])
	}
	if !doc.CompanionWanted() {
		t.Error("CompanionWanted() = false, want true")
	}

	data, _, err = NewDocumentBuilder(data).SetAccessPoint("garage-pi", "").Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc, _ = networks.Parse(data)
	if _, ok := doc.AccessPoint.Config["password"]; ok {
		t.Error("empty password should leave the AP open")
	}
}

func TestBuilderWarnings(t *testing.T) {
	data, warnings, err := NewDocumentBuilder([]byte(deviceDoc)).DisableServer().Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if data == nil {
		t.Fatal("Build() returned no data")
	}
	if len(warnings) == 0 {
		t.Fatal("disabling the server should warn")
	}
	for _, w := range warnings {
		if !IsWarning(w) {
			t.Errorf("%v is not a warning", w)
		}
	}
}
