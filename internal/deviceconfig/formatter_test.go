package deviceconfig

import (
	"strings"
	"testing"

	"github.com/muurk/wifiman/internal/auth"
	"github.com/muurk/wifiman/internal/networks"
)

func TestFormatDocumentMasksSecrets(t *testing.T) {
	doc, err := networks.Parse([]byte(`{"schema_version": 2, "known_networks": [{"ssid": "Home", "password": "hunter2hunter2", "enables_companion_service": true}], "access_point": {"config": {"essid": "pi", "password": "ap-secret-1", "channel": 6}, "start_policy": "fallback"}, "config_server": {"enabled": true, "password": "s3cret"}}`))
	if err != nil {
		t.Fatal(err)
	}

	out := FormatDocument(doc)
	for _, secret := range []string{"hunter2hunter2", "ap-secret-1", "s3cret"} {
		if strings.Contains(out, secret) {
			t.Errorf("FormatDocument() leaks %q:\n%s", secret, out)
		}
	}
	for _, want := range []string{" 1. Home", "[companion]", "ESSID:        pi", "Start policy: fallback", "channel:", "Enabled:  true"} {
		if !strings.Contains(out, want) {
			t.Errorf("FormatDocument() missing %q:\n%s", want, out)
		}
	}
}

func TestMaskSecret(t *testing.T) {
	hash, err := auth.HashPassword("pw")
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		in   string
		want string
	}{
		{"", "(none)"},
		{"hunter2", "********"},
		{hash, "(argon2id hash)"},
	}
	for _, tt := range tests {
		if got := MaskSecret(tt.in); got != tt.want {
			t.Errorf("MaskSecret(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	got := Summary(networks.SafeDefault())
	want := `0 known network(s), AP "wifiman-setup" (never)`
	if got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestFormatConfigServerAbsent(t *testing.T) {
	out := FormatConfigServer(networks.SafeDefault())
	if !strings.Contains(out, "section absent") {
		t.Errorf("FormatConfigServer() = %q", out)
	}
}
