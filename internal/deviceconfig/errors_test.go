package deviceconfig

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
	"testing"
)

func TestErrorPredicates(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		network    bool
		auth       bool
		http       bool
		validation bool
		retryable  bool
	}{
		{"auth", NewAuthError("nope"), false, true, false, false, false},
		{"validation", NewValidationError("bad"), false, false, false, true, false},
		{"http 404", NewHTTPError(404, "missing"), false, false, true, false, false},
		{"http 503", NewHTTPError(503, "busy"), false, false, true, false, true},
		{"network", NewNetworkError("down", errors.New("boom")), true, false, false, false, true},
		{"wrapped auth", fmt.Errorf("get: %w", NewAuthError("nope")), false, true, false, false, false},
		{"plain error", errors.New("plain"), false, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNetworkError(tt.err); got != tt.network {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.network)
			}
			if got := IsAuthError(tt.err); got != tt.auth {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.auth)
			}
			if got := IsHTTPError(tt.err); got != tt.http {
				t.Errorf("IsHTTPError() = %v, want %v", got, tt.http)
			}
			if got := IsValidationError(tt.err); got != tt.validation {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.validation)
			}
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestClassifyNetworkError(t *testing.T) {
	refused := &net.OpError{Op: "dial", Net: "tcp", Err: os.NewSyscallError("connect", syscall.ECONNREFUSED)}

	tests := []struct {
		name    string
		err     error
		want    ErrorType
		subtype NetworkErrorSubtype
	}{
		{"refused", refused, ErrTypeConnectionRefused, NetworkErrorConnectionRefused},
		{"refused inside url error", &url.Error{Op: "Get", URL: "http://pi:8080/config", Err: refused}, ErrTypeConnectionRefused, NetworkErrorConnectionRefused},
		{"dns", &net.DNSError{Err: "no such host", Name: "wifiman.local"}, ErrTypeDNS, NetworkErrorDNS},
		{"host unreachable", &net.OpError{Op: "dial", Err: syscall.EHOSTUNREACH}, ErrTypeNetwork, NetworkErrorHostUnreachable},
		{"timeout", os.ErrDeadlineExceeded, ErrTypeTimeout, NetworkErrorTimeout},
		{"other", errors.New("reset"), ErrTypeNetwork, NetworkErrorGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := ClassifyNetworkError(tt.err, "pi:8080")
			if ce.Type != tt.want {
				t.Errorf("Type = %v, want %v", ce.Type, tt.want)
			}
			if ce.NetworkSubtype != tt.subtype {
				t.Errorf("NetworkSubtype = %v, want %v", ce.NetworkSubtype, tt.subtype)
			}
			if ce.Host != "pi:8080" {
				t.Errorf("Host = %q, want pi:8080", ce.Host)
			}
			if !errors.Is(ce, tt.err) {
				t.Error("classified error should wrap the original")
			}
		})
	}

	if ClassifyNetworkError(nil, "") != nil {
		t.Error("ClassifyNetworkError(nil) should be nil")
	}
}

func TestShortMessagesAndHints(t *testing.T) {
	tests := []struct {
		err       error
		short     string
		hintWords string
	}{
		{NewAuthError("x"), "Authentication failed - check password", "admin"},
		{&ClientError{Type: ErrTypeConnectionRefused}, "Device refused connection - is the config server enabled?", "config_server.enabled"},
		{NewHTTPError(413, "x"), "Device error (HTTP 413)", "max_body"},
		{&ClientError{Type: ErrTypeDNS}, "Cannot resolve device hostname", "wifiman-cfg discover"},
	}

	for _, tt := range tests {
		if got := GetShortErrorMessage(tt.err); got != tt.short {
			t.Errorf("GetShortErrorMessage(%v) = %q, want %q", tt.err, got, tt.short)
		}
		if hint := GetTroubleshootingHint(tt.err); !strings.Contains(hint, tt.hintWords) {
			t.Errorf("GetTroubleshootingHint(%v) = %q, want it to mention %q", tt.err, hint, tt.hintWords)
		}
	}

	if got := GetShortErrorMessage(errors.New("plain")); got != "plain" {
		t.Errorf("GetShortErrorMessage(plain) = %q", got)
	}
}

func TestClientErrorString(t *testing.T) {
	err := NewHTTPError(500, "unexpected status 500")
	if got := err.Error(); got != "HTTP Error: unexpected status 500" {
		t.Errorf("Error() = %q", got)
	}

	wrapped := NewNetworkError("read failed", errors.New("eof"))
	if !strings.Contains(wrapped.Error(), "caused by: eof") {
		t.Errorf("Error() = %q, want cause", wrapped.Error())
	}
}
