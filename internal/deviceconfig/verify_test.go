package deviceconfig

import (
	"bytes"
	"reflect"
	"testing"
)

func fastVerify() *VerificationOptions {
	return &VerificationOptions{MaxRetries: 2}
}

func TestCompareDocuments(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     []string
	}{
		{"identical", deviceDoc, deviceDoc, nil},
		{"reordered keys", `{"a": 1, "b": [1, 2]}`, `{"b":[1,2],"a":1}`, nil},
		{"changed section", `{"a": 1, "b": 2}`, `{"a": 1, "b": 3}`, []string{"b"}},
		{"missing and extra", `{"a": 1}`, `{"c": 1}`, []string{"a (missing on device)", "c (unexpected on device)"}},
		{"not json", `{"a": 1}`, `garbage`, []string{"document"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := compareDocuments([]byte(tt.expected), []byte(tt.actual))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("compareDocuments() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPushAndVerify(t *testing.T) {
	_, client := newFakeDevice(t)

	update := []byte(`{"known_networks": [{"ssid": "Cabin", "password": "pine-needles"}], "access_point": {"start_policy": "always"}}`)
	result := client.PushAndVerify(update, fastVerify())

	if !result.Success {
		t.Fatalf("PushAndVerify() failed: %v", result.Error)
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1", result.Attempts)
	}
	if !bytes.Equal(result.Actual, update) {
		t.Errorf("Actual = %s, want %s", result.Actual, update)
	}
}

func TestVerifyDocumentMismatch(t *testing.T) {
	_, client := newFakeDevice(t)

	result := client.VerifyDocument([]byte(`{"known_networks": [], "access_point": {}}`), fastVerify())

	if result.Success {
		t.Fatal("VerifyDocument() succeeded against a different document")
	}
	if result.Attempts != 2 {
		t.Errorf("Attempts = %d, want 2", result.Attempts)
	}
	if !IsValidationError(result.Error) {
		t.Errorf("Error = %v, want validation error", result.Error)
	}
	want := []string{"access_point", "config_server (unexpected on device)", "known_networks", "schema_version (unexpected on device)"}
	if !reflect.DeepEqual(result.Mismatches, want) {
		t.Errorf("Mismatches = %v, want %v", result.Mismatches, want)
	}
}

func TestVerifyDocumentAuthFailureStops(t *testing.T) {
	_, client := newFakeDevice(t)
	client.Password = "wrong"

	result := client.VerifyDocument([]byte(deviceDoc), &VerificationOptions{MaxRetries: 5})
	if result.Success {
		t.Fatal("VerifyDocument() succeeded with a bad password")
	}
	if result.Attempts != 1 {
		t.Errorf("Attempts = %d, want 1 (auth errors are not retried)", result.Attempts)
	}
	if !IsAuthError(result.Error) {
		t.Errorf("Error = %v, want auth error", result.Error)
	}
}

func TestPushAndVerifyRejectedPush(t *testing.T) {
	_, client := newFakeDevice(t)

	result := client.PushAndVerify([]byte(`{}`), fastVerify())
	if result.Success || result.Attempts != 0 {
		t.Errorf("result = %+v, want failure before verification", result)
	}
	if !IsValidationError(result.Error) {
		t.Errorf("Error = %v, want validation error", result.Error)
	}
}
