package deviceconfig

import (
	"bytes"
	"strings"
	"testing"
)

var cabinDoc = []byte(`{"known_networks": [{"ssid": "Cabin", "password": "pine-needles"}], "access_point": {"start_policy": "always"}}`)

func TestSafePushSuccess(t *testing.T) {
	dev, client := newFakeDevice(t)
	rm := NewRollbackManager(client)

	result := rm.SafePush(cabinDoc, fastVerify(), "add cabin")
	if !result.Success {
		t.Fatalf("SafePush() failed: %v", result.Error)
	}
	if result.RollbackAttempted {
		t.Error("RollbackAttempted = true on success")
	}
	if dev.stored() != string(cabinDoc) {
		t.Errorf("stored = %s", dev.stored())
	}

	snap := rm.GetLatestSnapshot()
	if snap == nil || string(snap.Document) != deviceDoc {
		t.Errorf("snapshot = %+v, want the pre-push document", snap)
	}
	if !strings.Contains(result.String(), "Push succeeded: add cabin") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestSafePushRollsBack(t *testing.T) {
	dev, client := newFakeDevice(t)
	dev.rewrite(func(b []byte) []byte {
		return bytes.ReplaceAll(b, []byte("Cabin"), []byte("Cabbage"))
	})
	rm := NewRollbackManager(client)

	result := rm.SafePush(cabinDoc, fastVerify(), "add cabin")
	if result.Success {
		t.Fatal("SafePush() succeeded although the device mangled the document")
	}
	if !result.RollbackAttempted || !result.RollbackSucceeded {
		t.Fatalf("rollback attempted=%v succeeded=%v: %v", result.RollbackAttempted, result.RollbackSucceeded, result.Error)
	}
	if dev.stored() != deviceDoc {
		t.Errorf("stored = %s, want the original document", dev.stored())
	}
	if !strings.Contains(result.String(), "previous document was restored") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestSafePushSnapshotFailure(t *testing.T) {
	_, client := newFakeDevice(t)
	client.Password = "wrong"
	rm := NewRollbackManager(client)

	result := rm.SafePush(cabinDoc, fastVerify(), "add cabin")
	if result.Success || result.RollbackAttempted {
		t.Errorf("result = %+v, want failure without rollback", result)
	}
	if !IsAuthError(result.Error) {
		t.Errorf("Error = %v, want auth error", result.Error)
	}
	if !strings.Contains(result.String(), "Push failed: add cabin") {
		t.Errorf("String() = %q", result.String())
	}
}

func TestSnapshotsAreBounded(t *testing.T) {
	_, client := newFakeDevice(t)
	rm := NewRollbackManager(client)

	for i := 0; i < 12; i++ {
		if err := rm.SaveSnapshot("snap"); err != nil {
			t.Fatalf("SaveSnapshot() error = %v", err)
		}
	}
	if got := len(rm.GetSnapshots()); got != 10 {
		t.Errorf("snapshots = %d, want 10", got)
	}
}

func TestRollbackToNilSnapshot(t *testing.T) {
	_, client := newFakeDevice(t)
	rm := NewRollbackManager(client)

	if result := rm.RollbackToSnapshot(nil, fastVerify()); result.Error == nil {
		t.Error("RollbackToSnapshot(nil) should fail")
	}
}
