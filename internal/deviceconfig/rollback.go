package deviceconfig

import (
	"fmt"
	"sync"
	"time"

	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

// Snapshot is a document saved before a push.
type Snapshot struct {
	Document    []byte
	Timestamp   time.Time
	Description string
}

// RollbackManager keeps snapshots for one client.
type RollbackManager struct {
	client *Client

	snapshots    []*Snapshot
	maxSnapshots int
	mutex        sync.RWMutex
}

// NewRollbackManager creates a new rollback manager for a client
func NewRollbackManager(client *Client) *RollbackManager {
	return &RollbackManager{
		client:       client,
		snapshots:    make([]*Snapshot, 0, 10),
		maxSnapshots: 10,
	}
}

// SaveSnapshot fetches the current document and keeps it.
func (rm *RollbackManager) SaveSnapshot(description string) error {
	doc, err := rm.client.GetDocument()
	if err != nil {
		return fmt.Errorf("failed to fetch document for snapshot: %w", err)
	}

	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	rm.snapshots = append(rm.snapshots, &Snapshot{
		Document:    doc,
		Timestamp:   time.Now(),
		Description: description,
	})
	if len(rm.snapshots) > rm.maxSnapshots {
		rm.snapshots = rm.snapshots[1:]
	}
	return nil
}

// GetLatestSnapshot returns the most recent snapshot, or nil if no snapshots exist
func (rm *RollbackManager) GetLatestSnapshot() *Snapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	if len(rm.snapshots) == 0 {
		return nil
	}
	return rm.snapshots[len(rm.snapshots)-1]
}

// GetSnapshots returns all snapshots in chronological order (oldest first)
func (rm *RollbackManager) GetSnapshots() []*Snapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	result := make([]*Snapshot, len(rm.snapshots))
	copy(result, rm.snapshots)
	return result
}

// RollbackToSnapshot pushes a saved document back and verifies it.
func (rm *RollbackManager) RollbackToSnapshot(snapshot *Snapshot, opts *VerificationOptions) *VerificationResult {
	if snapshot == nil {
		return &VerificationResult{Error: fmt.Errorf("snapshot is nil")}
	}
	logging.Info("Rolling back device document",
		zap.String("snapshot", snapshot.Description),
		zap.Time("taken", snapshot.Timestamp),
	)
	return rm.client.PushAndVerify(snapshot.Document, opts)
}

// SafePush snapshots the current document, pushes doc, verifies it and
// rolls back when verification fails.
func (rm *RollbackManager) SafePush(doc []byte, opts *VerificationOptions, description string) *SafePushResult {
	result := &SafePushResult{Description: description}

	if err := rm.SaveSnapshot(description); err != nil {
		result.Error = fmt.Errorf("failed to save pre-push snapshot: %w", err)
		return result
	}

	push := rm.client.PushAndVerify(doc, opts)
	result.PushResult = push
	if push.Success {
		result.Success = true
		return result
	}

	result.RollbackAttempted = true
	rollback := rm.RollbackToSnapshot(rm.GetLatestSnapshot(), opts)
	result.RollbackResult = rollback

	if rollback.Success {
		result.RollbackSucceeded = true
		result.Error = fmt.Errorf("push failed (%w), previous document restored", push.Error)
	} else {
		result.Error = fmt.Errorf("push failed (%w) AND rollback failed: %w", push.Error, rollback.Error)
	}
	return result
}

// SafePushResult contains the results of a safe push
type SafePushResult struct {
	Success     bool
	Description string

	PushResult *VerificationResult

	RollbackAttempted bool
	RollbackSucceeded bool
	RollbackResult    *VerificationResult

	Error error
}

// String returns a human-readable summary of the safe push result
func (r *SafePushResult) String() string {
	if r.Success {
		return fmt.Sprintf("✅ Push succeeded: %s (verified in %d attempt(s))",
			r.Description, r.PushResult.Attempts)
	}

	if r.RollbackAttempted {
		if r.RollbackSucceeded {
			return fmt.Sprintf("⚠️  Push failed but the previous document was restored: %s\nPush error: %v",
				r.Description, r.PushResult.Error)
		}
		return fmt.Sprintf("❌ Push failed and rollback failed: %s\nPush error: %v\nRollback error: %v",
			r.Description, r.PushResult.Error, r.RollbackResult.Error)
	}

	return fmt.Sprintf("❌ Push failed: %s\nError: %v", r.Description, r.Error)
}
