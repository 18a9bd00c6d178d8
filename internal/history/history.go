// Package history keeps a bounded journal of dispatched events in a bbolt
// file so operators can see what the daemon did while nobody was watching.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/logging"
	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const (
	// DefaultLimit is the number of events kept when no limit is given.
	DefaultLimit = 500

	eventsBucket = "events"
)

// Journal is an events.Observer backed by bbolt.
type Journal struct {
	db    *bolt.DB
	limit int
}

// Open opens or creates the journal at path. limit <= 0 uses DefaultLimit.
func Open(path string, limit int) (*Journal, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database %s: %w", path, err)
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(eventsBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history bucket: %w", err)
	}

	logging.Debug("History journal opened", zap.String("path", path), zap.Int("limit", limit))
	return &Journal{db: db, limit: limit}, nil
}

// Close releases the database file.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Notify appends ev and drops the oldest entries beyond the limit.
func (j *Journal) Notify(ev events.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return j.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(eventsBucket))

		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		if err := bucket.Put(itob(seq), payload); err != nil {
			return err
		}

		if seq <= uint64(j.limit) {
			return nil
		}
		oldest := seq - uint64(j.limit)
		c := bucket.Cursor()
		for k, _ := c.First(); k != nil && binary.BigEndian.Uint64(k) <= oldest; k, _ = c.First() {
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// Recent returns up to n events, newest first. n <= 0 returns all.
func (j *Journal) Recent(n int) ([]events.Event, error) {
	var out []events.Event

	err := j.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(eventsBucket)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if n > 0 && len(out) >= n {
				break
			}
			var ev events.Event
			if err := json.Unmarshal(v, &ev); err != nil {
				logging.Warn("Skipping unreadable history entry",
					zap.Uint64("seq", binary.BigEndian.Uint64(k)),
					zap.Error(err),
				)
				continue
			}
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Len returns the number of stored events.
func (j *Journal) Len() (int, error) {
	var n int
	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(eventsBucket)).ForEach(func(_, _ []byte) error {
			n++
			return nil
		})
	})
	return n, err
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
