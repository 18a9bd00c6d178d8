// Package events delivers supervisor notifications to registered observers.
//
// Observers are called synchronously, in registration order. An observer
// that returns an error or panics is logged and skipped; the remaining
// observers still run.
package events

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

// Event names.
const (
	Connected        = "connected"
	Disconnected     = "disconnected"
	ConnectionFailed = "connection_failed"
	APStarted        = "ap_started"
)

// Event is one notification.
type Event struct {
	ID      uuid.UUID      `json:"id"`
	Name    string         `json:"event"`
	Payload map[string]any `json:"payload"`
	Time    time.Time      `json:"time"`
}

// Observer receives events.
type Observer interface {
	Notify(ev Event) error
}

// FuncObserver adapts a function. Use Func to get one; identity is the
// returned pointer.
type FuncObserver struct {
	Name string
	fn   func(Event) error
}

// Func wraps fn as an Observer.
func Func(name string, fn func(Event) error) *FuncObserver {
	return &FuncObserver{Name: name, fn: fn}
}

// Notify calls the wrapped function.
func (f *FuncObserver) Notify(ev Event) error {
	return f.fn(ev)
}

func (f *FuncObserver) String() string {
	return f.Name
}

// Bus is an ordered observer registry.
type Bus struct {
	mu        sync.Mutex
	observers []Observer
	lastState string
	now       func() time.Time
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Register adds o unless it is already registered. Observers are compared
// with ==, so they should be pointers.
func (b *Bus) Register(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.observers {
		if existing == o {
			return
		}
	}
	b.observers = append(b.observers, o)
}

// Unregister removes o if present.
func (b *Bus) Unregister(o Observer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.observers {
		if existing == o {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

// LastState returns the name of the last dispatched event.
func (b *Bus) LastState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastState
}

// Dispatch sends an event to every observer and returns it.
func (b *Bus) Dispatch(name string, payload map[string]any) Event {
	if payload == nil {
		payload = map[string]any{}
	}

	b.mu.Lock()
	observers := append([]Observer(nil), b.observers...)
	b.lastState = name
	now := b.now
	b.mu.Unlock()

	if now == nil {
		now = time.Now
	}
	ev := Event{
		ID:      uuid.New(),
		Name:    name,
		Payload: payload,
		Time:    now().UTC(),
	}

	for i, o := range observers {
		if err := notify(o, ev); err != nil {
			logging.Error("Observer failed",
				zap.String("event", name),
				zap.Int("observer", i),
				zap.String("observer_type", fmt.Sprintf("%T", o)),
				zap.Error(err),
			)
		}
	}
	return ev
}

func notify(o Observer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panic: %v", r)
		}
	}()
	return o.Notify(ev)
}
