package stream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/wifiman/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receiver(t *testing.T) (string, <-chan events.Event) {
	t.Helper()
	received := make(chan events.Event, 16)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var ev events.Event
			if err := conn.ReadJSON(&ev); err != nil {
				return
			}
			received <- ev
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), received
}

func TestForwarderDelivers(t *testing.T) {
	url, received := receiver(t)

	f := NewForwarder(url)
	bus := events.NewBus()
	bus.Register(f)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx) }()

	sent := bus.Dispatch(events.APStarted, map[string]any{"essid": "Micropython-Dev"})

	select {
	case got := <-received:
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, events.APStarted, got.Name)
		assert.Equal(t, "Micropython-Dev", got.Payload["essid"])
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestNotifyQueueFull(t *testing.T) {
	f := NewForwarder("ws://127.0.0.1:1/")
	for i := 0; i < DefaultQueueSize; i++ {
		require.NoError(t, f.Notify(events.Event{Name: events.Disconnected}))
	}
	assert.ErrorIs(t, f.Notify(events.Event{Name: events.Connected}), ErrQueueFull)
}

func TestRunRetriesUntilCancelled(t *testing.T) {
	f := NewForwarder("ws://127.0.0.1:1/")
	f.Retry = 10 * time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := f.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
