// Package stream forwards events to a remote websocket endpoint as JSON
// text messages.
//
// Notify never blocks the bus: events are queued and a background
// goroutine owns the connection, redialling after failures. Events that
// arrive while the queue is full are dropped.
package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/logging"
	"github.com/muurk/wifiman/internal/version"
	"go.uber.org/zap"
)

const (
	DefaultQueueSize = 64
	DefaultRetry     = 5 * time.Second

	writeTimeout = 5 * time.Second
)

// ErrQueueFull is returned by Notify when an event had to be dropped.
var ErrQueueFull = errors.New("event stream queue full")

// Forwarder is an events.Observer that writes events to a websocket.
type Forwarder struct {
	URL   string
	Retry time.Duration

	dialer *websocket.Dialer
	queue  chan events.Event
}

// NewForwarder creates a forwarder for url. Call Run to start delivery.
func NewForwarder(url string) *Forwarder {
	return &Forwarder{
		URL:    url,
		Retry:  DefaultRetry,
		dialer: websocket.DefaultDialer,
		queue:  make(chan events.Event, DefaultQueueSize),
	}
}

// Notify queues ev for delivery.
func (f *Forwarder) Notify(ev events.Event) error {
	select {
	case f.queue <- ev:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrQueueFull, ev.Name)
	}
}

// Run delivers queued events until ctx ends.
func (f *Forwarder) Run(ctx context.Context) error {
	for {
		conn, err := f.dial(ctx)
		if err != nil {
			logging.Warn("Event stream dial failed", zap.String("url", f.URL), zap.Error(err))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(f.Retry):
				continue
			}
		}

		logging.Info("Event stream connected", zap.String("url", f.URL))
		err = f.pump(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logging.Warn("Event stream connection lost", zap.String("url", f.URL), zap.Error(err))
	}
}

func (f *Forwarder) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("User-Agent", version.ServerHeader())

	conn, resp, err := f.dialer.DialContext(ctx, f.URL, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	return conn, err
}

// pump writes events until a write fails, the peer goes away or ctx ends.
func (f *Forwarder) pump(ctx context.Context, conn *websocket.Conn) error {
	// Reading is needed to process control frames and notice a close.
	closed := make(chan error, 1)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closed <- err
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return ctx.Err()
		case err := <-closed:
			return err
		case ev := <-f.queue:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				// Put it back for the next connection if there is room.
				select {
				case f.queue <- ev:
				default:
				}
				return err
			}
		}
	}
}
