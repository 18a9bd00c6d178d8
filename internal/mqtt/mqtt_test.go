package mqtt

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/wifiman/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type token struct {
	err error
}

func (t *token) Wait() bool                     { return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Error() error                   { return t.err }

func (t *token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu         sync.Mutex
	published  []message
	publishErr error
	disconnect int
}

func (f *fakeClient) Connect() MQTT.Token { return &token{} }

func (f *fakeClient) Disconnect(uint) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnect++
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, message{topic, qos, retained, payload.([]byte)})
	return &token{err: f.publishErr}
}

func newTestPublisher(cfg *Config) (*Publisher, *fakeClient) {
	p := NewPublisher(cfg)
	fake := &fakeClient{}
	p.client = fake
	return p, fake
}

func TestTopic(t *testing.T) {
	tests := []struct {
		levels []string
		want   string
	}{
		{[]string{"wifiman", "events", "connected"}, "wifiman/events/connected"},
		{[]string{"site/garden-pi/", "status"}, "site/garden-pi/status"},
		{[]string{"", "events", "ap_started"}, "events/ap_started"},
	}
	for _, tt := range tests {
		if got := Topic(tt.levels...); got != tt.want {
			t.Errorf("Topic(%v) = %q, want %q", tt.levels, got, tt.want)
		}
	}
}

func TestNotifyPublishesEvent(t *testing.T) {
	p, fake := newTestPublisher(&Config{Broker: "b", TopicPrefix: "wifiman/garden-pi", QoS: 1, Retain: true})
	p.onConnect()

	bus := events.NewBus()
	bus.Register(p)
	ev := bus.Dispatch(events.Connected, map[string]any{"ssid": "HomeNetwork", "ip": "192.168.4.20"})

	require.Len(t, fake.published, 2)
	status := fake.published[0]
	assert.Equal(t, "wifiman/garden-pi/status", status.topic)
	assert.Equal(t, "online", string(status.payload))
	assert.True(t, status.retained)

	msg := fake.published[1]
	assert.Equal(t, "wifiman/garden-pi/events/connected", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)

	var decoded events.Event
	require.NoError(t, json.Unmarshal(msg.payload, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, "HomeNetwork", decoded.Payload["ssid"])
}

func TestNotifyWhileDisconnectedDrops(t *testing.T) {
	p, fake := newTestPublisher(&Config{Broker: "b", TopicPrefix: "wifiman"})

	assert.NoError(t, p.Notify(events.Event{Name: events.Disconnected}))
	assert.Empty(t, fake.published)
}

func TestNotifyPublishError(t *testing.T) {
	p, fake := newTestPublisher(&Config{Broker: "b", TopicPrefix: "wifiman"})
	p.onConnect()
	fake.publishErr = errors.New("not authorised")

	err := p.Notify(events.Event{Name: events.APStarted})
	assert.ErrorContains(t, err, "not authorised")
}

func TestConnectionLostStopsPublishing(t *testing.T) {
	p, fake := newTestPublisher(&Config{Broker: "b", TopicPrefix: "wifiman"})
	p.onConnect()
	p.onConnectionLost(errors.New("EOF"))

	require.NoError(t, p.Notify(events.Event{Name: events.Connected}))
	assert.Len(t, fake.published, 1) // only the online status
}

func TestDisconnectPublishesOffline(t *testing.T) {
	p, fake := newTestPublisher(&Config{Broker: "b", TopicPrefix: "wifiman"})
	p.onConnect()
	p.Disconnect()

	last := fake.published[len(fake.published)-1]
	assert.Equal(t, "wifiman/status", last.topic)
	assert.Equal(t, "offline", string(last.payload))
	assert.Equal(t, 1, fake.disconnect)
}
