// Package mqtt publishes supervisor events to an MQTT broker.
//
// Each event goes to <topic_prefix>/events/<name> as the JSON encoding of
// the event. The publisher also keeps a retained <topic_prefix>/status
// topic: "online" after connecting, "offline" as the last will.
package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"
	"github.com/muurk/wifiman/internal/events"
	"github.com/muurk/wifiman/internal/logging"
	"go.uber.org/zap"
)

const (
	statusOnline  = "online"
	statusOffline = "offline"

	defaultPublishTimeout = 5 * time.Second
)

// Config holds MQTT configuration
type Config struct {
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         byte
	Retain      bool

	// PublishTimeout bounds the wait for a publish acknowledgement.
	PublishTimeout time.Duration
}

// client is the part of MQTT.Client the publisher uses.
type client interface {
	Connect() MQTT.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) MQTT.Token
}

// Publisher is an events.Observer that forwards events to a broker.
type Publisher struct {
	config    *Config
	client    client
	connected atomic.Bool
}

// NewPublisher builds a publisher; call Connect before dispatching.
func NewPublisher(config *Config) *Publisher {
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = defaultPublishTimeout
	}
	if config.Port == 0 {
		config.Port = 1883
	}
	p := &Publisher{config: config}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", config.Broker, config.Port))
	opts.SetClientID(config.ClientID)
	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetWill(p.statusTopic(), statusOffline, config.QoS, true)
	opts.SetOnConnectHandler(func(MQTT.Client) { p.onConnect() })
	opts.SetConnectionLostHandler(func(_ MQTT.Client, err error) { p.onConnectionLost(err) })

	p.client = MQTT.NewClient(opts)
	return p
}

// Connect starts connecting. With connect-retry enabled paho keeps trying
// in the background, so an unreachable broker is not an error here.
func (p *Publisher) Connect() error {
	token := p.client.Connect()
	if !token.WaitTimeout(p.config.PublishTimeout) {
		logging.Warn("MQTT broker not reachable yet, retrying in background",
			zap.String("broker", p.config.Broker),
			zap.Int("port", p.config.Port),
		)
		return nil
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return nil
}

// Disconnect publishes the offline status and closes the connection.
func (p *Publisher) Disconnect() {
	if p.connected.Load() {
		p.publish(p.statusTopic(), []byte(statusOffline), true)
	}
	p.client.Disconnect(250)
	p.connected.Store(false)
	logging.Info("MQTT client disconnected")
}

func (p *Publisher) onConnect() {
	p.connected.Store(true)
	logging.Info("MQTT connection established", zap.String("broker", p.config.Broker))
	if err := p.publish(p.statusTopic(), []byte(statusOnline), true); err != nil {
		logging.Warn("Failed to publish MQTT status", zap.Error(err))
	}
}

func (p *Publisher) onConnectionLost(err error) {
	p.connected.Store(false)
	logging.Error("MQTT connection lost", zap.Error(err))
}

// Notify publishes ev. Events raised while disconnected are dropped.
func (p *Publisher) Notify(ev events.Event) error {
	if !p.connected.Load() {
		logging.Debug("MQTT not connected, dropping event", zap.String("event", ev.Name))
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	return p.publish(Topic(p.config.TopicPrefix, "events", ev.Name), payload, p.config.Retain)
}

func (p *Publisher) publish(topic string, payload []byte, retain bool) error {
	token := p.client.Publish(topic, p.config.QoS, retain, payload)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		return fmt.Errorf("publish to %s timed out", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	logging.Debug("MQTT message published", zap.String("topic", topic), zap.Int("bytes", len(payload)))
	return nil
}

func (p *Publisher) statusTopic() string {
	return Topic(p.config.TopicPrefix, "status")
}

// Topic joins topic levels, ignoring empty ones and stray slashes.
func Topic(levels ...string) string {
	parts := make([]string, 0, len(levels))
	for _, l := range levels {
		if l = strings.Trim(l, "/"); l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, "/")
}
