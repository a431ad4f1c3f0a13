package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// DefaultClientID identifies the panel to the broker.
const DefaultClientID = "agent-panel"

// DefaultBufferSize is the number of publishes held while disconnected.
const DefaultBufferSize = 64

const publishTimeout = 5 * time.Second

// Options configures Connect.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	// BufferSize bounds the offline publish buffer; DefaultBufferSize when 0.
	BufferSize int
	// ConnectTimeout bounds the wait for the first connection. The client
	// keeps retrying in the background after it expires.
	ConnectTimeout time.Duration
	Handlers       Handlers
	Logger         *zap.Logger
}

// conn is the part of paho.Client used for publishing.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// subscriber is the part of paho.Client used for subscribing.
type subscriber interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Client publishes panel events and routes subscribed topics to Handlers.
// Publishes made while the broker is unreachable are buffered and replayed
// on reconnect.
type Client struct {
	conn     conn
	handlers Handlers
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	pending  *ringBuffer
	connects int
}

func newClient(opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}
	return &Client{
		handlers: opts.Handlers,
		logger:   logger,
		now:      time.Now,
		pending:  newRingBuffer(size),
	}
}

// Connect creates a client for opts.Broker. A broker that does not answer
// within ConnectTimeout is not an error: the client keeps retrying and
// buffers publishes until it connects.
func Connect(opts Options) (*Client, error) {
	c := newClient(opts)

	id := opts.ClientID
	if id == "" {
		id = DefaultClientID
	}
	will, err := FormatSystemPayload(SystemEvent{
		Timestamp: c.now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})
	if err != nil {
		return nil, fmt.Errorf("format will: %w", err)
	}

	po := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(id).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetBinaryWill(TopicSystem, will, 1, true).
		SetOnConnectHandler(func(pc paho.Client) { c.onConnect(pc) }).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.logger.Warn("mqtt connection lost", zap.Error(err))
		})
	if opts.Username != "" {
		po.SetUsername(opts.Username)
		po.SetPassword(opts.Password)
	}

	client := paho.NewClient(po)
	c.conn = client

	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		c.logger.Warn("mqtt broker not reachable yet, buffering publishes",
			zap.String("broker", opts.Broker))
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

// onConnect subscribes, replays buffered publishes and, after a reconnect,
// announces RECONNECTED.
func (c *Client) onConnect(sub subscriber) {
	c.mu.Lock()
	c.connects++
	reconnect := c.connects > 1
	msgs, dropped := c.pending.drain()
	c.mu.Unlock()

	c.logger.Info("mqtt connected", zap.Bool("reconnect", reconnect))

	for _, topic := range c.handlers.Topics() {
		token := sub.Subscribe(topic, 1, func(_ paho.Client, m paho.Message) {
			c.handle(m.Topic(), m.Payload())
		})
		if !token.WaitTimeout(publishTimeout) {
			c.logger.Warn("mqtt subscribe timeout", zap.String("topic", topic))
			continue
		}
		if err := token.Error(); err != nil {
			c.logger.Warn("mqtt subscribe failed", zap.String("topic", topic), zap.Error(err))
		}
	}

	if dropped > 0 {
		c.logger.Warn("mqtt offline buffer overflowed", zap.Int("dropped", dropped))
	}
	for _, m := range msgs {
		if err := c.publish(m.topic, m.qos, m.retained, m.payload); err != nil {
			c.logger.Warn("mqtt replay failed", zap.String("topic", m.topic), zap.Error(err))
		}
	}
	if len(msgs) > 0 {
		c.logger.Info("mqtt replayed buffered messages", zap.Int("count", len(msgs)))
	}

	if reconnect {
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: c.now(), Event: EventReconnected})
		if err := c.publish(TopicSystem, 1, false, payload); err != nil {
			c.logger.Warn("mqtt reconnect announce failed", zap.Error(err))
		}
	}
}

func (c *Client) handle(topic string, payload []byte) {
	if err := c.handlers.Route(topic, payload); err != nil {
		c.logger.Warn("mqtt inbound message rejected",
			zap.String("topic", topic),
			zap.Error(err),
		)
	}
}

func (c *Client) publish(topic string, qos byte, retained bool, payload []byte) error {
	c.mu.Lock()
	if c.conn == nil || !c.conn.IsConnectionOpen() {
		dropped := c.pending.push(pendingMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		c.mu.Unlock()
		if dropped {
			c.logger.Debug("mqtt offline buffer full, oldest dropped")
		}
		return nil
	}
	c.mu.Unlock()

	token := c.conn.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// PublishSystem sends a lifecycle event with QoS 1.
func (c *Client) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return c.publish(TopicSystem, 1, event.Retained, payload)
}

// PublishButton sends a button event with QoS 0.
func (c *Client) PublishButton(event ButtonEvent) error {
	payload, err := FormatButtonPayload(event)
	if err != nil {
		return fmt.Errorf("format button payload: %w", err)
	}
	return c.publish(TopicButton, 0, false, payload)
}

// PublishCommand sends a network manager command with QoS 1.
func (c *Client) PublishCommand(cmd Command) error {
	payload, err := FormatCommandPayload(cmd)
	if err != nil {
		return fmt.Errorf("format command payload: %w", err)
	}
	return c.publish(TopicNetworkCommand, 1, false, payload)
}

// IsConnected reports whether the broker connection is open.
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnectionOpen()
}

// Buffered returns the number of publishes waiting for a connection.
func (c *Client) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending.len()
}

// Close disconnects from the broker.
func (c *Client) Close() error {
	if c.conn != nil {
		c.conn.Disconnect(1000)
	}
	return nil
}
