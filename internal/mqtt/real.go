package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"

	"github.com/railsense/coach-comfort/internal/logic"
)

// bufferCapacity bounds the number of messages held while disconnected.
const bufferCapacity = 64

// RealClient talks to an actual MQTT broker. It publishes coach events and
// dimmer commands, and subscribes to the ambient sensor and reset command
// topics. Messages published while disconnected are buffered and drained on
// reconnect.
type RealClient struct {
	client paho.Client

	mu           sync.Mutex
	buf          *ringBuffer
	ambient      int
	resetPending bool
}

// NewRealClient creates a client connected to the given broker.
func NewRealClient(broker string) (*RealClient, error) {
	c := &RealClient{buf: newRingBuffer(bufferCapacity)}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("coach-comfort").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warn().Err(err).Msg("mqtt connection lost")
		})

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

// onConnect re-establishes subscriptions and drains any buffered messages.
// Runs on every (re)connect.
func (c *RealClient) onConnect(client paho.Client) {
	log.Info().Msg("mqtt connected")

	if token := client.Subscribe(TopicAmbient, 0, c.handleAmbient); token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", TopicAmbient).Msg("subscribe failed")
	}
	if token := client.Subscribe(TopicReset, 1, c.handleReset); token.Wait() && token.Error() != nil {
		log.Error().Err(token.Error()).Str("topic", TopicReset).Msg("subscribe failed")
	}

	c.mu.Lock()
	pending := c.buf.drainAll()
	c.mu.Unlock()

	for _, msg := range pending {
		token := client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
			log.Error().Err(token.Error()).Str("topic", msg.topic).Msg("replay publish failed")
		}
	}
	if len(pending) > 0 {
		log.Info().Int("count", len(pending)).Msg("replayed buffered messages")
	}
}

func (c *RealClient) handleAmbient(_ paho.Client, msg paho.Message) {
	level, err := ParseAmbientPayload(msg.Payload())
	if err != nil {
		log.Warn().Err(err).Str("payload", string(msg.Payload())).Msg("bad ambient reading")
		return
	}
	c.mu.Lock()
	c.ambient = level
	c.mu.Unlock()
}

func (c *RealClient) handleReset(_ paho.Client, _ paho.Message) {
	log.Info().Msg("reset command received")
	c.mu.Lock()
	c.resetPending = true
	c.mu.Unlock()
}

// AmbientLevel returns the most recent ambient reading (zero before the
// first message).
func (c *RealClient) AmbientLevel() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ambient
}

// ConsumeReset reports and clears the reset latch.
func (c *RealClient) ConsumeReset() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.resetPending
	c.resetPending = false
	return pending
}

// Publish sends a transition event to the MQTT broker.
func (c *RealClient) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return c.publish(Topic, 0, false, payload)
}

// PublishBrightness sends a retained dimmer command to the MQTT broker.
func (c *RealClient) PublishBrightness(cmd BrightnessCommand) error {
	payload, err := FormatBrightnessPayload(cmd)
	if err != nil {
		return fmt.Errorf("format brightness payload: %w", err)
	}
	return c.publish(TopicBrightness, 0, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events - we want to ensure delivery
	return c.publish(TopicSystem, 1, event.Retained, payload)
}

// publish delivers a message, buffering it instead when disconnected.
func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.client.IsConnected() {
		c.mu.Lock()
		c.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		n := c.buf.len()
		c.mu.Unlock()
		log.Debug().Str("topic", topic).Int("buffered", n).Msg("broker offline, message buffered")
		return nil
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// IsConnected reports whether the broker connection is active.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
