// Package mqtt provides MQTT publishing and sensor subscriptions with
// abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/railsense/coach-comfort/internal/logic"
)

// Topic is the MQTT topic for coach transition events.
const Topic = "railway/coach/comfort/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "railway/coach/comfort/system"

// TopicBrightness is the MQTT topic for the commanded light intensity,
// consumed by the dimmer driver. Published retained so the dimmer picks up
// the current level on reconnect.
const TopicBrightness = "railway/coach/comfort/brightness"

// TopicAmbient is the MQTT topic the ambient light sensor publishes on.
const TopicAmbient = "railway/coach/sensors/ambient"

// TopicReset is the MQTT command topic; any message asserts reset for the
// next tick.
const TopicReset = "railway/coach/comfort/reset"

// Publisher publishes coach events to MQTT.
type Publisher interface {
	// Publish sends a transition event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishBrightness sends a retained dimmer command to the broker.
	PublishBrightness(cmd BrightnessCommand) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// InputSource exposes the sensor and command values received over MQTT.
type InputSource interface {
	// AmbientLevel returns the most recent ambient light reading.
	// Zero until the first reading arrives (fail-bright when active).
	AmbientLevel() int

	// ConsumeReset reports whether a reset command arrived since the last
	// call, clearing the latch.
	ConsumeReset() bool
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT", "RESET"
	Reason     string // e.g., "SIGTERM", "BUTTON", "MQTT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// BrightnessCommand is the dimmer command published on brightness changes.
type BrightnessCommand struct {
	Timestamp time.Time
	Level     int // 0..255
	Status    logic.Status
}

// Payload represents the MQTT message payload structure for coach events.
type Payload struct {
	Coach CoachPayload `json:"coach"`
}

// CoachPayload contains the transition event details.
type CoachPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Mode       string `json:"mode"`
	Lights     bool   `json:"lights"`
	Fan        bool   `json:"fan"`
	Brightness int    `json:"brightness"`
	Status     string `json:"status"`
}

// FormatPayload creates the JSON payload for a coach transition event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Coach: CoachPayload{
			Timestamp:  event.Timestamp.UTC().Format(time.RFC3339),
			Event:      string(event.Type),
			Mode:       string(event.Mode),
			Lights:     event.Outputs.LightsOn,
			Fan:        event.Outputs.FanOn,
			Brightness: event.Outputs.Brightness,
			Status:     string(event.Outputs.Status),
		},
	}
	return json.Marshal(payload)
}

// BrightnessPayload represents the MQTT message payload for dimmer commands.
type BrightnessPayload struct {
	Brightness BrightnessInner `json:"brightness"`
}

// BrightnessInner contains the dimmer command details.
type BrightnessInner struct {
	Timestamp string `json:"timestamp"`
	Level     int    `json:"level"`
	Status    string `json:"status"`
}

// FormatBrightnessPayload creates the JSON payload for a dimmer command.
func FormatBrightnessPayload(cmd BrightnessCommand) ([]byte, error) {
	payload := BrightnessPayload{
		Brightness: BrightnessInner{
			Timestamp: cmd.Timestamp.UTC().Format(time.RFC3339),
			Level:     cmd.Level,
			Status:    string(cmd.Status),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

// ambientPayload is the ambient sensor message shape.
type ambientPayload struct {
	Level int `json:"level"`
}

// ParseAmbientPayload extracts the light level from a sensor message.
// Accepts the JSON form {"level": n} or a bare integer; raw values are not
// clamped here — range handling belongs to the logic package.
func ParseAmbientPayload(data []byte) (int, error) {
	var p ambientPayload
	if err := json.Unmarshal(data, &p); err == nil {
		return p.Level, nil
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}
