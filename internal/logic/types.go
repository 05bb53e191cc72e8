// Package logic contains the pure coach-comfort state machine.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode is the controller's operational state.
type Mode string

const (
	ModeIdle   Mode = "IDLE"
	ModeActive Mode = "ACTIVE"
	ModeWait   Mode = "WAIT"
)

// Status is the coarse operational status exposed to consumers.
// ACTIVE while the mode is Active or Wait (actuators on), IDLE otherwise.
type Status string

const (
	StatusIdle   Status = "IDLE"
	StatusActive Status = "ACTIVE"
)

// DefaultTimeout is the number of consecutive empty ticks in Wait before the
// controller returns to Idle.
const DefaultTimeout = 5

// Input is a single tick's worth of sensor readings.
type Input struct {
	// Reset forces the controller back to Idle, overriding everything else.
	Reset bool
	// PassengerPresent is the presence sensor reading.
	PassengerPresent bool
	// AmbientLight is the ambient brightness reading, nominally 0..255.
	// Out-of-range values are clamped, not rejected.
	AmbientLight int
	Time         time.Time
}

// Outputs are the actuator commands derived from controller state.
// They are recomputed every tick and never stored.
type Outputs struct {
	LightsOn   bool
	FanOn      bool
	Brightness int // 0..255, commanded light intensity
	Status     Status
}

// EventType identifies a mode transition.
type EventType string

const (
	// EventActivated: passenger detected while idle, actuators switched on.
	EventActivated EventType = "ACTIVATED"
	// EventHoldoff: coach went empty, shutdown delay started.
	EventHoldoff EventType = "HOLDOFF"
	// EventResumed: passenger returned during the shutdown delay.
	EventResumed EventType = "RESUMED"
	// EventDeactivated: shutdown delay elapsed, actuators switched off.
	EventDeactivated EventType = "DEACTIVATED"
)

// Event records a mode transition to be published.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Mode      Mode
	Outputs   Outputs
}

// EventCounts tracks the number of each transition since startup.
type EventCounts struct {
	Activated   int
	Holdoff     int
	Resumed     int
	Deactivated int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
