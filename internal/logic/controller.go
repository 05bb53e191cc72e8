package logic

import "time"

// Controller is the coach comfort state machine. It owns exactly two pieces of
// state — the current mode and the wait timer — and advances once per tick.
// Not safe for concurrent use; a single goroutine drives it.
type Controller struct {
	timeout int
	mode    Mode
	timer   int

	eventCounts   EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// New creates a Controller in Idle with the timer at zero. timeout is the
// number of consecutive empty ticks in Wait before returning to Idle; values
// below 1 fall back to DefaultTimeout. The startTime is used for calculating
// uptime in heartbeat events.
func New(timeout int, startTime time.Time) *Controller {
	if timeout < 1 {
		timeout = DefaultTimeout
	}
	return &Controller{
		timeout:       timeout,
		mode:          ModeIdle,
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Process advances the controller by one tick and returns the outputs for
// that tick, plus a transition event if the mode changed.
//
// Reset has strict priority: when asserted the controller commits Idle/0 and
// the other inputs are ignored for that tick. Otherwise the next timer and
// next mode are both computed from the pre-tick state and committed together,
// so a tick that enters Wait commits timer=0 and the count starts on the
// following tick. Outputs are computed from the committed mode, making
// transitions visible in the same tick they occur.
func (c *Controller) Process(in Input) (Outputs, *Event) {
	if in.Reset {
		c.mode = ModeIdle
		c.timer = 0
		return OutputsFor(c.mode, in.AmbientLight), nil
	}

	prev := c.mode

	nextTimer := 0
	if c.mode == ModeWait {
		nextTimer = c.timer + 1
	}
	next := nextMode(c.mode, in.PassengerPresent, nextTimer, c.timeout)
	if next != ModeWait {
		nextTimer = 0
	}

	// Commit mode and timer together.
	c.mode = next
	c.timer = nextTimer

	out := OutputsFor(c.mode, in.AmbientLight)

	ev := eventForTransition(prev, c.mode)
	if ev == nil {
		return out, nil
	}
	c.count(*ev)
	return out, &Event{
		Timestamp: in.Time,
		Type:      *ev,
		Mode:      c.mode,
		Outputs:   out,
	}
}

// nextMode implements the transition table. Any mode value outside the known
// set recovers to Idle: the worst-case failure is actuators off, never an
// uncontrolled active state.
func nextMode(mode Mode, present bool, timer, timeout int) Mode {
	switch mode {
	case ModeIdle:
		if present {
			return ModeActive
		}
		return ModeIdle
	case ModeActive:
		if present {
			return ModeActive
		}
		return ModeWait
	case ModeWait:
		if present {
			return ModeActive
		}
		if timer >= timeout {
			return ModeIdle
		}
		return ModeWait
	default:
		return ModeIdle
	}
}

// OutputsFor derives actuator commands from a mode and an ambient reading.
// Pure function: Idle is everything-off; Active and Wait keep lights and fan
// on (Wait is the hold-off period, no flicker on momentary absence) with
// brightness inverse to ambient light.
func OutputsFor(mode Mode, ambient int) Outputs {
	switch mode {
	case ModeActive, ModeWait:
		return Outputs{
			LightsOn:   true,
			FanOn:      true,
			Brightness: 255 - ClampAmbient(ambient),
			Status:     StatusActive,
		}
	default:
		return Outputs{Status: StatusIdle}
	}
}

// ClampAmbient clamps an ambient light reading to [0,255]. Out-of-range
// readings are degraded input, not errors.
func ClampAmbient(v int) int {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

func eventForTransition(from, to Mode) *EventType {
	if from == to {
		return nil
	}
	switch from {
	case ModeIdle, ModeActive, ModeWait:
	default:
		// Recovery from a corrupted mode is silent.
		return nil
	}
	var ev EventType
	switch {
	case to == ModeActive && from == ModeWait:
		ev = EventResumed
	case to == ModeActive:
		ev = EventActivated
	case to == ModeWait:
		ev = EventHoldoff
	default:
		ev = EventDeactivated
	}
	return &ev
}

func (c *Controller) count(ev EventType) {
	switch ev {
	case EventActivated:
		c.eventCounts.Activated++
	case EventHoldoff:
		c.eventCounts.Holdoff++
	case EventResumed:
		c.eventCounts.Resumed++
	case EventDeactivated:
		c.eventCounts.Deactivated++
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	return c.mode
}

// Timer returns the current wait-timer value. Zero whenever the mode is not Wait.
func (c *Controller) Timer() int {
	return c.timer
}

// EventCountsSnapshot returns a copy of the transition counters.
func (c *Controller) EventCountsSnapshot() EventCounts {
	return c.eventCounts
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed or
// if interval is <= 0 (disabled).
func (c *Controller) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}
	if now.Sub(c.lastHeartbeat) < interval {
		return nil
	}
	c.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(c.startTime),
		Counts:    c.eventCounts,
	}
}
