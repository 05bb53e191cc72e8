package mqtt

import (
	"sync"

	"github.com/railsense/coach-comfort/internal/logic"
)

// FakeClient records published messages and serves scripted inputs for tests.
type FakeClient struct {
	mu sync.Mutex

	// Events contains all transition events that were published.
	Events []logic.Event

	// Payloads contains the JSON payloads that were published.
	Payloads [][]byte

	// BrightnessCommands contains all dimmer commands that were published.
	BrightnessCommands []BrightnessCommand

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// SystemPayloads contains the JSON payloads for system events.
	SystemPayloads [][]byte

	// Ambient is the value returned by AmbientLevel.
	Ambient int

	// ResetPending is consumed by ConsumeReset.
	ResetPending bool

	// PublishError, if set, will be returned by the publish methods.
	PublishError error

	// Closed tracks if Close was called.
	Closed bool

	// Connected controls the return value of IsConnected.
	Connected bool
}

// NewFakeClient creates a FakeClient for testing.
func NewFakeClient() *FakeClient {
	return &FakeClient{}
}

// Publish records the transition event.
func (f *FakeClient) Publish(event logic.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	f.Events = append(f.Events, event)

	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Payloads = append(f.Payloads, payload)
	return nil
}

// PublishBrightness records the dimmer command.
func (f *FakeClient) PublishBrightness(cmd BrightnessCommand) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}
	f.BrightnessCommands = append(f.BrightnessCommands, cmd)
	return nil
}

// PublishSystem records the system event.
func (f *FakeClient) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PublishError != nil {
		return f.PublishError
	}

	f.SystemEvents = append(f.SystemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemPayloads = append(f.SystemPayloads, payload)
	return nil
}

// AmbientLevel returns the scripted ambient reading.
func (f *FakeClient) AmbientLevel() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Ambient
}

// SetAmbient sets the scripted ambient reading.
func (f *FakeClient) SetAmbient(level int) {
	f.mu.Lock()
	f.Ambient = level
	f.mu.Unlock()
}

// ConsumeReset reports and clears the reset latch.
func (f *FakeClient) ConsumeReset() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	pending := f.ResetPending
	f.ResetPending = false
	return pending
}

// Close marks the client as closed.
func (f *FakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake client is "connected".
func (f *FakeClient) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Connected
}

// Reset clears recorded messages and scripted state.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = nil
	f.Payloads = nil
	f.BrightnessCommands = nil
	f.SystemEvents = nil
	f.SystemPayloads = nil
	f.Ambient = 0
	f.ResetPending = false
	f.PublishError = nil
	f.Closed = false
	f.Connected = false
}
