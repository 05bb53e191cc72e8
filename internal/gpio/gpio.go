// Package gpio provides GPIO access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementations allow testing without hardware.
package gpio

// Reader reads the coach input lines.
type Reader interface {
	// Read returns the presence sensor state and the reset button state.
	// Returns (present, reset, error).
	Read() (bool, bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Writer drives the coach actuator relays.
type Writer interface {
	// Set commands the lighting and ventilation relays.
	Set(lights, fan bool) error

	// Close releases GPIO resources, leaving the relays off.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinPresence = 17 // PIR presence sensor
	DefaultPinReset    = 27 // panel reset button
	DefaultPinLights   = 23 // lighting relay
	DefaultPinFan      = 24 // ventilation relay
)
