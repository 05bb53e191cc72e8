//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealReader reads the presence sensor and reset button from actual hardware
// using the Linux GPIO character device.
type RealReader struct {
	chip        *gpiocdev.Chip
	presencePin *gpiocdev.Line
	resetPin    *gpiocdev.Line
}

// NewRealReader creates a GPIO reader for the coach input lines.
func NewRealReader(pinPresence, pinReset int) (*RealReader, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Request lines as input with pull-down to match Pi boot defaults.
	// The PIR module and the reset button both drive their lines high when active.
	presenceLine, err := chip.RequestLine(pinPresence, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request presence pin %d: %w", pinPresence, err)
	}

	resetLine, err := chip.RequestLine(pinReset, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		presenceLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request reset pin %d: %w", pinReset, err)
	}

	return &RealReader{
		chip:        chip,
		presencePin: presenceLine,
		resetPin:    resetLine,
	}, nil
}

// Read returns the presence and reset states. Raw high = asserted.
func (r *RealReader) Read() (bool, bool, error) {
	presenceRaw, err := r.presencePin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read presence pin: %w", err)
	}

	resetRaw, err := r.resetPin.Value()
	if err != nil {
		return false, false, fmt.Errorf("read reset pin: %w", err)
	}

	return presenceRaw != 0, resetRaw != 0, nil
}

// Close releases GPIO resources. Pins are reconfigured to input with
// pull-down (matching Pi boot defaults) before closing so external modules
// see a clean state across restarts.
func (r *RealReader) Close() error {
	var errs []error

	for _, pin := range []*gpiocdev.Line{r.presencePin, r.resetPin} {
		if pin == nil {
			continue
		}
		if err := pin.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure input pin: %w", err))
		}
		if err := pin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// RealWriter drives the lighting and ventilation relays.
type RealWriter struct {
	chip      *gpiocdev.Chip
	lightsPin *gpiocdev.Line
	fanPin    *gpiocdev.Line
}

// NewRealWriter creates a GPIO writer for the relay output lines.
// Both relays start off.
func NewRealWriter(pinLights, pinFan int) (*RealWriter, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lightsLine, err := chip.RequestLine(pinLights, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request lights pin %d: %w", pinLights, err)
	}

	fanLine, err := chip.RequestLine(pinFan, gpiocdev.AsOutput(0))
	if err != nil {
		lightsLine.Close()
		chip.Close()
		return nil, fmt.Errorf("request fan pin %d: %w", pinFan, err)
	}

	return &RealWriter{
		chip:      chip,
		lightsPin: lightsLine,
		fanPin:    fanLine,
	}, nil
}

// Set commands the relays. High = on.
func (w *RealWriter) Set(lights, fan bool) error {
	if err := w.lightsPin.SetValue(boolToValue(lights)); err != nil {
		return fmt.Errorf("set lights pin: %w", err)
	}
	if err := w.fanPin.SetValue(boolToValue(fan)); err != nil {
		return fmt.Errorf("set fan pin: %w", err)
	}
	return nil
}

// Close drives both relays off before releasing GPIO resources, so a daemon
// restart never strands the coach with actuators stuck on.
func (w *RealWriter) Close() error {
	var errs []error

	for _, pin := range []*gpiocdev.Line{w.lightsPin, w.fanPin} {
		if pin == nil {
			continue
		}
		if err := pin.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear output pin: %w", err))
		}
		if err := pin.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output pin: %w", err))
		}
	}
	if w.chip != nil {
		if err := w.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

func boolToValue(b bool) int {
	if b {
		return 1
	}
	return 0
}
