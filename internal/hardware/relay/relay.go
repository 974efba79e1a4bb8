// Package relay drives the heat, cool and fan relay outputs.
package relay

import (
	"errors"
	"fmt"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

// Drivers
const (
	DriverGPIOCDev = "gpiocdev"
	DriverRPIO     = "rpio"
	DriverMemory   = "memory"
)

var ErrUnknownDriver = errors.New("relay: unknown driver")

// Pins are line offsets (gpiocdev) or BCM numbers (rpio).
type Pins struct {
	Heat int
	Cool int
	Fan  int
}

type Config struct {
	Driver string
	// Chip is the gpiocdev character device, e.g. "gpiochip0".
	Chip string
	// ActiveLow inverts the electrical level, for relay boards that energize
	// on a low input.
	ActiveLow bool
	Pins      Pins
}

// Output is a relay that holds a hardware resource.
type Output interface {
	ports.Relay
	Close() error
}

// Bank is the set of three outputs the thermostat drives.
type Bank struct {
	Heat Output
	Cool Output
	Fan  Output
}

// Open builds the three outputs for cfg.Driver. Every output starts off.
func Open(cfg Config) (*Bank, error) {
	var open func(pin int) (Output, error)
	switch cfg.Driver {
	case DriverMemory:
		open = func(int) (Output, error) { return NewMemory(), nil }
	case DriverGPIOCDev, "":
		chip := cfg.Chip
		if chip == "" {
			chip = "gpiochip0"
		}
		open = func(pin int) (Output, error) {
			g, err := OpenGPIOCDev(chip, pin, cfg.ActiveLow)
			if err != nil {
				return nil, err
			}
			return g, nil
		}
	case DriverRPIO:
		open = func(pin int) (Output, error) {
			r, err := OpenRPIO(pin, cfg.ActiveLow)
			if err != nil {
				return nil, err
			}
			return r, nil
		}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}

	b := &Bank{}
	slots := []struct {
		name string
		pin  int
		dst  *Output
	}{
		{"heat", cfg.Pins.Heat, &b.Heat},
		{"cool", cfg.Pins.Cool, &b.Cool},
		{"fan", cfg.Pins.Fan, &b.Fan},
	}
	for _, s := range slots {
		o, err := open(s.pin)
		if err != nil {
			_ = b.Close()
			return nil, fmt.Errorf("%s relay pin %d: %w", s.name, s.pin, err)
		}
		*s.dst = o
	}
	return b, nil
}

// Close releases every opened output.
func (b *Bank) Close() error {
	var errs []error
	for _, o := range []Output{b.Heat, b.Cool, b.Fan} {
		if o == nil {
			continue
		}
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
