package thermostat

import (
	"fmt"
	"strings"
)

// Mode is an integer enum.
type Mode int

const (
	ModeUnknown Mode = iota
	ModeOff
	ModeHeat
	ModeCool
)

func (m Mode) Valid() bool {
	return m == ModeOff || m == ModeHeat || m == ModeCool
}

func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHeat:
		return "heat"
	case ModeCool:
		return "cool"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "off":
		return ModeOff, nil
	case "heat":
		return ModeHeat, nil
	case "cool":
		return ModeCool, nil
	default:
		return ModeUnknown, fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Unit is the display and comparison domain of temperatures.
type Unit int

const (
	UnitUnknown Unit = iota
	UnitFahrenheit
	UnitCelsius
)

func (u Unit) Valid() bool {
	return u == UnitFahrenheit || u == UnitCelsius
}

// String returns the single upper-case letter reported to clients.
func (u Unit) String() string {
	switch u {
	case UnitFahrenheit:
		return "F"
	case UnitCelsius:
		return "C"
	default:
		return "unknown"
	}
}

// ParseUnit accepts "f" or "c" in any case.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(s) {
	case "f":
		return UnitFahrenheit, nil
	case "c":
		return UnitCelsius, nil
	default:
		return UnitUnknown, fmt.Errorf("%w: %q", ErrInvalidUnit, s)
	}
}
