package command

import "github.com/Agrid-Dev/thermorelay/internal/thermostat"

// Kind is the closed set of commands the dispatcher understands.
type Kind int

const (
	KindUnknown Kind = iota
	KindEmpty
	KindStatus
	KindHeat
	KindCool
	KindSetOffset
	KindReadOffset
	KindOff
	KindSelfTest
	KindRestart
	KindReadTemperature
	KindReadHumidity
	KindSetUnit
	KindSetDefaultTemperature
	KindSetMode
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindStatus:
		return "status"
	case KindHeat:
		return "heat"
	case KindCool:
		return "cool"
	case KindSetOffset:
		return "set_offset"
	case KindReadOffset:
		return "read_offset"
	case KindOff:
		return "off"
	case KindSelfTest:
		return "self_test"
	case KindRestart:
		return "restart"
	case KindReadTemperature:
		return "read_temperature"
	case KindReadHumidity:
		return "read_humidity"
	case KindSetUnit:
		return "set_unit"
	case KindSetDefaultTemperature:
		return "set_default_temperature"
	case KindSetMode:
		return "set_mode"
	default:
		return "unknown"
	}
}

// Command is one parsed request. Value carries the integer argument of Heat,
// Cool, SetOffset and SetDefaultTemperature; Unit carries the argument of
// SetUnit and Mode the argument of SetMode.
type Command struct {
	Kind  Kind
	Value int
	Unit  thermostat.Unit
	Mode  thermostat.Mode
}

func Status() Command                   { return Command{Kind: KindStatus} }
func Heat(setpoint int) Command         { return Command{Kind: KindHeat, Value: setpoint} }
func Cool(setpoint int) Command         { return Command{Kind: KindCool, Value: setpoint} }
func Off() Command                      { return Command{Kind: KindOff} }
func SetOffset(offset int) Command      { return Command{Kind: KindSetOffset, Value: offset} }
func SetUnit(u thermostat.Unit) Command { return Command{Kind: KindSetUnit, Unit: u} }

func SetDefaultTemperature(setpoint int) Command {
	return Command{Kind: KindSetDefaultTemperature, Value: setpoint}
}

// SetMode switches to m and keeps whatever setpoint the loop holds when the
// command runs. Controllers without a setpoint argument use it.
func SetMode(m thermostat.Mode) Command { return Command{Kind: KindSetMode, Mode: m} }

// Mutates reports whether the command may change the thermostat state or the
// relay outputs.
func (c Command) Mutates() bool {
	switch c.Kind {
	case KindHeat, KindCool, KindSetOffset, KindOff, KindSelfTest, KindRestart,
		KindReadTemperature, KindReadHumidity, KindSetUnit, KindSetDefaultTemperature, KindSetMode:
		return true
	default:
		return false
	}
}
