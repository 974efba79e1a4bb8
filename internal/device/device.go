package device

import (
	"errors"
	"fmt"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Role names one of the three outputs.
type Role int

const (
	RoleHeat Role = iota
	RoleCool
	RoleFan
)

func (r Role) String() string {
	switch r {
	case RoleHeat:
		return "heat"
	case RoleCool:
		return "cool"
	case RoleFan:
		return "fan"
	default:
		return "unknown"
	}
}

// Roles lists the outputs in self-test order.
var Roles = []Role{RoleHeat, RoleCool, RoleFan}

// Device is the relay bank of one thermostat.
type Device struct {
	ID   string
	Heat ports.Relay
	Cool ports.Relay
	Fan  ports.Relay
}

func New(id string, heat, cool, fan ports.Relay) *Device {
	return &Device{ID: id, Heat: heat, Cool: cool, Fan: fan}
}

// Relay returns the output for a role.
func (d *Device) Relay(r Role) ports.Relay {
	switch r {
	case RoleHeat:
		return d.Heat
	case RoleCool:
		return d.Cool
	case RoleFan:
		return d.Fan
	default:
		return nil
	}
}

// Apply drives every relay to the desired value, whether or not it already
// holds it. A failing relay does not stop the others; all failures are
// returned joined.
func (d *Device) Apply(o thermostat.Outputs) error {
	var errs []error
	for _, r := range Roles {
		if err := d.Relay(r).Set(want(o, r)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", r, err))
		}
	}
	return errors.Join(errs...)
}

// AllOff forces every output off.
func (d *Device) AllOff() error {
	return d.Apply(thermostat.AllOff)
}

// State reports what the relays currently hold.
func (d *Device) State() thermostat.Outputs {
	return thermostat.Outputs{
		Heat: d.Heat.IsOn(),
		Cool: d.Cool.IsOn(),
		Fan:  d.Fan.IsOn(),
	}
}

func want(o thermostat.Outputs, r Role) bool {
	switch r {
	case RoleHeat:
		return o.Heat
	case RoleCool:
		return o.Cool
	case RoleFan:
		return o.Fan
	default:
		return false
	}
}
