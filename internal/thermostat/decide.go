package thermostat

// Outputs is the desired state of the three relays.
type Outputs struct {
	Heat bool
	Cool bool
	Fan  bool
}

// AllOff is the safe output set.
var AllOff = Outputs{}

// Decide maps the state to relay outputs. Comparison against the setpoint is
// strict: a reading equal to the setpoint never turns anything on. Without a
// temperature reading everything is off whatever the mode.
func Decide(s State) Outputs {
	if s.LastTemperature == nil {
		return AllOff
	}
	t := *s.LastTemperature
	sp := float64(s.Setpoint)

	switch s.Mode {
	case ModeHeat:
		if t < sp {
			return Outputs{Heat: true, Fan: true}
		}
	case ModeCool:
		if t > sp {
			return Outputs{Cool: true, Fan: true}
		}
	}
	return AllOff
}
