package thermostat

// State is the single source of truth for the controller. It is owned by the
// control loop and is not safe for concurrent use; other goroutines read the
// copies published to a Store.
type State struct {
	Mode         Mode
	Unit         Unit
	Setpoint     int
	SensorOffset int

	// LastTemperature is nil until the first successful read and after every
	// failed one. The pointee is never mutated, so copies may share it.
	LastTemperature *float64
	LastHumidity    *float64
}

// Defaults holds the power-on settings.
type Defaults struct {
	Mode         Mode
	Unit         Unit
	Setpoint     int
	SensorOffset int
}

// New returns the power-on state. Readings start empty.
func New(d Defaults) (State, error) {
	if !d.Mode.Valid() {
		return State{}, ErrInvalidMode
	}
	if !d.Unit.Valid() {
		return State{}, ErrInvalidUnit
	}
	return State{
		Mode:         d.Mode,
		Unit:         d.Unit,
		Setpoint:     d.Setpoint,
		SensorOffset: d.SensorOffset,
	}, nil
}

// CelsiusToFahrenheit converts degrees Celsius to degrees Fahrenheit.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Convert maps a raw Celsius reading into the state's unit. The sensor offset
// is only applied in Fahrenheit.
func (s *State) Convert(celsius float64) float64 {
	if s.Unit == UnitFahrenheit {
		return CelsiusToFahrenheit(celsius) + float64(s.SensorOffset)
	}
	return celsius
}

// RecordTemperature stores a successful reading and returns the converted value.
func (s *State) RecordTemperature(celsius float64) float64 {
	v := s.Convert(celsius)
	s.LastTemperature = &v
	return v
}

// ClearTemperature marks the last temperature read as failed.
func (s *State) ClearTemperature() {
	s.LastTemperature = nil
}

func (s *State) RecordHumidity(percent float64) float64 {
	v := percent
	s.LastHumidity = &v
	return v
}

func (s *State) ClearHumidity() {
	s.LastHumidity = nil
}
