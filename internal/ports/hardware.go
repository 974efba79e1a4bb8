package ports

import "errors"

var (
	// ErrSensor marks a failed measurement. It is never fatal.
	ErrSensor = errors.New("sensor read failed")
	// ErrRelay marks a failed relay write.
	ErrRelay = errors.New("relay write failed")
)

// Sensor measures the room. Temperature is always reported in Celsius and
// humidity in percent. Implementations wrap failures with ErrSensor.
type Sensor interface {
	ReadTemperature() (float64, error)
	ReadHumidity() (float64, error)
}

// Relay drives one physical output. Set must tolerate being called with the
// current value. Implementations wrap failures with ErrRelay.
type Relay interface {
	Set(on bool) error
	IsOn() bool
}
