// Package sensor provides the room temperature and humidity sources.
package sensor

import (
	"errors"
	"fmt"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

// Drivers
const (
	DriverIIO   = "iio"
	DriverSHT31 = "sht31"
	DriverSim   = "sim"
)

var ErrUnknownDriver = errors.New("sensor: unknown driver")

type Config struct {
	Driver string
	IIO    IIOConfig
	SHT31  SHT31Config
	Sim    SimParams
}

// Source is a sensor that may hold a hardware resource.
type Source interface {
	ports.Sensor
	Close() error
}

// Open builds the sensor named by cfg.Driver. heat and cool are only used by
// the simulated room, which warms and cools with them.
func Open(cfg Config, heat, cool ports.Relay) (Source, error) {
	switch cfg.Driver {
	case DriverIIO, "":
		return NewIIO(cfg.IIO), nil
	case DriverSHT31:
		s, err := OpenSHT31(cfg.SHT31)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverSim:
		s, err := NewSim(cfg.Sim, heat, cool)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownDriver, cfg.Driver)
	}
}
