package sensor

import (
	"errors"
	"sync"
	"time"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

var ErrNegativeHeatLossCoefficient = errors.New("heat loss coefficient must be >= 0")

// SimParams describe the simulated room. Temperatures are Celsius and rates
// are degrees per second.
type SimParams struct {
	InitialTemperature float64
	OutdoorTemperature float64
	Coefficient        float64 // >= 0, represents conductivity. 0 for no loss.
	HeatRate           float64
	CoolRate           float64
	Humidity           float64
}

func (p *SimParams) Validate() error {
	if p.Coefficient < 0 {
		return ErrNegativeHeatLossCoefficient
	}
	return nil
}

// Sim is a room that loses heat to the outdoors and is warmed or cooled while
// the matching relay is on.
type Sim struct {
	mu     sync.Mutex
	params SimParams
	heat   ports.Relay
	cool   ports.Relay
	now    func() time.Time

	temp float64
	last time.Time
}

type SimOption func(*Sim)

func WithSimClock(now func() time.Time) SimOption {
	return func(s *Sim) { s.now = now }
}

// NewSim returns a room at params.InitialTemperature. heat and cool may be
// nil.
func NewSim(params SimParams, heat, cool ports.Relay, opts ...SimOption) (*Sim, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	s := &Sim{params: params, heat: heat, cool: cool, now: time.Now, temp: params.InitialTemperature}
	for _, opt := range opts {
		opt(s)
	}
	s.last = s.now()
	return s, nil
}

// DeltaTemperature is the heat exchanged with the outdoors over dt.
func (s *Sim) DeltaTemperature(indoor float64, dt time.Duration) float64 {
	diff := s.params.OutdoorTemperature - indoor
	return s.params.Coefficient * diff * dt.Seconds()
}

func (s *Sim) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.advance()
	return s.temp, nil
}

func (s *Sim) ReadHumidity() (float64, error) {
	return s.params.Humidity, nil
}

func (s *Sim) Close() error { return nil }

func (s *Sim) advance() {
	now := s.now()
	dt := now.Sub(s.last)
	s.last = now
	if dt <= 0 {
		return
	}
	delta := s.DeltaTemperature(s.temp, dt)
	if s.heat != nil && s.heat.IsOn() {
		delta += s.params.HeatRate * dt.Seconds()
	}
	if s.cool != nil && s.cool.IsOn() {
		delta -= s.params.CoolRate * dt.Seconds()
	}
	s.temp += delta
}
