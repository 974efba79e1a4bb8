package command

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/thermorelay/internal/device"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Sensor is what the dispatcher needs for forced reads.
type Sensor interface {
	ReadTemperature() (float64, error)
	ReadHumidity() (float64, error)
}

// Dispatcher applies commands to a thermostat state. It is not safe for
// concurrent use: the caller owns the state it passes in.
type Dispatcher struct {
	sensor Sensor
	dev    *device.Device
	log    *zap.Logger

	selfTestStep time.Duration
	sleep        func(time.Duration)
}

type Option func(*Dispatcher)

// WithSelfTestStep sets the delay between self-test stages.
func WithSelfTestStep(d time.Duration) Option {
	return func(x *Dispatcher) { x.selfTestStep = d }
}

// WithSleep replaces time.Sleep, for tests.
func WithSleep(f func(time.Duration)) Option {
	return func(x *Dispatcher) { x.sleep = f }
}

func NewDispatcher(sensor Sensor, dev *device.Device, log *zap.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		sensor:       sensor,
		dev:          dev,
		log:          log,
		selfTestStep: time.Second,
		sleep:        time.Sleep,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle parses a request target and dispatches it.
func (d *Dispatcher) Handle(s *thermostat.State, target string) (Command, Response) {
	cmd, err := Parse(target)
	if err != nil {
		d.log.Debug("rejected request", zap.String("target", target), zap.Error(err))
		return cmd, ErrorResponse(err)
	}
	return cmd, d.Dispatch(s, cmd)
}

// Dispatch executes cmd against s.
func (d *Dispatcher) Dispatch(s *thermostat.State, cmd Command) Response {
	d.log.Debug("dispatch", zap.Stringer("kind", cmd.Kind), zap.Int("value", cmd.Value))

	switch cmd.Kind {
	case KindStatus:
		return ok(d.report(s))

	case KindHeat:
		s.Mode = thermostat.ModeHeat
		s.Setpoint = cmd.Value
		return ok(map[string]any{"mode": s.Mode.String(), "set_temperature": s.Setpoint})

	case KindCool:
		s.Mode = thermostat.ModeCool
		s.Setpoint = cmd.Value
		return ok(map[string]any{"mode": s.Mode.String(), "set_temperature": s.Setpoint})

	case KindSetOffset:
		s.SensorOffset = cmd.Value
		return ok(map[string]any{
			"message":      "DHT11 offset updated successfully",
			"dht11_offset": s.SensorOffset,
		})

	case KindReadOffset:
		return ok(map[string]any{"dht11_offset": s.SensorOffset})

	case KindOff:
		s.Mode = thermostat.ModeOff
		return ok(map[string]any{"mode": s.Mode.String(), "set_temperature": nil})

	case KindSelfTest:
		return d.selfTest(s)

	case KindRestart:
		s.Mode = thermostat.ModeOff
		if err := d.dev.AllOff(); err != nil {
			d.log.Warn("relays not all off before restart", zap.Error(err))
		}
		r := ok(map[string]any{"message": "System restarting..."})
		r.Restart = true
		return r

	case KindReadTemperature:
		c, err := d.sensor.ReadTemperature()
		if err != nil {
			s.ClearTemperature()
			d.log.Warn("temperature read failed", zap.Error(err))
			return failure(http.StatusInternalServerError, "Temperature reading failed")
		}
		v := s.RecordTemperature(c)
		return ok(map[string]any{"temperature": v, "unit": s.Unit.String()})

	case KindReadHumidity:
		h, err := d.sensor.ReadHumidity()
		if err != nil {
			s.ClearHumidity()
			d.log.Warn("humidity read failed", zap.Error(err))
			return failure(http.StatusInternalServerError, "Humidity reading failed")
		}
		return ok(map[string]any{"humidity": s.RecordHumidity(h)})

	case KindSetUnit:
		if !cmd.Unit.Valid() {
			return ErrorResponse(ErrInvalidUnit)
		}
		s.Unit = cmd.Unit
		return ok(map[string]any{
			"unit":    s.Unit.String(),
			"message": fmt.Sprintf("Temperature unit set to %s", s.Unit),
		})

	case KindSetDefaultTemperature:
		s.Setpoint = cmd.Value
		return ok(map[string]any{"default_temperature": s.Setpoint})

	case KindSetMode:
		if !cmd.Mode.Valid() {
			return failure(http.StatusBadRequest, "Invalid mode")
		}
		s.Mode = cmd.Mode
		if s.Mode == thermostat.ModeOff {
			return ok(map[string]any{"mode": s.Mode.String(), "set_temperature": nil})
		}
		return ok(map[string]any{"mode": s.Mode.String(), "set_temperature": s.Setpoint})

	case KindEmpty:
		return ErrorResponse(ErrEmptyRequest)

	default:
		return ErrorResponse(ErrUnknownEndpoint)
	}
}

func (d *Dispatcher) report(s *thermostat.State) map[string]any {
	return map[string]any{
		"temperature":         nullable(s.LastTemperature),
		"humidity":            nullable(s.LastHumidity),
		"unit":                s.Unit.String(),
		"default_temperature": s.Setpoint,
		"current_mode":        s.Mode.String(),
		"dht11_offset":        s.SensorOffset,
	}
}

// selfTest pulses each relay in turn, leaves them all off and reports fresh
// readings. The mode is untouched; the next poll re-applies the decision.
func (d *Dispatcher) selfTest(s *thermostat.State) Response {
	results := make(map[string]any, len(device.Roles))
	for i, role := range device.Roles {
		r := d.dev.Relay(role)
		result := "success"
		if err := r.Set(true); err != nil {
			result = "failed: " + err.Error()
		}
		d.sleep(d.selfTestStep)
		if err := r.Set(false); err != nil && result == "success" {
			result = "failed: " + err.Error()
		}
		if i < len(device.Roles)-1 {
			d.sleep(d.selfTestStep)
		}
		results[role.String()] = result
	}
	d.log.Info("self-test finished", zap.Any("relays", results))
	d.refresh(s)

	return ok(map[string]any{
		"message": "System test initiated",
		"test":    d.report(s),
		"relays":  results,
	})
}

// refresh takes fresh sensor readings into s. A failed read clears the
// stored value.
func (d *Dispatcher) refresh(s *thermostat.State) {
	if c, err := d.sensor.ReadTemperature(); err != nil {
		s.ClearTemperature()
		d.log.Warn("temperature read failed", zap.Error(err))
	} else {
		s.RecordTemperature(c)
	}
	if h, err := d.sensor.ReadHumidity(); err != nil {
		s.ClearHumidity()
		d.log.Warn("humidity read failed", zap.Error(err))
	} else {
		s.RecordHumidity(h)
	}
}

func nullable(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
