package testutil

import (
	"context"
	"net/http"
	"sync"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// FakeThermostatService is a reusable fake implementing command.Service.
// Put ONLY what multiple test packages need here.
type FakeThermostatService struct {
	mu sync.Mutex

	S thermostat.Snapshot

	Submitted []command.Command
	// Resp is returned by Submit; the zero value means a plain 200.
	Resp      command.Response
	SubmitErr error
}

func NewFakeThermostatService() *FakeThermostatService {
	temp, hum := 70.5, 40.0
	return &FakeThermostatService{
		S: thermostat.Snapshot{
			State: thermostat.State{
				Mode:            thermostat.ModeHeat,
				Unit:            thermostat.UnitFahrenheit,
				Setpoint:        68,
				LastTemperature: &temp,
				LastHumidity:    &hum,
			},
		},
	}
}

func (f *FakeThermostatService) Get() thermostat.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.S
}

func (f *FakeThermostatService) Submit(_ context.Context, cmd command.Command) (command.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Submitted = append(f.Submitted, cmd)
	if f.SubmitErr != nil {
		return command.Response{}, f.SubmitErr
	}
	if f.Resp.Status != 0 {
		return f.Resp, nil
	}
	return command.Response{
		Status:  http.StatusOK,
		Payload: map[string]any{"status": http.StatusOK},
	}, nil
}

// Last returns the last submitted command and whether there was one.
func (f *FakeThermostatService) Last() (command.Command, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.Submitted) == 0 {
		return command.Command{}, false
	}
	return f.Submitted[len(f.Submitted)-1], true
}

// Commands returns a copy of everything submitted so far.
func (f *FakeThermostatService) Commands() []command.Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]command.Command(nil), f.Submitted...)
}

// SetResponse changes what Submit returns while other goroutines use the fake.
func (f *FakeThermostatService) SetResponse(r command.Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Resp = r
}
