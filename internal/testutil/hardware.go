package testutil

import (
	"fmt"
	"sync"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

// Sample is one scripted sensor result.
type Sample struct {
	Value float64
	Err   error
}

// OK and Fail build samples.
func OK(v float64) Sample { return Sample{Value: v} }

func Fail() Sample { return Sample{Err: fmt.Errorf("%w: scripted failure", ports.ErrSensor)} }

// FakeSensor returns scripted readings. Each call consumes the next sample of
// its queue; once exhausted the last sample repeats. It is safe for
// concurrent use.
type FakeSensor struct {
	mu    sync.Mutex
	temps []Sample
	hums  []Sample
	ti    int
	hi    int

	TemperatureReads int
	HumidityReads    int
}

func NewFakeSensor(temps, hums []Sample) *FakeSensor {
	return &FakeSensor{temps: temps, hums: hums}
}

func (f *FakeSensor) ReadTemperature() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TemperatureReads++
	return next(f.temps, &f.ti)
}

func (f *FakeSensor) ReadHumidity() (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HumidityReads++
	return next(f.hums, &f.hi)
}

// Reads returns how many temperature reads happened so far.
func (f *FakeSensor) Reads() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.TemperatureReads
}

func next(q []Sample, i *int) (float64, error) {
	if len(q) == 0 {
		return 0, fmt.Errorf("%w: no samples configured", ports.ErrSensor)
	}
	s := q[*i]
	if *i < len(q)-1 {
		*i++
	}
	return s.Value, s.Err
}

// FakeRelay records every Set call.
type FakeRelay struct {
	mu      sync.Mutex
	on      bool
	history []bool

	// SetErr, if set, is returned by Set and the value is left unchanged.
	SetErr error
}

func (r *FakeRelay) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.SetErr != nil {
		return r.SetErr
	}
	r.on = on
	r.history = append(r.history, on)
	return nil
}

func (r *FakeRelay) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// History returns a copy of the values written so far.
func (r *FakeRelay) History() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.history...)
}

// Fail makes subsequent writes fail with ports.ErrRelay.
func (r *FakeRelay) Fail() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.SetErr = fmt.Errorf("%w: scripted failure", ports.ErrRelay)
}
