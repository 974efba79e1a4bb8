package thermostat

import (
	"math"
	"testing"
)

func assertError(t *testing.T, err error, expected error) {
	t.Helper()
	if err != expected {
		t.Fatalf("expected %v, got %v", expected, err)
	}
}

func assertEqual[T comparable](t *testing.T, name string, got, want T) {
	t.Helper()
	if got != want {
		t.Fatalf("%s: got %v, want %v", name, got, want)
	}
}

func almostEqual(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func newTestState(t *testing.T, opts ...func(*Defaults)) State {
	t.Helper()
	d := Defaults{
		Mode:     ModeOff,
		Unit:     UnitFahrenheit,
		Setpoint: 68,
	}
	for _, opt := range opts {
		opt(&d)
	}
	s, err := New(d)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return s
}

func TestNewDefaults(t *testing.T) {
	s := newTestState(t)
	assertEqual(t, "mode", s.Mode, ModeOff)
	assertEqual(t, "unit", s.Unit, UnitFahrenheit)
	assertEqual(t, "setpoint", s.Setpoint, 68)
	assertEqual(t, "offset", s.SensorOffset, 0)
	if s.LastTemperature != nil || s.LastHumidity != nil {
		t.Fatal("expected no readings before the first poll")
	}
}

func TestNewValidationInvalidMode(t *testing.T) {
	_, err := New(Defaults{Mode: Mode(999), Unit: UnitCelsius})
	assertError(t, err, ErrInvalidMode)
}

func TestNewValidationInvalidUnit(t *testing.T) {
	_, err := New(Defaults{Mode: ModeOff})
	assertError(t, err, ErrInvalidUnit)
}

func TestConvert(t *testing.T) {
	tests := []struct {
		name    string
		unit    Unit
		offset  int
		celsius float64
		want    float64
	}{
		{"fahrenheit freezing", UnitFahrenheit, 0, 0, 32},
		{"fahrenheit room", UnitFahrenheit, 0, 20, 68},
		{"fahrenheit with offset", UnitFahrenheit, 3, 20, 71},
		{"fahrenheit with negative offset", UnitFahrenheit, -2, 20, 66},
		{"celsius ignores offset", UnitCelsius, 3, 20, 20},
		{"celsius negative", UnitCelsius, 0, -4.5, -4.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t, func(d *Defaults) {
				d.Unit = tt.unit
				d.SensorOffset = tt.offset
			})
			if got := s.Convert(tt.celsius); !almostEqual(got, tt.want, 1e-9) {
				t.Fatalf("Convert(%v) = %v, want %v", tt.celsius, got, tt.want)
			}
		})
	}
}

func TestRecordAndClearTemperature(t *testing.T) {
	s := newTestState(t)
	got := s.RecordTemperature(25)
	if !almostEqual(got, 77, 1e-9) {
		t.Fatalf("RecordTemperature(25) = %v, want 77", got)
	}
	if s.LastTemperature == nil || *s.LastTemperature != got {
		t.Fatalf("LastTemperature = %v, want %v", s.LastTemperature, got)
	}

	prev := s.LastTemperature
	s.RecordTemperature(30)
	if *prev != got {
		t.Fatal("recording a new reading must not mutate earlier copies")
	}

	s.ClearTemperature()
	if s.LastTemperature != nil {
		t.Fatal("expected temperature cleared")
	}
}

func TestOffsetDoesNotTouchHumidity(t *testing.T) {
	s := newTestState(t, func(d *Defaults) { d.SensorOffset = 5 })
	if got := s.RecordHumidity(40); got != 40 {
		t.Fatalf("RecordHumidity(40) = %v, want 40", got)
	}
	s.ClearHumidity()
	if s.LastHumidity != nil {
		t.Fatal("expected humidity cleared")
	}
}

func TestChangingUnitKeepsSetpoint(t *testing.T) {
	s := newTestState(t)
	s.Setpoint = 70
	s.Unit = UnitCelsius
	assertEqual(t, "setpoint", s.Setpoint, 70)
}
