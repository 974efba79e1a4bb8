package thermostat

import (
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		setpoint int
		temp     *float64
		want     Outputs
	}{
		{"no reading, off", ModeOff, 70, nil, AllOff},
		{"no reading, heat", ModeHeat, 70, nil, AllOff},
		{"no reading, cool", ModeCool, 70, nil, AllOff},
		{"heat below setpoint", ModeHeat, 70, ptr(65), Outputs{Heat: true, Fan: true}},
		{"heat above setpoint", ModeHeat, 70, ptr(75), AllOff},
		{"heat at setpoint", ModeHeat, 70, ptr(70), AllOff},
		{"heat just below setpoint", ModeHeat, 70, ptr(69.9), Outputs{Heat: true, Fan: true}},
		{"cool above setpoint", ModeCool, 70, ptr(75), Outputs{Cool: true, Fan: true}},
		{"cool below setpoint", ModeCool, 70, ptr(65), AllOff},
		{"cool at setpoint", ModeCool, 70, ptr(70), AllOff},
		{"off is off when cold", ModeOff, 70, ptr(40), AllOff},
		{"off is off when hot", ModeOff, 70, ptr(100), AllOff},
		{"unknown mode is off", ModeUnknown, 70, ptr(40), AllOff},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := State{Mode: tt.mode, Unit: UnitFahrenheit, Setpoint: tt.setpoint, LastTemperature: tt.temp}
			if got := Decide(s); got != tt.want {
				t.Fatalf("Decide() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestDecideInvariants(t *testing.T) {
	modes := []Mode{ModeOff, ModeHeat, ModeCool}
	temps := []*float64{nil}
	for v := -20.0; v <= 120; v += 0.5 {
		temps = append(temps, ptr(v))
	}

	for _, m := range modes {
		for sp := 30; sp <= 90; sp += 7 {
			for _, temp := range temps {
				s := State{Mode: m, Setpoint: sp, LastTemperature: temp}
				out := Decide(s)

				if out.Heat && out.Cool {
					t.Fatalf("heat and cool both on for %+v", s)
				}
				if out.Fan != (out.Heat != out.Cool) {
					t.Fatalf("fan=%v with heat=%v cool=%v", out.Fan, out.Heat, out.Cool)
				}
				if temp == nil {
					if out != AllOff {
						t.Fatalf("expected all off without reading, got %+v", out)
					}
					continue
				}
				if m == ModeHeat && out.Heat != (*temp < float64(sp)) {
					t.Fatalf("heat=%v for temp=%v setpoint=%d", out.Heat, *temp, sp)
				}
				if m == ModeCool && out.Cool != (*temp > float64(sp)) {
					t.Fatalf("cool=%v for temp=%v setpoint=%d", out.Cool, *temp, sp)
				}
				if m == ModeOff && out != AllOff {
					t.Fatalf("expected all off in off mode, got %+v", out)
				}
			}
		}
	}
}

func TestStoreGetSet(t *testing.T) {
	st := NewStore(Snapshot{})
	if _, ok := st.Get().Temperature(); ok {
		t.Fatal("expected no temperature in empty snapshot")
	}

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	st.Set(Snapshot{
		State:    State{Mode: ModeHeat, LastTemperature: ptr(65), LastHumidity: ptr(40)},
		Outputs:  Outputs{Heat: true, Fan: true},
		LastPoll: now,
	})

	got := st.Get()
	if v, ok := got.Temperature(); !ok || v != 65 {
		t.Fatalf("Temperature() = %v,%v want 65,true", v, ok)
	}
	if v, ok := got.Humidity(); !ok || v != 40 {
		t.Fatalf("Humidity() = %v,%v want 40,true", v, ok)
	}
	assertEqual(t, "outputs", got.Outputs, Outputs{Heat: true, Fan: true})
	assertEqual(t, "last poll", got.LastPoll, now)
}
