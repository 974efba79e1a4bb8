package sensor

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/thermorelay/internal/hardware/relay"
	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

func almostEqual(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestIIO(t *testing.T) {
	dir := t.TempDir()
	write := func(name, v string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, name), []byte(v), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	s := NewIIO(IIOConfig{Device: dir})

	if _, err := s.ReadTemperature(); !errors.Is(err, ports.ErrSensor) {
		t.Fatalf("missing file err=%v want ErrSensor", err)
	}

	write("in_temp_input", "21500\n")
	write("in_humidityrelative_input", "43000\n")
	temp, err := s.ReadTemperature()
	if err != nil || !almostEqual(temp, 21.5) {
		t.Fatalf("ReadTemperature=%v,%v want 21.5", temp, err)
	}
	hum, err := s.ReadHumidity()
	if err != nil || !almostEqual(hum, 43) {
		t.Fatalf("ReadHumidity=%v,%v want 43", hum, err)
	}

	write("in_temp_input", "garbage")
	if _, err := s.ReadTemperature(); !errors.Is(err, ports.ErrSensor) {
		t.Fatalf("garbage err=%v want ErrSensor", err)
	}
}

func TestCRC8(t *testing.T) {
	// Example from the SHT3x datasheet.
	if got := crc8([]byte{0xBE, 0xEF}); got != 0x92 {
		t.Fatalf("crc8(0xBEEF)=%#x want 0x92", got)
	}
}

func frame(tempRaw, humRaw uint16) []byte {
	b := make([]byte, 6)
	binary.BigEndian.PutUint16(b[0:2], tempRaw)
	b[2] = crc8(b[0:2])
	binary.BigEndian.PutUint16(b[3:5], humRaw)
	b[5] = crc8(b[3:5])
	return b
}

func TestDecodeSHT31(t *testing.T) {
	temp, hum, err := decodeSHT31(frame(0, 65535))
	if err != nil {
		t.Fatal(err)
	}
	if !almostEqual(temp, -45) || !almostEqual(hum, 100) {
		t.Fatalf("got %v, %v want -45, 100", temp, hum)
	}

	bad := frame(0x6666, 0x8000)
	bad[5] ^= 0xFF
	if _, _, err := decodeSHT31(bad); !errors.Is(err, errCRC) {
		t.Fatalf("err=%v want crc mismatch", err)
	}
	if _, _, err := decodeSHT31(bad[:4]); err == nil {
		t.Fatal("short frame accepted")
	}
}

type fakeBus struct {
	frame  []byte
	err    error
	writes int
}

func (f *fakeBus) Tx(w, r []byte) error {
	if f.err != nil {
		return f.err
	}
	if w != nil {
		f.writes++
	}
	copy(r, f.frame)
	return nil
}

func TestSHT31_Read(t *testing.T) {
	bus := &fakeBus{frame: frame(0, 32768)}
	now := time.Unix(0, 0)
	s := newSHT31(bus)
	s.now = func() time.Time { return now }
	s.sleep = func(time.Duration) {}

	temp, err := s.ReadTemperature()
	if err != nil || !almostEqual(temp, -45) {
		t.Fatalf("ReadTemperature=%v,%v", temp, err)
	}
	hum, err := s.ReadHumidity()
	if err != nil || math.Abs(hum-50) > 0.01 {
		t.Fatalf("ReadHumidity=%v,%v", hum, err)
	}
	if bus.writes != 1 {
		t.Fatalf("measurements=%d want 1 (humidity reuses the fresh sample)", bus.writes)
	}

	now = now.Add(2 * sampleMaxAge)
	if _, err := s.ReadHumidity(); err != nil {
		t.Fatal(err)
	}
	if bus.writes != 2 {
		t.Fatalf("measurements=%d want 2 after the sample aged out", bus.writes)
	}

	bus.err = errors.New("nack")
	if _, err := s.ReadTemperature(); !errors.Is(err, ports.ErrSensor) {
		t.Fatalf("bus failure err=%v want ErrSensor", err)
	}
	if _, err := s.ReadHumidity(); !errors.Is(err, ports.ErrSensor) {
		t.Fatalf("humidity after failed sample err=%v want ErrSensor", err)
	}
}

func TestSimParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		params SimParams
		want   error
	}{
		{"valid", SimParams{OutdoorTemperature: 10, Coefficient: 5}, nil},
		{"negative coefficient", SimParams{OutdoorTemperature: 10, Coefficient: -5}, ErrNegativeHeatLossCoefficient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.params.Validate(); got != tt.want {
				t.Errorf("Got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSim(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }
	heat, cool := relay.NewMemory(), relay.NewMemory()

	tests := []struct {
		name       string
		params     SimParams
		heat, cool bool
		want       float64
	}{
		{"loses heat to colder outdoors", SimParams{InitialTemperature: 20, OutdoorTemperature: 0, Coefficient: 0.01}, false, false, 18},
		{"gains heat from warmer outdoors", SimParams{InitialTemperature: 20, OutdoorTemperature: 30, Coefficient: 0.01}, false, false, 21},
		{"heating", SimParams{InitialTemperature: 20, OutdoorTemperature: 20, HeatRate: 0.1}, true, false, 21},
		{"cooling", SimParams{InitialTemperature: 20, OutdoorTemperature: 20, CoolRate: 0.2}, false, true, 18},
		{"idle without loss", SimParams{InitialTemperature: 20, HeatRate: 1, CoolRate: 1}, false, false, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now = time.Unix(0, 0)
			_ = heat.Set(tt.heat)
			_ = cool.Set(tt.cool)
			s, err := NewSim(tt.params, heat, cool, WithSimClock(clock))
			if err != nil {
				t.Fatal(err)
			}
			now = now.Add(10 * time.Second)
			got, err := s.ReadTemperature()
			if err != nil || !almostEqual(got, tt.want) {
				t.Fatalf("ReadTemperature=%v,%v want %v", got, err, tt.want)
			}
		})
	}
}

func TestOpen(t *testing.T) {
	s, err := Open(Config{Driver: DriverSim, Sim: SimParams{InitialTemperature: 19, Humidity: 35}}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if h, _ := s.ReadHumidity(); h != 35 {
		t.Fatalf("humidity=%v want 35", h)
	}
	if _, err := Open(Config{Driver: "dht22"}, nil, nil); !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err=%v want ErrUnknownDriver", err)
	}
}
