package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

var errCRC = errors.New("crc mismatch")

type SHT31Config struct {
	Bus  string // e.g. "/dev/i2c-1"; empty opens the first bus
	Addr uint16 // 0x44 or 0x45
}

// single-shot, high repeatability, no clock stretching
var measureCmd = []byte{0x2C, 0x06}

const (
	measureWait = 15 * time.Millisecond
	// A humidity read within this window of a temperature read reuses its
	// measurement.
	sampleMaxAge = time.Second
)

type txer interface {
	Tx(w, r []byte) error
}

// SHT31 is a Sensirion SHT31-D on an I2C bus.
type SHT31 struct {
	mu    sync.Mutex
	dev   txer
	close func() error
	now   func() time.Time
	sleep func(time.Duration)

	temp, hum float64
	sampled   time.Time
}

func OpenSHT31(cfg SHT31Config) (*SHT31, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initialize periph: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c %q: %w", cfg.Bus, err)
	}
	addr := cfg.Addr
	if addr == 0 {
		addr = 0x44
	}
	s := newSHT31(&i2c.Dev{Bus: bus, Addr: addr})
	s.close = bus.Close
	return s, nil
}

func newSHT31(dev txer) *SHT31 {
	return &SHT31{
		dev:   dev,
		close: func() error { return nil },
		now:   time.Now,
		sleep: time.Sleep,
	}
}

// ReadTemperature always takes a new measurement.
func (s *SHT31) ReadTemperature() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.measure(); err != nil {
		return 0, err
	}
	return s.temp, nil
}

func (s *SHT31) ReadHumidity() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sampled.IsZero() || s.now().Sub(s.sampled) > sampleMaxAge {
		if err := s.measure(); err != nil {
			return 0, err
		}
	}
	return s.hum, nil
}

func (s *SHT31) Close() error { return s.close() }

func (s *SHT31) measure() error {
	s.sampled = time.Time{}
	if err := s.dev.Tx(measureCmd, nil); err != nil {
		return fmt.Errorf("%w: send command: %v", ports.ErrSensor, err)
	}
	s.sleep(measureWait)

	data := make([]byte, 6)
	if err := s.dev.Tx(nil, data); err != nil {
		return fmt.Errorf("%w: read data: %v", ports.ErrSensor, err)
	}
	t, h, err := decodeSHT31(data)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrSensor, err)
	}
	s.temp, s.hum, s.sampled = t, h, s.now()
	return nil
}

// decodeSHT31 converts a 6 byte measurement frame (temperature, crc,
// humidity, crc) to degrees Celsius and percent.
func decodeSHT31(data []byte) (float64, float64, error) {
	if len(data) != 6 {
		return 0, 0, fmt.Errorf("short frame: %d bytes", len(data))
	}
	if crc8(data[0:2]) != data[2] {
		return 0, 0, fmt.Errorf("temperature: %w", errCRC)
	}
	if crc8(data[3:5]) != data[5] {
		return 0, 0, fmt.Errorf("humidity: %w", errCRC)
	}
	tempRaw := binary.BigEndian.Uint16(data[0:2])
	humRaw := binary.BigEndian.Uint16(data[3:5])
	return float64(tempRaw)*175.0/65535.0 - 45.0, float64(humRaw) * 100.0 / 65535.0, nil
}

// crc8 is the Sensirion checksum: polynomial 0x31, init 0xFF.
func crc8(b []byte) byte {
	crc := byte(0xFF)
	for _, v := range b {
		crc ^= v
		for range 8 {
			if crc&0x80 != 0 {
				crc = crc<<1 ^ 0x31
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
