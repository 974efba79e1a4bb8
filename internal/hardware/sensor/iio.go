package sensor

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

const defaultIIODevice = "/sys/bus/iio/devices/iio:device0"

type IIOConfig struct {
	// Device is the sysfs directory of the kernel dht11 driver.
	Device string
}

// IIO reads a DHT11 through the Linux Industrial I/O sysfs interface. Each
// read triggers a fresh measurement in the kernel driver.
type IIO struct {
	dir string
}

func NewIIO(cfg IIOConfig) *IIO {
	dir := cfg.Device
	if dir == "" {
		dir = defaultIIODevice
	}
	return &IIO{dir: dir}
}

// ReadTemperature returns degrees Celsius.
func (s *IIO) ReadTemperature() (float64, error) {
	return s.readMilli("in_temp_input")
}

// ReadHumidity returns percent relative humidity.
func (s *IIO) ReadHumidity() (float64, error) {
	return s.readMilli("in_humidityrelative_input")
}

func (s *IIO) Close() error { return nil }

func (s *IIO) readMilli(name string) (float64, error) {
	b, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ports.ErrSensor, err)
	}
	v, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ports.ErrSensor, name, err)
	}
	return float64(v) / 1000, nil
}
