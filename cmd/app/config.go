package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/Agrid-Dev/thermorelay/internal/hardware/relay"
	"github.com/Agrid-Dev/thermorelay/internal/hardware/sensor"
	"github.com/Agrid-Dev/thermorelay/internal/loop"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// EnvPrefix marks environment variables that override the config file.
const EnvPrefix = "THERMORELAY_"

type Config struct {
	DeviceID    string            `koanf:"device_id" yaml:"device_id"`
	Thermostat  ThermostatConfig  `koanf:"thermostat" yaml:"thermostat"`
	Loop        LoopConfig        `koanf:"loop" yaml:"loop"`
	Controllers ControllersConfig `koanf:"controllers" yaml:"controllers"`
	Metrics     MetricsConfig     `koanf:"metrics" yaml:"metrics"`
	Log         LogConfig         `koanf:"log" yaml:"log"`
	Hardware    HardwareConfig    `koanf:"hardware" yaml:"hardware"`
	Restart     RestartConfig     `koanf:"restart" yaml:"restart"`
}

// ThermostatConfig holds the power-on settings.
type ThermostatConfig struct {
	Mode         string `koanf:"mode" yaml:"mode"` // "off" | "heat" | "cool"
	Unit         string `koanf:"unit" yaml:"unit"` // "f" | "c"
	Setpoint     int    `koanf:"setpoint" yaml:"setpoint"`
	SensorOffset int    `koanf:"sensor_offset" yaml:"sensor_offset"`
}

type LoopConfig struct {
	PollInterval time.Duration `koanf:"poll_interval" yaml:"poll_interval"`
	AcceptSlice  time.Duration `koanf:"accept_slice" yaml:"accept_slice"`
	ReadTimeout  time.Duration `koanf:"read_timeout" yaml:"read_timeout"`
	SelfTestStep time.Duration `koanf:"self_test_step" yaml:"self_test_step"`
}

type ControllersConfig struct {
	TCP    TCPConfig    `koanf:"tcp" yaml:"tcp"`
	MQTT   MQTTConfig   `koanf:"mqtt" yaml:"mqtt"`
	Modbus ModbusConfig `koanf:"modbus" yaml:"modbus"`
}

// TCPConfig is the command socket.
type TCPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled" yaml:"enabled"`
	BrokerURL       string        `koanf:"broker_url" yaml:"broker_url"`
	ClientID        string        `koanf:"client_id" yaml:"client_id"`
	BaseTopic       string        `koanf:"base_topic" yaml:"base_topic"`
	QoS             byte          `koanf:"qos" yaml:"qos"`
	RetainSnapshot  bool          `koanf:"retain_snapshot" yaml:"retain_snapshot"`
	PublishInterval time.Duration `koanf:"publish_interval" yaml:"publish_interval"`
	CommandTimeout  time.Duration `koanf:"command_timeout" yaml:"command_timeout"`
	Username        string        `koanf:"username" yaml:"username"`
	Password        string        `koanf:"password" yaml:"password"`
}

type ModbusConfig struct {
	Enabled      bool          `koanf:"enabled" yaml:"enabled"`
	Addr         string        `koanf:"addr" yaml:"addr"`
	UnitID       byte          `koanf:"unit_id" yaml:"unit_id"`
	WriteTimeout time.Duration `koanf:"write_timeout" yaml:"write_timeout"`
}

// MetricsConfig is the side HTTP server: Prometheus, health and the JSON view.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level       string `koanf:"level" yaml:"level"`
	Development bool   `koanf:"development" yaml:"development"`
}

type HardwareConfig struct {
	Sensor SensorConfig `koanf:"sensor" yaml:"sensor"`
	Relays RelaysConfig `koanf:"relays" yaml:"relays"`
}

type SensorConfig struct {
	Driver string      `koanf:"driver" yaml:"driver"` // "iio" | "sht31" | "sim"
	IIO    IIOConfig   `koanf:"iio" yaml:"iio"`
	SHT31  SHT31Config `koanf:"sht31" yaml:"sht31"`
	Sim    SimConfig   `koanf:"sim" yaml:"sim"`
}

type IIOConfig struct {
	Device string `koanf:"device" yaml:"device"`
}

type SHT31Config struct {
	Bus  string `koanf:"bus" yaml:"bus"`
	Addr uint16 `koanf:"addr" yaml:"addr"`
}

type SimConfig struct {
	InitialTemperature float64 `koanf:"initial_temperature" yaml:"initial_temperature"`
	OutdoorTemperature float64 `koanf:"outdoor_temperature" yaml:"outdoor_temperature"`
	Coefficient        float64 `koanf:"coefficient" yaml:"coefficient"`
	HeatRate           float64 `koanf:"heat_rate" yaml:"heat_rate"`
	CoolRate           float64 `koanf:"cool_rate" yaml:"cool_rate"`
	Humidity           float64 `koanf:"humidity" yaml:"humidity"`
}

type RelaysConfig struct {
	Driver    string     `koanf:"driver" yaml:"driver"` // "gpiocdev" | "rpio" | "memory"
	Chip      string     `koanf:"chip" yaml:"chip"`
	ActiveLow bool       `koanf:"active_low" yaml:"active_low"`
	Pins      PinsConfig `koanf:"pins" yaml:"pins"`
}

type PinsConfig struct {
	Heat int `koanf:"heat" yaml:"heat"`
	Cool int `koanf:"cool" yaml:"cool"`
	Fan  int `koanf:"fan" yaml:"fan"`
}

type RestartConfig struct {
	Mode string `koanf:"mode" yaml:"mode"` // "exec" | "exit"
}

// Default is the configuration used when no file or environment overrides
// a key.
func Default() Config {
	return Config{
		DeviceID: "default",
		Thermostat: ThermostatConfig{
			Mode:     "off",
			Unit:     "f",
			Setpoint: 68,
		},
		Loop: LoopConfig{
			PollInterval: 5 * time.Second,
			AcceptSlice:  250 * time.Millisecond,
			ReadTimeout:  5 * time.Second,
			SelfTestStep: 1 * time.Second,
		},
		Controllers: ControllersConfig{
			TCP: TCPConfig{Addr: ":80"},
			MQTT: MQTTConfig{
				BrokerURL:       "tcp://localhost:1883",
				PublishInterval: 1 * time.Second,
				CommandTimeout:  10 * time.Second,
			},
			Modbus: ModbusConfig{
				Addr:         "127.0.0.1:1502",
				UnitID:       1,
				WriteTimeout: 10 * time.Second,
			},
		},
		Metrics: MetricsConfig{Addr: ":9100"},
		Log:     LogConfig{Level: "info"},
		Hardware: HardwareConfig{
			Sensor: SensorConfig{
				Driver: sensor.DriverIIO,
				IIO:    IIOConfig{Device: "/sys/bus/iio/devices/iio:device0"},
				SHT31:  SHT31Config{Bus: "/dev/i2c-1", Addr: 0x44},
				Sim: SimConfig{
					InitialTemperature: 18,
					OutdoorTemperature: 5,
					Coefficient:        0.0005,
					HeatRate:           0.02,
					CoolRate:           0.02,
					Humidity:           40,
				},
			},
			Relays: RelaysConfig{
				Driver: relay.DriverGPIOCDev,
				Chip:   "gpiochip0",
				Pins:   PinsConfig{Heat: 33, Cool: 25, Fan: 26},
			},
		},
		Restart: RestartConfig{Mode: "exec"},
	}
}

// LoadConfig layers defaults, the config file and THERMORELAY_* environment
// variables, in that order. A missing file is not an error.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.Environ)
}

func loadConfig(path string, environ func() []string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			var parser koanf.Parser
			ext := strings.ToLower(filepath.Ext(path))
			switch ext {
			case ".yaml", ".yml":
				parser = yaml.Parser()
			case ".json":
				parser = json.Parser()
			default:
				return Config{}, fmt.Errorf("unsupported config extension %q", ext)
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			return envKeyTransform(strings.TrimPrefix(key, EnvPrefix)), value
		},
		EnvironFunc: environ,
	}), nil)
	if err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// sections are the nested config keys, in env form. Everything after the
// longest matching section is the leaf key, which may itself contain
// underscores.
var sections = func() []string {
	s := []string{
		"thermostat", "loop", "metrics", "log", "restart",
		"controllers_tcp", "controllers_mqtt", "controllers_modbus",
		"hardware_sensor", "hardware_sensor_iio", "hardware_sensor_sht31", "hardware_sensor_sim",
		"hardware_relays", "hardware_relays_pins",
	}
	sort.Slice(s, func(i, j int) bool { return len(s[i]) > len(s[j]) })
	return s
}()

// envKeyTransform maps CONTROLLERS_MQTT_BROKER_URL to controllers.mqtt.broker_url.
// Keys that name no known section pass through lower-cased.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	for _, s := range sections {
		rest, ok := strings.CutPrefix(k, s+"_")
		if ok && rest != "" {
			return strings.ReplaceAll(s, "_", ".") + "." + rest
		}
	}
	return k
}

// Initial validates the thermostat section and returns the power-on state.
func (c Config) Initial() (thermostat.State, error) {
	mode, err := thermostat.ParseMode(c.Thermostat.Mode)
	if err != nil {
		return thermostat.State{}, fmt.Errorf("thermostat.mode: %w", err)
	}
	unit, err := thermostat.ParseUnit(c.Thermostat.Unit)
	if err != nil {
		return thermostat.State{}, fmt.Errorf("thermostat.unit: %w", err)
	}
	return thermostat.New(thermostat.Defaults{
		Mode:         mode,
		Unit:         unit,
		Setpoint:     c.Thermostat.Setpoint,
		SensorOffset: c.Thermostat.SensorOffset,
	})
}

func (c Config) LoopConfig() loop.Config {
	return loop.Config{
		PollInterval: c.Loop.PollInterval,
		AcceptSlice:  c.Loop.AcceptSlice,
		ReadTimeout:  c.Loop.ReadTimeout,
	}
}

func (c Config) SensorConfig() sensor.Config {
	s := c.Hardware.Sensor
	return sensor.Config{
		Driver: s.Driver,
		IIO:    sensor.IIOConfig{Device: s.IIO.Device},
		SHT31:  sensor.SHT31Config{Bus: s.SHT31.Bus, Addr: s.SHT31.Addr},
		Sim: sensor.SimParams{
			InitialTemperature: s.Sim.InitialTemperature,
			OutdoorTemperature: s.Sim.OutdoorTemperature,
			Coefficient:        s.Sim.Coefficient,
			HeatRate:           s.Sim.HeatRate,
			CoolRate:           s.Sim.CoolRate,
			Humidity:           s.Sim.Humidity,
		},
	}
}

func (c Config) RelayConfig() relay.Config {
	r := c.Hardware.Relays
	return relay.Config{
		Driver:    r.Driver,
		Chip:      r.Chip,
		ActiveLow: r.ActiveLow,
		Pins:      relay.Pins{Heat: r.Pins.Heat, Cool: r.Pins.Cool, Fan: r.Pins.Fan},
	}
}
