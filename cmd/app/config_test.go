package app

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

func TestEnvKeyTransform_TopLevel(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"DEVICE_ID", "device_id"},
		{"CONTROLLER", "controller"},
		{"ADDR", "addr"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Controllers(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CONTROLLERS_TCP_ADDR", "controllers.tcp.addr"},
		{"CONTROLLERS_MQTT_PUBLISH_INTERVAL", "controllers.mqtt.publish_interval"},
		{"CONTROLLERS_MODBUS_UNIT_ID", "controllers.modbus.unit_id"},
		{"CONTROLLERS_MQTT", "controllers_mqtt"}, // not enough parts -> fallback
		{"controllers_MQTT_broker_url", "controllers.mqtt.broker_url"},
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEnvKeyTransform_Sections(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"THERMOSTAT_SENSOR_OFFSET", "thermostat.sensor_offset"},
		{"LOOP_POLL_INTERVAL", "loop.poll_interval"},
		{"LOG_LEVEL", "log.level"},
		{"HARDWARE_SENSOR_DRIVER", "hardware.sensor.driver"},
		{"HARDWARE_SENSOR_SIM_OUTDOOR_TEMPERATURE", "hardware.sensor.sim.outdoor_temperature"},
		{"HARDWARE_RELAYS_ACTIVE_LOW", "hardware.relays.active_low"},
		{"HARDWARE_RELAYS_PINS_FAN", "hardware.relays.pins.fan"},
		{"THERMOSTAT", "thermostat"}, // not enough parts -> passthrough
	}

	for _, tt := range tests {
		got := envKeyTransform(tt.in)
		if got != tt.want {
			t.Fatalf("envKeyTransform(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func noEnv() []string { return nil }

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"), noEnv)
	if err != nil {
		t.Fatal(err)
	}
	want := Default()
	if cfg.DeviceID != want.DeviceID || cfg.Controllers.TCP.Addr != ":80" {
		t.Fatalf("got %+v", cfg)
	}
	if cfg.Loop.PollInterval != 5*time.Second || cfg.Hardware.Relays.Pins.Fan != 26 {
		t.Fatalf("loop=%+v pins=%+v", cfg.Loop, cfg.Hardware.Relays.Pins)
	}
	if cfg.Controllers.Modbus.UnitID != 1 || cfg.Hardware.Sensor.SHT31.Addr != 0x44 {
		t.Fatalf("modbus=%+v sht31=%+v", cfg.Controllers.Modbus, cfg.Hardware.Sensor.SHT31)
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yml := `
device_id: hallway
thermostat:
  mode: heat
  setpoint: 70
loop:
  poll_interval: 2s
controllers:
  mqtt:
    enabled: true
    base_topic: home/hallway
hardware:
  relays:
    driver: memory
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	environ := func() []string {
		return []string{
			"THERMORELAY_THERMOSTAT_SETPOINT=72",
			"THERMORELAY_CONTROLLERS_TCP_ADDR=:8080",
			"THERMORELAY_HARDWARE_SENSOR_DRIVER=sim",
			"UNRELATED=1",
		}
	}

	cfg, err := loadConfig(path, environ)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DeviceID != "hallway" || cfg.Thermostat.Mode != "heat" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.Thermostat.Setpoint != 72 {
		t.Fatalf("setpoint=%d want env override 72", cfg.Thermostat.Setpoint)
	}
	if cfg.Thermostat.Unit != "f" {
		t.Fatalf("unit=%q want default kept", cfg.Thermostat.Unit)
	}
	if cfg.Loop.PollInterval != 2*time.Second || cfg.Loop.AcceptSlice != 250*time.Millisecond {
		t.Fatalf("loop=%+v", cfg.Loop)
	}
	if !cfg.Controllers.MQTT.Enabled || cfg.Controllers.MQTT.BaseTopic != "home/hallway" {
		t.Fatalf("mqtt=%+v", cfg.Controllers.MQTT)
	}
	if cfg.Controllers.TCP.Addr != ":8080" || cfg.Hardware.Sensor.Driver != "sim" || cfg.Hardware.Relays.Driver != "memory" {
		t.Fatalf("tcp=%q sensor=%q relays=%q", cfg.Controllers.TCP.Addr, cfg.Hardware.Sensor.Driver, cfg.Hardware.Relays.Driver)
	}
}

func TestLoadConfig_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"thermostat":{"unit":"c","setpoint":20}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := loadConfig(path, noEnv)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Thermostat.Unit != "c" || cfg.Thermostat.Setpoint != 20 {
		t.Fatalf("thermostat=%+v", cfg.Thermostat)
	}
}

func TestLoadConfig_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path, noEnv); err == nil {
		t.Fatal("expected error for .toml")
	}
}

func TestInitial(t *testing.T) {
	cfg := Default()
	s, err := cfg.Initial()
	if err != nil {
		t.Fatal(err)
	}
	if s.Mode != thermostat.ModeOff || s.Unit != thermostat.UnitFahrenheit || s.Setpoint != 68 {
		t.Fatalf("initial=%+v", s)
	}
	if s.LastTemperature != nil || s.LastHumidity != nil {
		t.Fatal("readings must start empty")
	}

	cfg.Thermostat.Mode = "auto"
	if _, err := cfg.Initial(); !errors.Is(err, thermostat.ErrInvalidMode) {
		t.Fatalf("err=%v want ErrInvalidMode", err)
	}
	cfg = Default()
	cfg.Thermostat.Unit = "k"
	if _, err := cfg.Initial(); !errors.Is(err, thermostat.ErrInvalidUnit) {
		t.Fatalf("err=%v want ErrInvalidUnit", err)
	}
}

func TestNewLogger(t *testing.T) {
	if _, err := NewLogger(LogConfig{Level: "debug", Development: true}); err != nil {
		t.Fatal(err)
	}
	if _, err := NewLogger(LogConfig{Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
