package metrics

import (
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Metrics exports the control loop to Prometheus. It implements
// loop.Observer.
type Metrics struct {
	deviceID string
	// lastUnit labels the temperature and setpoint series currently exported.
	lastUnit string

	temperature  *prometheus.GaugeVec
	humidity     *prometheus.GaugeVec
	setpoint     *prometheus.GaugeVec
	mode         *prometheus.GaugeVec
	relayState   *prometheus.GaugeVec
	polls        *prometheus.CounterVec
	sensorFaults *prometheus.CounterVec
	relayFaults  *prometheus.CounterVec
	commands     *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer, deviceID string) *Metrics {
	m := &Metrics{
		deviceID: deviceID,
		temperature: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thermorelay_temperature",
				Help: "Last temperature reading in the configured unit. NaN after a failed read.",
			},
			[]string{"id", "unit"}),
		humidity: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thermorelay_humidity",
				Help: "Last relative humidity reading in percent. NaN after a failed read.",
			},
			[]string{"id"},
		),
		setpoint: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thermorelay_setpoint",
				Help: "Current setpoint in the configured unit.",
			},
			[]string{"id", "unit"},
		),
		mode: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thermorelay_mode",
				Help: "1 for the active mode, 0 otherwise.",
			},
			[]string{"id", "mode"},
		),
		relayState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "thermorelay_relay_state",
				Help: "Current state of each relay (1 on, 0 off).",
			},
			[]string{"id", "relay"},
		),
		polls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thermorelay_polls_total",
				Help: "Number of sensor polls.",
			},
			[]string{"id"},
		),
		sensorFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thermorelay_sensor_faults_total",
				Help: "Number of failed sensor reads.",
			},
			[]string{"id", "reading"},
		),
		relayFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thermorelay_relay_faults_total",
				Help: "Number of relay apply steps with at least one failed write.",
			},
			[]string{"id"},
		),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thermorelay_commands_total",
				Help: "Commands handled, by kind and logical status.",
			},
			[]string{"id", "kind", "status"},
		),
	}
	reg.MustRegister(m.temperature)
	reg.MustRegister(m.humidity)
	reg.MustRegister(m.setpoint)
	reg.MustRegister(m.mode)
	reg.MustRegister(m.relayState)
	reg.MustRegister(m.polls)
	reg.MustRegister(m.sensorFaults)
	reg.MustRegister(m.relayFaults)
	reg.MustRegister(m.commands)
	return m
}

// NewRegistry returns a registry with the runtime collectors attached.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewBuildInfoCollector())
	reg.MustRegister(collectors.NewGoCollector())
	return reg
}

// Handler serves the registry in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

func (m *Metrics) Polled(s thermostat.Snapshot, tempErr, humErr error) {
	m.polls.WithLabelValues(m.deviceID).Inc()
	if tempErr != nil {
		m.sensorFaults.WithLabelValues(m.deviceID, "temperature").Inc()
	}
	if humErr != nil {
		m.sensorFaults.WithLabelValues(m.deviceID, "humidity").Inc()
	}
	m.observe(s)
}

func (m *Metrics) RelayFault(error) {
	m.relayFaults.WithLabelValues(m.deviceID).Inc()
}

func (m *Metrics) Command(kind command.Kind, status int) {
	m.commands.WithLabelValues(m.deviceID, kind.String(), strconv.Itoa(status)).Inc()
}

func (m *Metrics) observe(s thermostat.Snapshot) {
	unit := s.State.Unit.String()

	if t, ok := s.Temperature(); ok {
		m.temperature.WithLabelValues(m.deviceID, unit).Set(t)
	} else {
		m.temperature.WithLabelValues(m.deviceID, unit).Set(math.NaN())
	}
	if h, ok := s.Humidity(); ok {
		m.humidity.WithLabelValues(m.deviceID).Set(h)
	} else {
		m.humidity.WithLabelValues(m.deviceID).Set(math.NaN())
	}
	m.setpoint.WithLabelValues(m.deviceID, unit).Set(float64(s.State.Setpoint))
	if m.lastUnit != "" && m.lastUnit != unit {
		m.temperature.DeleteLabelValues(m.deviceID, m.lastUnit)
		m.setpoint.DeleteLabelValues(m.deviceID, m.lastUnit)
	}
	m.lastUnit = unit

	for _, md := range []thermostat.Mode{thermostat.ModeOff, thermostat.ModeHeat, thermostat.ModeCool} {
		m.mode.WithLabelValues(m.deviceID, md.String()).Set(boolFloat(s.State.Mode == md))
	}
	m.relayState.WithLabelValues(m.deviceID, "heat").Set(boolFloat(s.Outputs.Heat))
	m.relayState.WithLabelValues(m.deviceID, "cool").Set(boolFloat(s.Outputs.Cool))
	m.relayState.WithLabelValues(m.deviceID, "fan").Set(boolFloat(s.Outputs.Fan))
}

func boolFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
