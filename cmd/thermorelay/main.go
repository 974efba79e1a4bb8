package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/Agrid-Dev/thermorelay/cmd/app"
	"github.com/Agrid-Dev/thermorelay/internal/command"
	httpctrl "github.com/Agrid-Dev/thermorelay/internal/controllers/http"
	modbusctrl "github.com/Agrid-Dev/thermorelay/internal/controllers/modbus"
	mqttctrl "github.com/Agrid-Dev/thermorelay/internal/controllers/mqtt"
	"github.com/Agrid-Dev/thermorelay/internal/device"
	"github.com/Agrid-Dev/thermorelay/internal/hardware/relay"
	"github.com/Agrid-Dev/thermorelay/internal/hardware/sensor"
	"github.com/Agrid-Dev/thermorelay/internal/loop"
	"github.com/Agrid-Dev/thermorelay/internal/metrics"
	"github.com/Agrid-Dev/thermorelay/internal/system"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

func main() {
	var configPath string
	var printConfig bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config file (.yaml/.yml/.json)")
	flag.BoolVar(&printConfig, "print-config", false, "print the effective config as YAML and exit")
	flag.Parse()

	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if printConfig {
		enc := yaml.NewEncoder(os.Stdout)
		if err := enc.Encode(cfg); err != nil {
			log.Fatal(err)
		}
		_ = enc.Close()
		return
	}

	logger, err := app.NewLogger(cfg.Log)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	restarter, err := system.NewRestarter(cfg.Restart.Mode, logger)
	if err != nil {
		logger.Fatal("invalid restart config", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = run(ctx, cfg, logger)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		logger.Info("stopped")
	case errors.Is(err, loop.ErrRestartRequested):
		_ = restarter.Restart("restart command")
	case errors.Is(err, errTransport):
		logger.Error("fatal transport fault", zap.Error(err))
		_ = restarter.Restart(err.Error())
	default:
		logger.Fatal("startup failed", zap.Error(err))
	}
}

// errTransport marks failures of the command socket. They are answered with a
// restart, like the watchdog reset of a device.
var errTransport = errors.New("transport fault")

// run wires the hardware, the control loop and the side controllers, and
// blocks until the loop stops.
func run(ctx context.Context, cfg app.Config, logger *zap.Logger) error {
	initial, err := cfg.Initial()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	relays, err := relay.Open(cfg.RelayConfig())
	if err != nil {
		return fmt.Errorf("open relays: %w", err)
	}
	defer func() { _ = relays.Close() }()

	src, err := sensor.Open(cfg.SensorConfig(), relays.Heat, relays.Cool)
	if err != nil {
		return fmt.Errorf("open sensor: %w", err)
	}
	defer func() { _ = src.Close() }()

	dev := device.New(cfg.DeviceID, relays.Heat, relays.Cool, relays.Fan)
	if err := dev.AllOff(); err != nil {
		logger.Warn("initial relay reset", zap.Error(err))
	}

	disp := command.NewDispatcher(src, dev, logger, command.WithSelfTestStep(cfg.Loop.SelfTestStep))
	store := thermostat.NewStore(thermostat.Snapshot{State: initial})

	reg := metrics.NewRegistry()
	m := metrics.NewMetrics(reg, cfg.DeviceID)

	l := loop.New(cfg.LoopConfig(), initial, src, dev, disp, store, logger, loop.WithObserver(m))

	ln, err := net.Listen("tcp", cfg.Controllers.TCP.Addr)
	if err != nil {
		return fmt.Errorf("%w: listen %s: %w", errTransport, cfg.Controllers.TCP.Addr, err)
	}
	tcpLn, ok := ln.(*net.TCPListener)
	if !ok {
		_ = ln.Close()
		return fmt.Errorf("%w: listen %s: not a TCP listener", errTransport, cfg.Controllers.TCP.Addr)
	}
	defer func() { _ = tcpLn.Close() }()
	logger.Info("command socket listening", zap.String("addr", tcpLn.Addr().String()))

	sideCtx, stopSide := context.WithCancel(ctx)
	var wg sync.WaitGroup
	start := func(name string, runFn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runFn(sideCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("controller stopped", zap.String("controller", name), zap.Error(err))
			}
		}()
	}

	if cfg.Controllers.MQTT.Enabled {
		mc := cfg.Controllers.MQTT
		ctrl, err := mqttctrl.New(l, mqttctrl.Config{
			DeviceID:        cfg.DeviceID,
			BrokerURL:       mc.BrokerURL,
			ClientID:        mc.ClientID,
			BaseTopic:       mc.BaseTopic,
			QoS:             mc.QoS,
			RetainSnapshot:  mc.RetainSnapshot,
			PublishInterval: mc.PublishInterval,
			CommandTimeout:  mc.CommandTimeout,
			Username:        mc.Username,
			Password:        mc.Password,
		}, logger)
		if err != nil {
			stopSide()
			return fmt.Errorf("mqtt: %w", err)
		}
		start("mqtt", ctrl.Run)
	}

	if cfg.Controllers.Modbus.Enabled {
		bc := cfg.Controllers.Modbus
		ctrl, err := modbusctrl.New(l, modbusctrl.Config{
			DeviceID:     cfg.DeviceID,
			Addr:         bc.Addr,
			UnitID:       bc.UnitID,
			WriteTimeout: bc.WriteTimeout,
		}, logger)
		if err != nil {
			stopSide()
			wg.Wait()
			return fmt.Errorf("modbus: %w", err)
		}
		start("modbus", ctrl.Run)
	}

	if cfg.Metrics.Enabled {
		srv := httpctrl.New(l, cfg.Metrics.Addr, cfg.DeviceID, metrics.Handler(reg))
		logger.Info("metrics listening", zap.String("addr", cfg.Metrics.Addr))
		start("http", srv.Run)
	}

	err = l.Run(ctx, tcpLn)
	stopSide()
	wg.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, loop.ErrRestartRequested) {
		return fmt.Errorf("%w: %w", errTransport, err)
	}
	return err
}
