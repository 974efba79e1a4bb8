package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/device"
	"github.com/Agrid-Dev/thermorelay/internal/hardware/relay"
	"github.com/Agrid-Dev/thermorelay/internal/hardware/sensor"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

type TimedCommand struct {
	IterationNumber int
	Command         command.Command
}

// SimulateThermostat runs the decision rule against the simulated room, one
// poll per simulated pollInterval, and writes the trajectory as CSV.
func SimulateThermostat(iterations int, pollInterval time.Duration, filename string, commands []TimedCommand) error {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	heat, cool, fan := relay.NewMemory(), relay.NewMemory(), relay.NewMemory()
	room, err := sensor.NewSim(sensor.SimParams{
		InitialTemperature: 15,
		OutdoorTemperature: 5,
		Coefficient:        1.e-4,
		HeatRate:           0.005,
		CoolRate:           0.005,
		Humidity:           40,
	}, heat, cool, sensor.WithSimClock(clock))
	if err != nil {
		return fmt.Errorf("failed to create room: %v", err)
	}

	dev := device.New("sim", heat, cool, fan)
	disp := command.NewDispatcher(room, dev, zap.NewNop())

	state, err := thermostat.New(thermostat.Defaults{
		Mode:     thermostat.ModeHeat,
		Unit:     thermostat.UnitCelsius,
		Setpoint: 20,
	})
	if err != nil {
		return fmt.Errorf("failed to create thermostat: %v", err)
	}

	// Create CSV file
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write CSV header
	if err := writer.Write([]string{"Iteration", "Seconds", "Temperature", "Setpoint", "Mode", "Heat", "Cool", "Fan"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for i := range iterations {
		for _, tc := range commands {
			if tc.IterationNumber == i+1 {
				if resp := disp.Dispatch(&state, tc.Command); !resp.OK() {
					return fmt.Errorf("command %s failed: %v", tc.Command.Kind, resp.Payload)
				}
			}
		}

		c, err := room.ReadTemperature()
		if err != nil {
			state.ClearTemperature()
		} else {
			state.RecordTemperature(c)
		}
		out := thermostat.Decide(state)
		if err := dev.Apply(out); err != nil {
			return fmt.Errorf("failed to apply outputs: %v", err)
		}

		temp, _ := thermostat.Snapshot{State: state}.Temperature()
		if err := writer.Write([]string{
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%.0f", now.Sub(time.Unix(0, 0)).Seconds()),
			fmt.Sprintf("%.2f", temp),
			fmt.Sprintf("%d", state.Setpoint),
			state.Mode.String(),
			fmt.Sprintf("%t", out.Heat),
			fmt.Sprintf("%t", out.Cool),
			fmt.Sprintf("%t", out.Fan),
		}); err != nil {
			return fmt.Errorf("failed to write CSV record: %v", err)
		}

		now = now.Add(pollInterval)
	}

	return nil
}

func main() {
	commands := []TimedCommand{
		{IterationNumber: 400, Command: command.SetDefaultTemperature(22)},
		{IterationNumber: 800, Command: command.Cool(18)},
	}
	if err := SimulateThermostat(1200, 5*time.Second, "thermorelay.csv", commands); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
