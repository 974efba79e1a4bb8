package modbusctrl

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	mbserver "github.com/tbrandon/mbserver"
	"go.uber.org/zap"

	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Register map.
const (
	CoilHeat = 0
	CoilCool = 1
	CoilFan  = 2

	HoldingSetpoint = 0
	HoldingMode     = 1
	HoldingUnit     = 2
	HoldingOffset   = 3

	InputTemperature = 0
	InputHumidity    = 1

	numCoils   = 3
	numHolding = 4
	numInput   = 2
)

// NoReading is reported in an input register while the sensor has no value.
const NoReading uint16 = 0x8000

const Scale int = 100

// Config for the Modbus controller.
type Config struct {
	DeviceID string
	Addr     string
	UnitID   byte // UnitID (Modbus slave/unit ID). Use an integer 1..247.
	// WriteTimeout bounds how long a register write waits for the loop.
	WriteTimeout time.Duration
}

type Controller struct {
	svc command.Service
	cfg Config
	log *zap.Logger

	serv *mbserver.Server
	ctx  context.Context
}

func New(svc command.Service, cfg Config, log *zap.Logger) (*Controller, error) {
	if cfg.UnitID == 0 {
		return nil, errors.New("modbus: UnitID is required (non-zero)")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:1502"
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{svc: svc, cfg: cfg, log: log.Named("modbus"), ctx: context.Background()}, nil
}

// Run starts the Modbus server. Reads are served from the last published
// snapshot and writes are submitted to the control loop. It blocks until ctx
// is canceled.
func (c *Controller) Run(ctx context.Context) error {
	c.ctx = ctx
	serv := mbserver.NewServer()
	c.serv = serv

	// Register handlers BEFORE starting the TCP listener to avoid races inside mbserver
	// between handler registration and the server's goroutines.
	// Read Coils (function 1) - current relay outputs.
	serv.RegisterFunctionHandler(1, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, ex := readRange(frame.GetData(), numCoils, 2000)
		if ex != nil {
			return []byte{}, ex
		}
		out := c.svc.Get().Outputs
		coils := [numCoils]bool{CoilHeat: out.Heat, CoilCool: out.Cool, CoilFan: out.Fan}
		var packed byte
		for i := 0; i < qty; i++ {
			if coils[start+i] {
				packed |= 1 << uint(i)
			}
		}
		// response: byte count (1) + coil bytes
		return []byte{1, packed}, &mbserver.Success
	})

	// Read Holding Registers (function 3)
	serv.RegisterFunctionHandler(3, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, ex := readRange(frame.GetData(), numHolding, 125)
		if ex != nil {
			return []byte{}, ex
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			regs = append(regs, holdingValue(snap, start+i))
		}
		return encodeRegisters(regs), &mbserver.Success
	})

	// Read Input Registers (function 4)
	serv.RegisterFunctionHandler(4, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		start, qty, ex := readRange(frame.GetData(), numInput, 125)
		if ex != nil {
			return []byte{}, ex
		}
		snap := c.svc.Get()
		regs := make([]uint16, 0, qty)
		for i := 0; i < qty; i++ {
			regs = append(regs, inputValue(snap, start+i))
		}
		return encodeRegisters(regs), &mbserver.Success
	})

	// Relays follow the decision; coils are read-only.
	readOnly := func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		return []byte{}, &mbserver.IllegalFunction
	}
	serv.RegisterFunctionHandler(5, readOnly)
	serv.RegisterFunctionHandler(15, readOnly)

	// Write Single Register (function 6)
	serv.RegisterFunctionHandler(6, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		data := frame.GetData()
		if len(data) < 4 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		addr := int(binary.BigEndian.Uint16(data[0:2]))
		value := binary.BigEndian.Uint16(data[2:4])

		if ex := c.writeHolding(addr, value); ex != nil {
			return []byte{}, ex
		}

		resp := make([]byte, 4)
		copy(resp, data[0:4])
		return resp, &mbserver.Success
	})

	// Write Multiple Registers (function 16)
	serv.RegisterFunctionHandler(16, func(s *mbserver.Server, frame mbserver.Framer) ([]byte, *mbserver.Exception) {
		d := frame.GetData()
		if len(d) < 5 {
			return []byte{}, &mbserver.IllegalDataValue
		}
		start := binary.BigEndian.Uint16(d[0:2])
		quantity := binary.BigEndian.Uint16(d[2:4])
		byteCount := int(d[4])
		if byteCount != int(quantity)*2 || len(d) < 5+byteCount {
			return []byte{}, &mbserver.IllegalDataValue
		}
		if int(start)+int(quantity) > numHolding {
			return []byte{}, &mbserver.IllegalDataAddress
		}
		for i := 0; i < int(quantity); i++ {
			val := binary.BigEndian.Uint16(d[5+i*2 : 5+i*2+2])
			if ex := c.writeHolding(int(start)+i, val); ex != nil {
				return []byte{}, ex
			}
		}

		resp := make([]byte, 4)
		binary.BigEndian.PutUint16(resp[0:2], start)
		binary.BigEndian.PutUint16(resp[2:4], quantity)
		return resp, &mbserver.Success
	})

	// Now start listening after all handlers are registered.
	if err := serv.ListenTCP(c.cfg.Addr); err != nil {
		return fmt.Errorf("mbserver listen tcp %s: %w", c.cfg.Addr, err)
	}
	c.log.Info("listening", zap.String("addr", c.cfg.Addr))

	// Block until ctx.Done()
	<-ctx.Done()
	serv.Close()
	return ctx.Err()
}

// writeHolding turns one register write into a command and waits for the
// loop to apply it.
func (c *Controller) writeHolding(addr int, value uint16) *mbserver.Exception {
	var cmd command.Command
	switch addr {
	case HoldingSetpoint:
		cmd = command.SetDefaultTemperature(int(int16(value)))
	case HoldingMode:
		m := thermostat.Mode(value)
		if !m.Valid() {
			return &mbserver.IllegalDataValue
		}
		cmd = command.SetMode(m)
	case HoldingUnit:
		u := thermostat.Unit(value)
		if !u.Valid() {
			return &mbserver.IllegalDataValue
		}
		cmd = command.SetUnit(u)
	case HoldingOffset:
		cmd = command.SetOffset(int(int16(value)))
	default:
		return &mbserver.IllegalDataAddress
	}

	ctx, cancel := context.WithTimeout(c.ctx, c.cfg.WriteTimeout)
	defer cancel()
	resp, err := c.svc.Submit(ctx, cmd)
	if err != nil {
		c.log.Warn("write not applied", zap.Int("register", addr), zap.Error(err))
		return &mbserver.SlaveDeviceFailure
	}
	if !resp.OK() {
		return &mbserver.IllegalDataValue
	}
	return nil
}

func holdingValue(s thermostat.Snapshot, addr int) uint16 {
	switch addr {
	case HoldingSetpoint:
		return uint16(clampInt16(s.State.Setpoint))
	case HoldingMode:
		return uint16(s.State.Mode)
	case HoldingUnit:
		return uint16(s.State.Unit)
	case HoldingOffset:
		return uint16(clampInt16(s.State.SensorOffset))
	default:
		return 0
	}
}

func inputValue(s thermostat.Snapshot, addr int) uint16 {
	switch addr {
	case InputTemperature:
		if t, ok := s.Temperature(); ok {
			return encodeScaled(t)
		}
	case InputHumidity:
		if h, ok := s.Humidity(); ok {
			return encodeScaled(h)
		}
	}
	return NoReading
}

// readRange validates a (start, quantity) read request against a table of n
// entries.
func readRange(data []byte, n, maxQty int) (int, int, *mbserver.Exception) {
	if len(data) < 4 {
		return 0, 0, &mbserver.IllegalDataValue
	}
	start := int(binary.BigEndian.Uint16(data[0:2]))
	qty := int(binary.BigEndian.Uint16(data[2:4]))
	if qty == 0 || qty > maxQty {
		return 0, 0, &mbserver.IllegalDataValue
	}
	if start+qty > n {
		return 0, 0, &mbserver.IllegalDataAddress
	}
	return start, qty, nil
}

func encodeRegisters(regs []uint16) []byte {
	byteCount := len(regs) * 2
	resp := make([]byte, 1+byteCount)
	resp[0] = byte(byteCount)
	for i, r := range regs {
		binary.BigEndian.PutUint16(resp[1+i*2:1+i*2+2], r)
	}
	return resp
}

// encodeScaled stores v*Scale as int16. The lowest value is reserved for
// NoReading.
func encodeScaled(v float64) uint16 {
	r := min(max(int(math.Round(v*float64(Scale))), math.MinInt16+1), math.MaxInt16)
	return uint16(int16(r))
}

func decodeScaled(u uint16) float64 {
	return float64(int16(u)) / float64(Scale)
}

func clampInt16(v int) int16 {
	return int16(min(max(v, math.MinInt16), math.MaxInt16))
}
