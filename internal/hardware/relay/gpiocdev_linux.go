//go:build linux

package relay

import (
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"

	"github.com/Agrid-Dev/thermorelay/internal/ports"
)

// GPIOCDev drives one output line through the Linux GPIO character device.
type GPIOCDev struct {
	mu   sync.Mutex
	line   *gpiocdev.Line
	on     bool
	closed bool
}

// OpenGPIOCDev requests offset on chip as an output, initially inactive.
func OpenGPIOCDev(chip string, offset int, activeLow bool) (*GPIOCDev, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer("thermorelay"),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request line %s:%d: %w", chip, offset, err)
	}
	return &GPIOCDev{line: line}, nil
}

func (g *GPIOCDev) Set(on bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	v := 0
	if on {
		v = 1
	}
	if err := g.line.SetValue(v); err != nil {
		return fmt.Errorf("%w: line %d: %v", ports.ErrRelay, g.line.Offset(), err)
	}
	g.on = on
	return nil
}

func (g *GPIOCDev) IsOn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.on
}

// Close drives the line inactive and releases it, leaving the relay off.
// Closing twice is a no-op.
func (g *GPIOCDev) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	_ = g.line.SetValue(0)
	g.on = false
	if err := g.line.Close(); err != nil {
		return fmt.Errorf("close line %d: %w", g.line.Offset(), err)
	}
	return nil
}
