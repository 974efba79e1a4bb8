//go:build linux

package relay

import (
	"sync"

	"github.com/stianeikeland/go-rpio"
)

var gpioMem = &sharedMapping{open: rpio.Open, close: rpio.Close}

// RPIO drives a Raspberry Pi pin through /dev/gpiomem.
type RPIO struct {
	mu        sync.Mutex
	pin       rpio.Pin
	activeLow bool
	on        bool
	closed    bool
}

// OpenRPIO maps GPIO memory on first use and configures pin as an output,
// initially off.
func OpenRPIO(pin int, activeLow bool) (*RPIO, error) {
	if err := gpioMem.acquire(); err != nil {
		return nil, err
	}

	r := &RPIO{pin: rpio.Pin(pin), activeLow: activeLow}
	r.pin.Output()
	r.pin.Write(r.level(false))
	return r, nil
}

func (r *RPIO) level(on bool) rpio.State {
	if on != r.activeLow {
		return rpio.High
	}
	return rpio.Low
}

// Set never fails once the memory is mapped.
func (r *RPIO) Set(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pin.Write(r.level(on))
	r.on = on
	return nil
}

func (r *RPIO) IsOn() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.on
}

// Close drives the pin off and unmaps GPIO memory once the last pin is
// closed. Closing twice is a no-op.
func (r *RPIO) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.pin.Write(r.level(false))
	r.on = false
	r.closed = true
	r.mu.Unlock()

	return gpioMem.release()
}
