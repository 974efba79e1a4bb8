//go:build !linux

package relay

import "errors"

// RPIO is not available on non-Linux platforms.
type RPIO struct{}

func OpenRPIO(pin int, activeLow bool) (*RPIO, error) {
	return nil, errors.New("relay: rpio not supported on this platform (requires Linux)")
}

func (r *RPIO) Set(on bool) error { return errors.New("relay: rpio not supported") }
func (r *RPIO) IsOn() bool        { return false }
func (r *RPIO) Close() error      { return nil }
