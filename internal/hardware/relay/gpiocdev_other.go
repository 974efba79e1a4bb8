//go:build !linux

package relay

import "errors"

// GPIOCDev is not available on non-Linux platforms.
type GPIOCDev struct{}

func OpenGPIOCDev(chip string, offset int, activeLow bool) (*GPIOCDev, error) {
	return nil, errors.New("relay: gpiocdev not supported on this platform (requires Linux)")
}

func (g *GPIOCDev) Set(on bool) error { return errors.New("relay: gpiocdev not supported") }
func (g *GPIOCDev) IsOn() bool        { return false }
func (g *GPIOCDev) Close() error      { return nil }
