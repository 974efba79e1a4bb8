package thermostat

import "errors"

var (
	ErrInvalidMode = errors.New("invalid mode")
	ErrInvalidUnit = errors.New("invalid unit")
)
