package loop

import (
	"github.com/Agrid-Dev/thermorelay/internal/command"
	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Observer is notified from the loop goroutine. Implementations must not
// block.
type Observer interface {
	Polled(s thermostat.Snapshot, tempErr, humErr error)
	RelayFault(err error)
	Command(kind command.Kind, status int)
}

type nopObserver struct{}

func (nopObserver) Polled(thermostat.Snapshot, error, error) {}
func (nopObserver) RelayFault(error)                         {}
func (nopObserver) Command(command.Kind, int)                {}
