package command

import (
	"context"

	"github.com/Agrid-Dev/thermorelay/internal/thermostat"
)

// Service is the control-plane port used by controllers that run outside the
// control loop (MQTT, Modbus). Reads come from the last published snapshot;
// writes are queued to the loop and answered once it has dispatched them.
type Service interface {
	Get() thermostat.Snapshot
	Submit(ctx context.Context, cmd Command) (Response, error)
}
