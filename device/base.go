package device

import (
	"context"

	"github.com/halvorsen/primeadrv/engine"
	"github.com/halvorsen/primeadrv/protocol"
)

// Base is the rack's address-0 unit: it answers module-discovery queries
// and forwards connect/disconnect framing the same way a Syringe does.
type Base struct {
	Syringe
}

// NewBase builds a Base bound to the rack's fixed address.
func NewBase(session *engine.Session) *Base {
	return &Base{Syringe: Syringe{session: session, address: protocol.BaseAddress}}
}

// ListModules queries the attached-modules bitmap and returns the
// addresses (1-5) of every module currently reporting present.
func (b *Base) ListModules(ctx context.Context) ([]int, error) {
	payload, err := b.readVar(ctx, protocol.VarModules)
	if err != nil {
		return nil, err
	}
	bitmap, err := protocol.ModulesBitmap(payload)
	if err != nil {
		return nil, &CommandError{Command: string(protocol.CmdReadVar), Err: err}
	}
	var modules []int
	for addr := 1; addr <= 5; addr++ {
		if bitmap&(1<<uint(addr-1)) != 0 {
			modules = append(modules, addr)
		}
	}
	return modules, nil
}

// DrainEventChannel discards any spontaneous events queued on the session's
// event channel without dispatching them, used after a reconnect to discard
// notifications from before the new subscription. This is purely local
// bookkeeping; it does not touch the wire. To stop a module from sending
// further spontaneous notifications, call its Syringe.ClearEvents.
func DrainEventChannel(events *engine.EventChannel) int {
	drained := 0
	for {
		select {
		case <-events.C():
			drained++
		default:
			return drained
		}
	}
}
