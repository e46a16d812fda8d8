package engine

import (
	"context"
	"sync"

	"github.com/halvorsen/primeadrv/trace"
)

type gateState int

const (
	gateIdle gateState = iota
	gateInFlight
)

// Gate is the one-in-flight command discipline: a binary semaphore
// modeled as an explicit two-state machine rather than a raw count, to
// guard against double-release bugs — a second Release while already
// Idle is a logged no-op instead of corrupting the semaphore's count.
type Gate struct {
	mu     sync.Mutex
	state  gateState
	tokens chan struct{}
	sink   trace.Sink
}

// NewGate returns a Gate ready to be acquired.
func NewGate(sink trace.Sink) *Gate {
	if sink == nil {
		sink = trace.Discard()
	}
	g := &Gate{tokens: make(chan struct{}, 1), sink: sink}
	g.tokens <- struct{}{}
	return g
}

// Acquire blocks until the gate is available or ctx is done.
func (g *Gate) Acquire(ctx context.Context) error {
	select {
	case <-g.tokens:
		g.mu.Lock()
		g.state = gateInFlight
		g.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release hands the gate back. Called exactly once per successful Acquire:
// either by the caller on command completion or by the reader when it
// observes an inbound non-spontaneous frame. Spontaneous frames must
// never call this.
func (g *Gate) Release() {
	g.mu.Lock()
	if g.state != gateInFlight {
		g.mu.Unlock()
		g.sink.Warnf("gate: release with no command in flight, ignoring")
		return
	}
	g.state = gateIdle
	g.mu.Unlock()

	select {
	case g.tokens <- struct{}{}:
	default:
		// Should be unreachable: state was InFlight so the token slot was
		// empty. Left as a no-op rather than a panic to keep Release total.
	}
}

// InFlight reports whether a command is currently occupying the gate
// (used by the metrics collector).
func (g *Gate) InFlight() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state == gateInFlight
}
