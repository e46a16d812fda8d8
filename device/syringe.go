package device

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/halvorsen/primeadrv/engine"
	"github.com/halvorsen/primeadrv/protocol"
)

// settleDelay is how long a freshly connected module needs before it will
// reliably answer further commands, learned from the reference driver's
// post-connect sleep.
const settleDelay = 1 * time.Second

// sessionExecutor is the slice of engine.Session a Syringe needs: send a
// framed command body, get back its decoded payload or error. Accepting
// the interface rather than *engine.Session lets tests substitute a fake
// executor instead of standing up a real port session.
type sessionExecutor interface {
	Exec(ctx context.Context, body []byte) ([]byte, error)
}

var _ sessionExecutor = (*engine.Session)(nil)

// Syringe is a single addressable module (1-5) on a Fresenius rack,
// reachable once its Base has been opened.
type Syringe struct {
	session sessionExecutor
	address byte

	mu            sync.Mutex
	connected     bool
	everConnected bool
	events        map[protocol.VarId]bool
}

// NewSyringe builds a Syringe for the module at address (1-5).
func NewSyringe(session sessionExecutor, address byte) *Syringe {
	return &Syringe{session: session, address: address}
}

func (s *Syringe) exec(ctx context.Context, cmd protocol.Command, flags []byte, args [][]byte) ([]byte, error) {
	body := append([]byte{s.address}, protocol.Build(cmd, flags, args)...)
	val, err := s.session.Exec(ctx, body)
	if err != nil {
		if _, ok := err.(protocol.Error); ok {
			return nil, &CommandError{Command: string(cmd), Err: err}
		}
		return nil, &CommunicationError{Op: string(cmd), Err: err}
	}
	return val, nil
}

// Connect opens the module for commands. The first successful connect is
// followed by a settle delay before the module will reliably answer
// further requests.
func (s *Syringe) Connect(ctx context.Context) error {
	if _, err := s.exec(ctx, protocol.CmdConnect, nil, nil); err != nil {
		return err
	}
	s.mu.Lock()
	first := !s.everConnected
	s.connected = true
	s.everConnected = true
	s.mu.Unlock()

	if first {
		select {
		case <-time.After(settleDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Disconnect closes the module. Errors are swallowed (matching the base
// unit's own disconnect semantics): a module that is already gone, or that
// rejects FC for any reason, is still considered disconnected locally.
func (s *Syringe) Disconnect(ctx context.Context) error {
	_, _ = s.exec(ctx, protocol.CmdDisconnect, nil, nil)
	s.mu.Lock()
	s.connected = false
	s.mu.Unlock()
	return nil
}

func (s *Syringe) readVar(ctx context.Context, id protocol.VarId) ([]byte, error) {
	return s.exec(ctx, protocol.CmdReadVar, []byte{byte(id)}, nil)
}

// ReadRate returns the current infusion rate in mL/h.
func (s *Syringe) ReadRate(ctx context.Context) (float64, error) {
	payload, err := s.readVar(ctx, protocol.VarRate)
	if err != nil {
		return 0, err
	}
	return protocol.ExtractRate(payload)
}

// ReadVolume returns the infused volume in mL.
func (s *Syringe) ReadVolume(ctx context.Context) (float64, error) {
	payload, err := s.readVar(ctx, protocol.VarVolume)
	if err != nil {
		return 0, err
	}
	return protocol.ExtractVolume(payload)
}

// ReadDrug returns the drug library entry currently configured on the
// module, as the raw library index string the device reports.
func (s *Syringe) ReadDrug(ctx context.Context) (string, error) {
	payload, err := s.exec(ctx, protocol.CmdReadDrug, nil, nil)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// SetDrug selects a drug library entry by its numeric index.
func (s *Syringe) SetDrug(ctx context.Context, index int) error {
	arg := []byte(strconv.Itoa(index))
	_, err := s.exec(ctx, protocol.CmdSetDrug, nil, [][]byte{arg})
	return err
}

// SetRate sets the infusion rate in tenths of mL/h (device units).
func (s *Syringe) SetRate(ctx context.Context, tenthsMLPerHour int) error {
	arg := []byte(strconv.FormatInt(int64(tenthsMLPerHour), 16))
	_, err := s.exec(ctx, protocol.CmdSetRate, nil, [][]byte{arg})
	return err
}

// ResetVolume zeroes the module's accumulated-volume counter.
func (s *Syringe) ResetVolume(ctx context.Context) error {
	_, err := s.exec(ctx, protocol.CmdResetVolume, nil, nil)
	return err
}

// ReadDeviceType returns the module's fixed device-type identifier.
func (s *Syringe) ReadDeviceType(ctx context.Context) (string, error) {
	payload, err := s.exec(ctx, protocol.CmdReadFixed, []byte{byte(protocol.FixedVarDeviceType)}, nil)
	if err != nil {
		return "", err
	}
	return string(payload), nil
}

// sortedFlags renders the event subscription set as the concatenated,
// sorted flag bytes CmdEnableSpont expects (e.g. VarRate+VarVolume -> "dr").
// Must be called with s.mu held.
func (s *Syringe) sortedFlags() []byte {
	flags := make([]byte, 0, len(s.events))
	for v := range s.events {
		flags = append(flags, byte(v))
	}
	sort.Slice(flags, func(i, j int) bool { return flags[i] < flags[j] })
	return flags
}

// RegisterEvent adds v to the module's spontaneous-event subscription set
// and re-subscribes with the full set, mirroring the reference driver's
// registerEvent: the device has no "add one" opcode, only "subscribe to
// exactly this set".
func (s *Syringe) RegisterEvent(ctx context.Context, v protocol.VarId) error {
	s.mu.Lock()
	if s.events == nil {
		s.events = make(map[protocol.VarId]bool)
	}
	s.events[v] = true
	flags := s.sortedFlags()
	s.mu.Unlock()

	_, err := s.exec(ctx, protocol.CmdEnableSpont, flags, nil)
	return err
}

// UnregisterEvent removes v from the subscription set. It is a two-step
// operation on the wire, mirroring the reference driver's unregisterEvent:
// disable spontaneous notifications outright, then re-enable with whatever
// remains of the subscription set (a no-op send if the set is now empty).
func (s *Syringe) UnregisterEvent(ctx context.Context, v protocol.VarId) error {
	s.mu.Lock()
	delete(s.events, v)
	flags := s.sortedFlags()
	s.mu.Unlock()

	if _, err := s.exec(ctx, protocol.CmdDisableSpont, nil, nil); err != nil {
		return err
	}
	_, err := s.exec(ctx, protocol.CmdEnableSpont, flags, nil)
	return err
}

// ClearEvents drops the entire subscription set and tells the module to
// stop sending spontaneous notifications, the wire-level counterpart to the
// base unit's local event-channel drain.
func (s *Syringe) ClearEvents(ctx context.Context) error {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()

	_, err := s.exec(ctx, protocol.CmdDisableSpont, nil, nil)
	return err
}

// Connected reports whether Connect has succeeded and Disconnect has not
// since been called.
func (s *Syringe) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
