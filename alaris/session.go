package alaris

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/halvorsen/primeadrv/engine"
	"github.com/halvorsen/primeadrv/serial"
	"github.com/halvorsen/primeadrv/trace"
)

// KeepAliveInterval is how often the session re-asserts remote control so
// the pump does not silently fall back to local-panel control.
const KeepAliveInterval = 5 * time.Second

// CommandTimeout bounds how long Exec waits for a reply.
const CommandTimeout = 1 * time.Second

// Session owns one Alaris serial link: the gate, the LIFO reply channel,
// the event channel, and the reader and keep-alive goroutines.
type Session struct {
	port         *serial.Port
	gate         *engine.Gate
	replies      *engine.LIFOReplyChannel
	events       *engine.EventChannel
	sink         trace.Sink
	securityCode string

	writeMu sync.Mutex

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// NewSession builds a Session bound to an already-open, already-configured
// Alaris port.
func NewSession(port *serial.Port, securityCode string, sink trace.Sink) *Session {
	if sink == nil {
		sink = trace.Discard()
	}
	return &Session{
		port:         port,
		gate:         engine.NewGate(sink),
		replies:      engine.NewLIFOReplyChannel(),
		events:       engine.NewEventChannel(256),
		sink:         sink,
		securityCode: securityCode,
	}
}

// Events exposes the broadcast-status channel.
func (s *Session) Events() *engine.EventChannel { return s.events }

// Run starts the reader and the keep-alive looper. The writer has no
// dedicated goroutine: commands and keep-alive frames both write directly
// under writeMu, since the Alaris link has no priority classes to
// reconcile.
func (s *Session) Run(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.readLoop(); err != nil {
			s.sink.Warnf("alaris: reader exited: %v", err)
		}
	}()
	keepAliveDone := make(chan struct{})
	go func() {
		defer s.wg.Done()
		defer close(keepAliveDone)
		s.keepAliveLoop(ctx)
	}()

	return func() {
		cancel()
		// Let the final DISABLED frames go out before the port closes.
		<-keepAliveDone
		_ = s.port.Close()
		s.wg.Wait()
	}
}

func (s *Session) write(frame []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_, err := s.port.Write(frame)
	return err
}

// keepAliveLoop periodically re-asserts remote control with both the
// REMOTE_CTRL and REMOTE_CFG message types, and releases control with one
// final pair of DISABLED frames on teardown. Disabling it is idempotent:
// Stop (via Run's cancel) simply lets the ticker goroutine exit, it never
// double-releases anything.
func (s *Session) keepAliveLoop(ctx context.Context) {
	ticker := time.NewTicker(KeepAliveInterval)
	defer ticker.Stop()

	send := func(on bool) {
		for _, msgType := range [...]string{MsgRemoteCtrl, MsgRemoteCfg} {
			if err := s.write(Encode(BuildKeepAlive(msgType, on, s.securityCode))); err != nil {
				s.sink.Warnf("alaris: keep-alive write failed: %v", err)
			}
		}
	}
	send(true)
	for {
		select {
		case <-ticker.C:
			send(true)
		case <-ctx.Done():
			send(false)
			return
		}
	}
}

// readLoop scans the port for complete "!...\r" frames.
func (s *Session) readLoop() error {
	r := bufio.NewReader(s.port)
	for {
		raw, err := r.ReadBytes(end)
		if err != nil {
			return err
		}
		raw = raw[:len(raw)-1] // drop trailing '\r'
		if len(raw) == 0 || raw[0] != start {
			s.sink.Warnf("alaris: dropping malformed frame %q", raw)
			continue
		}
		body, ok, err := Decode(raw[1:])
		if err != nil {
			s.sink.Warnf("alaris: frame decode failed: %v", err)
			continue
		}
		if !ok {
			s.sink.Warnf("alaris: checksum mismatch on frame %q", raw)
			continue
		}
		s.route(body)
	}
}

func (s *Session) route(body []byte) {
	msgType := MessageType(body)
	if replyTypes[msgType] && s.gate.InFlight() {
		s.replies.Push(engine.Reply{Value: body})
		s.gate.Release()
		return
	}
	s.events.Publish(engine.Event{Timestamp: time.Now(), Payload: body})
}

// Exec sends body as a framed command and waits (LIFO: only the newest
// pending reply is ever observed) for a reply within CommandTimeout.
func (s *Session) Exec(ctx context.Context, body []byte) ([]byte, error) {
	if err := s.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	if err := s.write(Encode(body)); err != nil {
		s.gate.Release()
		return nil, err
	}

	deadline, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	rep, err := s.replies.Pop(deadline)
	if err != nil {
		s.gate.Release()
		return nil, fmt.Errorf("alaris: command timed out: %w", err)
	}
	return rep.Value, nil
}

var _ io.Writer = (*serial.Port)(nil)
