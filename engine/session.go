package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/halvorsen/primeadrv/protocol"
	"github.com/halvorsen/primeadrv/serial"
	"github.com/halvorsen/primeadrv/trace"
)

// CommandTimeout bounds how long Exec waits for a reply to a single
// command attempt before treating it as a local timeout.
const CommandTimeout = 1 * time.Second

// ErrCommandTimeout is returned by Exec when no reply arrived within
// CommandTimeout, including after the single retry.
var ErrCommandTimeout = fmt.Errorf("engine: command timed out")

// Session owns one serial port end-to-end: the gate, the transmit queue,
// the reply channel, the event channel, and the reader/writer goroutines
// that drive them. Construct one per physical link.
type Session struct {
	id      xid.ID
	port    *serial.Port
	gate    *Gate
	tx      *TxQueue
	replies ReplyChannel
	events  *EventChannel
	metrics *Metrics
	sink    trace.Sink

	reader *Reader
	writer *Writer

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

// SessionOption customizes NewSession.
type SessionOption func(*Session)

// WithReplyChannel overrides the default FIFO reply channel, e.g. with a
// LIFOReplyChannel for a link whose device re-sends stale replies.
func WithReplyChannel(rc ReplyChannel) SessionOption {
	return func(s *Session) { s.replies = rc }
}

// WithSink attaches a trace.Sink for structured logging.
func WithSink(sink trace.Sink) SessionOption {
	return func(s *Session) { s.sink = sink }
}

// WithCommandQueueDepth overrides the command-class queue capacity.
func WithCommandQueueDepth(depth int) SessionOption {
	return func(s *Session) { s.tx = NewTxQueue(depth) }
}

// NewSession builds a Session bound to an already-open, already-configured
// port. Call Run to start its goroutines before issuing any Exec.
func NewSession(port *serial.Port, opts ...SessionOption) *Session {
	s := &Session{
		id:     xid.New(),
		port:   port,
		tx:     NewTxQueue(10),
		events: NewEventChannel(256),
		sink:   trace.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sink = s.sink.WithFields(map[string]interface{}{"session": s.id.String()})
	s.gate = NewGate(s.sink)
	if s.replies == nil {
		s.replies = NewFIFOReplyChannel(1)
	}
	s.metrics = NewMetrics("primeadrv", s.gate, s.tx)
	s.reader = NewReader(s.port, s.tx, s.gate, s.replies, s.events, s.metrics, s.sink)
	s.writer = NewWriter(s.port, s.tx, s.sink)
	return s
}

// ID is the session's correlation id, attached to every log line the
// session and its goroutines emit; it never appears on the wire.
func (s *Session) ID() xid.ID { return s.id }

// Events exposes the spontaneous-event channel for subscribers.
func (s *Session) Events() *EventChannel { return s.events }

// Metrics exposes the prometheus.Collector for registration.
func (s *Session) Metrics() *Metrics { return s.metrics }

// Run starts the reader and writer goroutines. It returns a stop function
// that cancels the writer's context and closes the port, then waits for
// both goroutines to exit.
func (s *Session) Run(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if err := s.reader.Run(); err != nil {
			s.sink.Warnf("session: reader exited: %v", err)
		}
	}()
	go func() {
		defer s.wg.Done()
		if err := s.writer.Run(ctx); err != nil {
			s.sink.Debugf("session: writer exited: %v", err)
		}
	}()

	return func() {
		cancel()
		_ = s.port.Close()
		s.wg.Wait()
	}
}

// Exec sends body as a framed command and waits for the matching reply,
// retrying exactly once when the failure is transient (a receiver-not-
// ready or ACK-timeout link error, or a local timeout). A non-transient protocol error,
// or a second failure after the retry, is returned to the caller.
func (s *Session) Exec(ctx context.Context, body []byte) ([]byte, error) {
	value, err := s.attempt(ctx, body)
	if err == nil {
		return value, nil
	}
	if !isTransient(err) {
		return nil, err
	}
	s.metrics.IncRetries()
	s.sink.Debugf("session: retrying command after transient error: %v", err)
	return s.attempt(ctx, body)
}

func (s *Session) attempt(ctx context.Context, body []byte) ([]byte, error) {
	cmdID := xid.New()
	log := s.sink.WithFields(map[string]interface{}{"command": cmdID.String()})

	if err := s.gate.Acquire(ctx); err != nil {
		return nil, err
	}
	start := time.Now()

	frame := protocol.Encode(body)
	if err := s.tx.Enqueue(ClassCommand, frame); err != nil {
		s.gate.Release()
		return nil, err
	}
	log.Debugf("session: command enqueued")

	deadline, cancel := context.WithTimeout(ctx, CommandTimeout)
	defer cancel()

	rep, err := s.replies.Pop(deadline)
	s.metrics.ObserveDuration(time.Since(start).Seconds())
	if err != nil {
		s.gate.Release()
		s.metrics.IncTimeouts()
		log.Warnf("session: command timed out")
		return nil, ErrCommandTimeout
	}
	if rep.Err != nil {
		log.Debugf("session: command failed: %v", rep.Err)
		return nil, rep.Err
	}
	return rep.Value, nil
}

func isTransient(err error) bool {
	if err == ErrCommandTimeout {
		return true
	}
	if pe, ok := err.(protocol.Error); ok {
		return pe.IsTransient()
	}
	return false
}
