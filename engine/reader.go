package engine

import (
	"bufio"
	"io"
	"time"

	"github.com/halvorsen/primeadrv/protocol"
	"github.com/halvorsen/primeadrv/trace"
)

// Reader is the single-producer byte-level receive loop for a Fresenius
// link: it classifies every inbound byte as flow control (ENQ/ACK/NAK),
// the start/end of a framed body, or noise, and turns complete frames into
// replies or events.
type Reader struct {
	port    io.Reader
	tx      *TxQueue
	gate    *Gate
	replies ReplyChannel
	events  *EventChannel
	metrics *Metrics
	sink    trace.Sink

	buf              []byte
	in               bool
	awaitingLinkCode bool
}

// NewReader builds a Reader. replies receives command/reply correlations,
// events receives device-initiated notifications. metrics may be nil, in
// which case spontaneous-event counts are simply not recorded.
func NewReader(port io.Reader, tx *TxQueue, gate *Gate, replies ReplyChannel, events *EventChannel, metrics *Metrics, sink trace.Sink) *Reader {
	if sink == nil {
		sink = trace.Discard()
	}
	return &Reader{port: port, tx: tx, gate: gate, replies: replies, events: events, metrics: metrics, sink: sink}
}

// Run drains the port one byte at a time until it returns an error (closed
// port, I/O failure) or the reader observes io.EOF.
func (r *Reader) Run() error {
	br := bufio.NewReaderSize(r.port, 1)
	b := make([]byte, 1)
	for {
		n, err := br.Read(b)
		if n == 1 {
			r.feed(b[0])
		}
		if err != nil {
			return err
		}
	}
}

func (r *Reader) feed(c byte) {
	switch {
	case c == protocol.ENQ:
		r.buf = r.buf[:0]
		r.in = false
		r.sink.Debugf("reader: ENQ, replying DC4")
		_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.DC4})

	case c == protocol.ACK:
		// Acknowledges the frame we last sent; the gate stays held until
		// the device's actual reply frame (or a NAK'd error code) arrives.
		r.sink.Debugf("reader: ACK")

	case c == protocol.NAK:
		r.sink.Debugf("reader: NAK, awaiting link error code")
		r.buf = r.buf[:0]
		r.in = false
		r.awaitingLinkCode = true

	case c == protocol.STX:
		r.buf = r.buf[:0]
		r.in = true

	case c == protocol.ETX:
		if !r.in {
			r.sink.Warnf("reader: stray ETX outside frame, NAK")
			_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.NAK})
			return
		}
		r.in = false
		r.handleFrame(append([]byte(nil), r.buf...))
		r.buf = r.buf[:0]

	default:
		if r.in {
			if !protocol.ValidBodyByte(c) {
				r.sink.Warnf("reader: control byte %#x inside frame, NAK", c)
				r.buf = r.buf[:0]
				r.in = false
				// 0x38 is the "presence of control code" link error.
				_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.NAK, 0x38})
				return
			}
			r.buf = append(r.buf, c)
			return
		}
		if r.awaitingLinkCode {
			r.awaitingLinkCode = false
			r.handleLinkError(c)
			return
		}
		r.sink.Warnf("reader: unexpected byte %#x outside any frame, ignoring", c)
	}
}

func (r *Reader) handleLinkError(code byte) {
	err := protocol.ParseLinkError(code)
	r.sink.Warnf("reader: link error %s", err.Error())
	r.deliver(Reply{Err: err})
}

func (r *Reader) handleFrame(raw []byte) {
	reply, err := protocol.Decode(raw)
	if err != nil {
		r.sink.Warnf("reader: frame decode failed: %v, NAK", err)
		_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.NAK})
		return
	}
	if !reply.ChecksumOK {
		r.sink.Warnf("reader: checksum mismatch, NAK")
		_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.NAK})
		return
	}

	_ = r.tx.Enqueue(ClassFlowControl, []byte{protocol.ACK})

	if reply.Status.IsSpontaneous() {
		// Echo origin+status back; the device waits for it before sending
		// its next spontaneous notification.
		echo := []byte{byte(reply.Status)}
		if reply.HasOrigin {
			echo = []byte{reply.Origin, byte(reply.Status)}
		}
		_ = r.tx.Enqueue(ClassSpontaneous, protocol.Encode(echo))

		if !reply.HasOrigin || reply.Origin < '0' || reply.Origin > '9' {
			return
		}
		origin := int(reply.Origin - '0')
		if r.metrics != nil {
			r.metrics.IncSpontaneous(origin)
		}
		r.events.Publish(Event{
			Timestamp: time.Now(),
			Origin:    origin,
			Payload:   reply.Payload,
		})
		return
	}

	var rerr error
	if reply.Status == protocol.StatusIncorrect {
		rerr = protocol.ParseAppError(reply.Payload)
	}
	r.deliver(Reply{HasOrigin: reply.HasOrigin, Origin: reply.Origin, Value: reply.Payload, Err: rerr})
}

// deliver pushes a Reply to the blocked caller and releases the gate. A
// spontaneous frame never reaches this path, so the gate is only ever
// released here for a genuine command/reply pair.
func (r *Reader) deliver(rep Reply) {
	r.replies.Push(rep)
	r.gate.Release()
}
