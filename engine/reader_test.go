package engine

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/halvorsen/primeadrv/protocol"
)

func newTestReader(t *testing.T) (*Reader, net.Conn, *TxQueue, *Gate, *FIFOReplyChannel, *EventChannel, *Metrics) {
	t.Helper()
	server, client := net.Pipe()
	t.Cleanup(func() { _ = server.Close(); _ = client.Close() })

	tx := NewTxQueue(4)
	gate := NewGate(nil)
	replies := NewFIFOReplyChannel(4)
	events := NewEventChannel(4)
	metrics := NewMetrics("test", gate, tx)
	r := NewReader(server, tx, gate, replies, events, metrics, nil)

	go func() { _ = r.Run() }()
	return r, client, tx, gate, replies, events, metrics
}

func TestReaderENQTriggersDC4(t *testing.T) {
	_, client, tx, _, _, _, _ := newTestReader(t)

	if _, err := client.Write([]byte{protocol.ENQ}); err != nil {
		t.Fatalf("write ENQ: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	frame, err := tx.Dequeue(ctx)
	if err != nil {
		t.Fatalf("expected a DC4 autoreply, got error: %v", err)
	}
	if len(frame) != 1 || frame[0] != protocol.DC4 {
		t.Fatalf("frame = %v, want [DC4]", frame)
	}
}

func TestReaderCompleteFrameDeliversReplyAndReleasesGate(t *testing.T) {
	_, client, tx, gate, replies, _, _ := newTestReader(t)

	ctx := context.Background()
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	body := []byte("1C;d0014")
	frame := protocol.Encode(body)
	if _, err := client.Write(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ack, err := tx.Dequeue(deadline)
	if err != nil {
		t.Fatalf("expected ACK autoreply: %v", err)
	}
	if len(ack) != 1 || ack[0] != protocol.ACK {
		t.Fatalf("ack = %v, want [ACK]", ack)
	}

	rep, err := replies.Pop(deadline)
	if err != nil {
		t.Fatalf("Pop reply: %v", err)
	}
	if rep.Err != nil {
		t.Fatalf("unexpected reply error: %v", rep.Err)
	}
	if string(rep.Value) != "d0014" {
		t.Fatalf("reply value = %q, want %q", rep.Value, "d0014")
	}

	// Give the reader goroutine a moment to call gate.Release() after
	// pushing the reply (Push happens first in deliver()).
	deadlineAt := time.Now().Add(time.Second)
	for gate.InFlight() {
		if time.Now().After(deadlineAt) {
			t.Fatal("gate still in flight after a non-spontaneous reply")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestReaderSpontaneousFrameDoesNotReleaseGate(t *testing.T) {
	_, client, tx, gate, _, events, metrics := newTestReader(t)

	ctx := context.Background()
	if err := gate.Acquire(ctx); err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	body := []byte("1E;ALARM")
	frame := protocol.Encode(body)
	if _, err := client.Write(frame); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	deadline, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	ack, err := tx.Dequeue(deadline)
	if err != nil {
		t.Fatalf("expected ACK autoreply: %v", err)
	}
	if len(ack) != 1 || ack[0] != protocol.ACK {
		t.Fatalf("ack = %v, want [ACK]", ack)
	}

	select {
	case ev := <-events.C():
		if string(ev.Payload) != "ALARM" {
			t.Fatalf("event payload = %q, want %q", ev.Payload, "ALARM")
		}
	case <-deadline.Done():
		t.Fatal("expected a spontaneous event to be published")
	}

	if !gate.InFlight() {
		t.Fatal("spontaneous frame must not release the gate")
	}

	if got := metrics.SpontaneousCount(1); got != 1 {
		t.Fatalf("spontaneous count for origin 1 = %d, want 1", got)
	}
}
