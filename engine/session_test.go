package engine

import (
	"context"
	"testing"
	"time"

	"github.com/halvorsen/primeadrv/protocol"
)

func TestIsTransientRecognizesTimeout(t *testing.T) {
	if !isTransient(ErrCommandTimeout) {
		t.Fatal("ErrCommandTimeout should be treated as transient")
	}
}

func TestIsTransientRejectsPlainErrors(t *testing.T) {
	if isTransient(context.Canceled) {
		t.Fatal("a plain context error should not be treated as protocol-transient")
	}
}

func TestCommandTimeoutIsAtMostOneSecond(t *testing.T) {
	if CommandTimeout > time.Second {
		t.Fatalf("CommandTimeout = %v, want <= 1s", CommandTimeout)
	}
}

// TestSessionExecRetriesOnceOnTransientError simulates a reader goroutine
// that answers the first attempt with a transient link error and the
// retry with success, standing in for a real Reader (which would do both
// the reply push and the gate release together).
func TestSessionExecRetriesOnceOnTransientError(t *testing.T) {
	rc := NewFIFOReplyChannel(4)
	s := NewSession(nil, WithReplyChannel(rc))

	go func() {
		for attempt := 1; attempt <= 2; attempt++ {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if _, err := s.tx.Dequeue(ctx); err != nil {
				cancel()
				return
			}
			cancel()
			if attempt == 1 {
				rc.Push(Reply{Err: protocol.ErrTimeout})
			} else {
				rc.Push(Reply{Value: []byte("ok")})
			}
			s.gate.Release()
		}
	}()

	val, err := s.Exec(context.Background(), []byte("1DC"))
	if err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if string(val) != "ok" {
		t.Fatalf("val = %q, want %q", val, "ok")
	}
}

// TestSessionExecNoRetryOnNonTransientError ensures a non-transient
// protocol error is returned immediately without a second round-trip.
func TestSessionExecNoRetryOnNonTransientError(t *testing.T) {
	rc := NewFIFOReplyChannel(4)
	s := NewSession(nil, WithReplyChannel(rc))

	rounds := 0
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if _, err := s.tx.Dequeue(ctx); err != nil {
			return
		}
		rounds++
		rc.Push(Reply{Err: protocol.ErrSyntax})
		s.gate.Release()
	}()

	_, err := s.Exec(context.Background(), []byte("1ZZ"))
	if err != protocol.ErrSyntax {
		t.Fatalf("Exec error = %v, want ErrSyntax", err)
	}
	time.Sleep(20 * time.Millisecond)
	if rounds != 1 {
		t.Fatalf("expected exactly one round-trip, got %d", rounds)
	}
}
