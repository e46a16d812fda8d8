package device

import (
	"context"
	"testing"

	"github.com/halvorsen/primeadrv/protocol"
)

// fakeExecutor is a scripted sessionExecutor: each call to Exec consumes
// the next canned (value, error) pair, recording the body it was sent.
type fakeExecutor struct {
	calls     [][]byte
	responses []fakeResponse
}

type fakeResponse struct {
	value []byte
	err   error
}

func (f *fakeExecutor) Exec(ctx context.Context, body []byte) ([]byte, error) {
	f.calls = append(f.calls, body)
	i := len(f.calls) - 1
	if i >= len(f.responses) {
		return nil, nil
	}
	r := f.responses[i]
	return r.value, r.err
}

func TestSyringeReadRate(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{value: []byte("d0014")}}}
	s := NewSyringe(exec, '1')

	rate, err := s.ReadRate(context.Background())
	if err != nil {
		t.Fatalf("ReadRate: %v", err)
	}
	if rate != 2.0 {
		t.Fatalf("rate = %v, want 2.0", rate)
	}
	if len(exec.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(exec.calls))
	}
	got := string(exec.calls[0])
	want := "1LE;d"
	if got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}
}

func TestSyringeReadRatePropagatesCommandError(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{err: protocol.ErrNoRateYet}}}
	s := NewSyringe(exec, '1')

	_, err := s.ReadRate(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	ce, ok := err.(*CommandError)
	if !ok {
		t.Fatalf("expected *CommandError, got %T", err)
	}
	if ce.Err != protocol.ErrNoRateYet {
		t.Fatalf("wrapped error = %v, want ErrNoRateYet", ce.Err)
	}
}

func TestSyringeDisconnectSwallowsError(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{err: protocol.ErrCommModuleNotOpen}}}
	s := NewSyringe(exec, '1')

	if err := s.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect should swallow command errors, got %v", err)
	}
	if s.Connected() {
		t.Fatal("Disconnect should mark the syringe as no longer connected")
	}
}

func TestSyringeConnectedStateMachine(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{
		{value: nil}, // DC reply
	}}
	s := NewSyringe(exec, '1')
	if s.Connected() {
		t.Fatal("a fresh Syringe should not be connected")
	}

	// This is the first Connect, so it waits out the real 1s settle delay
	// after the scripted DC reply succeeds.
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if !s.Connected() {
		t.Fatal("Syringe should be connected after a successful Connect")
	}
}

func TestSyringeRegisterEventSubscribesWithFlags(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{value: nil}, {value: nil}}}
	s := NewSyringe(exec, '1')

	if err := s.RegisterEvent(context.Background(), protocol.VarRate); err != nil {
		t.Fatalf("RegisterEvent: %v", err)
	}
	if got, want := string(exec.calls[0]), "1DE;d"; got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}

	if err := s.RegisterEvent(context.Background(), protocol.VarVolume); err != nil {
		t.Fatalf("RegisterEvent: %v", err)
	}
	if got, want := string(exec.calls[1]), "1DE;dr"; got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}
}

func TestSyringeUnregisterEventDisablesThenResubscribes(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{value: nil}, {value: nil}, {value: nil}, {value: nil}}}
	s := NewSyringe(exec, '1')

	if err := s.RegisterEvent(context.Background(), protocol.VarRate); err != nil {
		t.Fatalf("RegisterEvent: %v", err)
	}
	if err := s.RegisterEvent(context.Background(), protocol.VarVolume); err != nil {
		t.Fatalf("RegisterEvent: %v", err)
	}

	if err := s.UnregisterEvent(context.Background(), protocol.VarRate); err != nil {
		t.Fatalf("UnregisterEvent: %v", err)
	}
	if got, want := string(exec.calls[2]), "1AE"; got != want {
		t.Fatalf("disable command body = %q, want %q", got, want)
	}
	if got, want := string(exec.calls[3]), "1DE;r"; got != want {
		t.Fatalf("resubscribe command body = %q, want %q", got, want)
	}
}

func TestSyringeSetDrugEncodesIndex(t *testing.T) {
	exec := &fakeExecutor{responses: []fakeResponse{{value: nil}}}
	s := NewSyringe(exec, '2')

	if err := s.SetDrug(context.Background(), 7); err != nil {
		t.Fatalf("SetDrug: %v", err)
	}
	want := "2EP;7"
	if got := string(exec.calls[0]); got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}
}
