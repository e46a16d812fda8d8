package alaris

import (
	"context"
	"testing"
)

type fakeExecutor struct {
	calls     [][]byte
	responses [][]byte
}

func (f *fakeExecutor) Exec(ctx context.Context, body []byte) ([]byte, error) {
	f.calls = append(f.calls, body)
	i := len(f.calls) - 1
	if i >= len(f.responses) {
		return nil, nil
	}
	return f.responses[i], nil
}

func TestSyringeReadRate(t *testing.T) {
	exec := &fakeExecutor{responses: [][]byte{
		Join([][]byte{[]byte(MsgInfRate), []byte("A"), []byte("3.5")}),
	}}
	s := NewSyringe(exec, "A")

	rate, err := s.ReadRate(context.Background())
	if err != nil {
		t.Fatalf("ReadRate: %v", err)
	}
	if rate != 3.5 {
		t.Fatalf("rate = %v, want 3.5", rate)
	}
	want := "INF_RATE^A^?"
	if got := string(exec.calls[0]); got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}
}

func TestSyringeSetRate(t *testing.T) {
	exec := &fakeExecutor{responses: [][]byte{nil}}
	s := NewSyringe(exec, "B")

	if err := s.SetRate(context.Background(), 12.5); err != nil {
		t.Fatalf("SetRate: %v", err)
	}
	want := "INF_RATE^B^12.5"
	if got := string(exec.calls[0]); got != want {
		t.Fatalf("command body = %q, want %q", got, want)
	}
}

func TestSyringeReadVolume(t *testing.T) {
	exec := &fakeExecutor{responses: [][]byte{
		Join([][]byte{[]byte(MsgInfVol), []byte("A"), []byte("120.0")}),
	}}
	s := NewSyringe(exec, "A")

	vol, err := s.ReadVolume(context.Background())
	if err != nil {
		t.Fatalf("ReadVolume: %v", err)
	}
	if vol != 120.0 {
		t.Fatalf("volume = %v, want 120.0", vol)
	}
}

func TestParseRateReplyMalformed(t *testing.T) {
	if _, err := parseRateReply([]byte("INF_RATE^A")); err == nil {
		t.Fatal("expected error for a reply missing its value field")
	}
}
