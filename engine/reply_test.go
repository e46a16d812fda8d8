package engine

import (
	"context"
	"testing"
	"time"
)

func TestFIFOReplyChannelOrdering(t *testing.T) {
	rc := NewFIFOReplyChannel(4)
	rc.Push(Reply{Value: []byte("1")})
	rc.Push(Reply{Value: []byte("2")})

	ctx := context.Background()
	first, err := rc.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if string(first.Value) != "1" {
		t.Fatalf("first = %q, want %q", first.Value, "1")
	}
	second, err := rc.Pop(ctx)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if string(second.Value) != "2" {
		t.Fatalf("second = %q, want %q", second.Value, "2")
	}
}

func TestFIFOReplyChannelDropsOldestWhenFull(t *testing.T) {
	rc := NewFIFOReplyChannel(1)
	rc.Push(Reply{Value: []byte("old")})
	rc.Push(Reply{Value: []byte("new")})

	got, err := rc.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if string(got.Value) != "new" {
		t.Fatalf("got %q, want %q (oldest should have been dropped)", got.Value, "new")
	}
}

func TestLIFOReplyChannelNewestWins(t *testing.T) {
	rc := NewLIFOReplyChannel()
	rc.Push(Reply{Value: []byte("stale")})
	rc.Push(Reply{Value: []byte("fresh")})

	got, err := rc.Pop(context.Background())
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if string(got.Value) != "fresh" {
		t.Fatalf("got %q, want %q", got.Value, "fresh")
	}
}

func TestLIFOReplyChannelPopTimesOut(t *testing.T) {
	rc := NewLIFOReplyChannel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := rc.Pop(ctx); err == nil {
		t.Fatal("expected Pop to time out with nothing pushed")
	}
}
