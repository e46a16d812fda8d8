package engine

import (
	"context"
	"io"

	"github.com/halvorsen/primeadrv/trace"
)

// Writer drains a TxQueue in priority order and writes each frame to the
// port. It is the only goroutine allowed to touch the port for writes, so
// flow-control bytes, spontaneous-event acks, and command frames never
// interleave mid-write.
type Writer struct {
	port io.Writer
	tx   *TxQueue
	sink trace.Sink
}

func NewWriter(port io.Writer, tx *TxQueue, sink trace.Sink) *Writer {
	if sink == nil {
		sink = trace.Discard()
	}
	return &Writer{port: port, tx: tx, sink: sink}
}

// Run blocks until ctx is cancelled or a write fails.
func (w *Writer) Run(ctx context.Context) error {
	for {
		frame, err := w.tx.Dequeue(ctx)
		if err != nil {
			return err
		}
		if _, err := w.port.Write(frame); err != nil {
			w.sink.Errorf("writer: write failed: %v", err)
			return err
		}
	}
}
