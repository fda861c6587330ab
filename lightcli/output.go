package lightcli

import (
	"errors"
	"io"
)

// Output is a bounded, buffered writer in front of a non-blocking byte
// sink. Write queues bytes; Flush drains them.
type Output struct {
	ring *Ring[byte]
	sink io.ByteWriter
}

// NewOutput creates an Output queueing at most capacity bytes for sink.
func NewOutput(sink io.ByteWriter, capacity int) *Output {
	return &Output{
		ring: NewRing[byte](capacity),
		sink: sink,
	}
}

// Write queues p. Whenever the queue is full it flushes and retries, so
// it returns only when all of p is queued or the sink fails. A sink that
// keeps reporting ErrWouldBlock keeps Write spinning.
func (o *Output) Write(p []byte) (int, error) {
	for i, b := range p {
		if err := o.put(b); err != nil {
			return i, err
		}
	}
	return len(p), nil
}

// WriteString is like Write but takes a string.
func (o *Output) WriteString(s string) (int, error) {
	for i := 0; i < len(s); i++ {
		if err := o.put(s[i]); err != nil {
			return i, err
		}
	}
	return len(s), nil
}

// WriteByte queues one byte.
func (o *Output) WriteByte(b byte) error {
	return o.put(b)
}

func (o *Output) put(b byte) error {
	for o.ring.Enqueue(b) != nil {
		if err := o.Flush(); err != nil && !errors.Is(err, ErrWouldBlock) {
			return err
		}
	}
	return nil
}

// Flush writes queued bytes to the sink in order. It returns nil once the
// queue is empty, ErrWouldBlock as soon as the sink would block (the
// unwritten bytes stay queued), or the sink's error without attempting any
// further write. A byte leaves the queue only after the sink accepted it.
func (o *Output) Flush() error {
	for {
		b, ok := o.ring.Peek()
		if !ok {
			return nil
		}
		if err := o.sink.WriteByte(b); err != nil {
			return err
		}
		o.ring.Dequeue()
	}
}

// Buffered returns the number of queued bytes.
func (o *Output) Buffered() int {
	return o.ring.Len()
}
