package lightcli

import (
	"errors"
	"fmt"
)

// Sentinel errors for the stream pipeline.
var (
	// ErrWouldBlock reports that no further progress is possible right now.
	// It is not a failure: the caller retries on the next poll with no
	// state lost. Byte sources and sinks return it from ReadByte/WriteByte.
	ErrWouldBlock = errors.New("operation would block")

	// ErrInvalidEncoding indicates a malformed or out-of-sequence UTF-8
	// byte. The stream is desynchronized and must be reset.
	ErrInvalidEncoding = errors.New("invalid utf-8 encoding")

	// ErrCapacityExceeded indicates a ring buffer or token text buffer
	// would grow past its configured capacity.
	ErrCapacityExceeded = errors.New("capacity exceeded")
)

// ErrorKind categorizes pipeline errors.
type ErrorKind int

const (
	// KindInvalidEncoding indicates a malformed UTF-8 sequence.
	KindInvalidEncoding ErrorKind = iota
	// KindCapacityExceeded indicates a bounded buffer is full.
	KindCapacityExceeded
)

// Error is the typed failure returned by the tokenizer, the filler and the
// ring buffer.
type Error struct {
	Kind     ErrorKind
	Op       string // "fill", "token" or "enqueue"
	Capacity int    // Configured capacity that was exceeded
	Byte     byte   // The byte that is invalid in its position, or the unstored byte
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindInvalidEncoding:
		return fmt.Sprintf("%s: invalid utf-8 byte 0x%02X", e.Op, e.Byte)
	case KindCapacityExceeded:
		return fmt.Sprintf("%s: capacity %d exceeded at byte 0x%02X", e.Op, e.Capacity, e.Byte)
	default:
		return fmt.Sprintf("%s: pipeline error", e.Op)
	}
}

// Unwrap returns the sentinel matching the error's kind, so that
// errors.Is(err, ErrCapacityExceeded) works on typed errors.
func (e *Error) Unwrap() error {
	switch e.Kind {
	case KindInvalidEncoding:
		return ErrInvalidEncoding
	case KindCapacityExceeded:
		return ErrCapacityExceeded
	}
	return nil
}

func newCapacityError(op string, capacity int, b byte) error {
	return &Error{Kind: KindCapacityExceeded, Op: op, Capacity: capacity, Byte: b}
}

func newEncodingError(b byte) error {
	return &Error{Kind: KindInvalidEncoding, Op: "token", Byte: b}
}

// IsWouldBlock reports whether err is the would-block control signal.
func IsWouldBlock(err error) bool {
	return errors.Is(err, ErrWouldBlock)
}
