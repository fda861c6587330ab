package lightcli

import (
	"errors"
	"io"
)

// Fill copies bytes from src into dst until src reports ErrWouldBlock or
// fails. It returns the number of bytes enqueued.
//
// ErrWouldBlock from src means "drained what was available" and yields a
// nil error. Any other error from src is returned verbatim; bytes already
// enqueued stay in dst.
//
// When dst is full, the byte just read has nowhere to go. If src is an
// io.ByteScanner the byte is pushed back with UnreadByte; either way the
// returned *Error (KindCapacityExceeded) carries it in its Byte field.
// Callers reading from a plain io.ByteReader must keep that byte
// themselves; Tokenizer.Fill does.
func Fill(dst *Ring[byte], src io.ByteReader) (int, error) {
	n, _, err := fill(dst, src)
	return n, err
}

// fill is Fill that also reports whether the byte carried by a capacity
// error is lost to src, i.e. could not be pushed back.
func fill(dst *Ring[byte], src io.ByteReader) (n int, taken bool, err error) {
	for {
		b, err := src.ReadByte()
		if err != nil {
			if errors.Is(err, ErrWouldBlock) {
				return n, false, nil
			}
			return n, false, err
		}
		if dst.IsFull() {
			taken = true
			if s, ok := src.(io.ByteScanner); ok && s.UnreadByte() == nil {
				taken = false
			}
			return n, taken, newCapacityError("fill", dst.Cap(), b)
		}
		_ = dst.Enqueue(b)
		n++
	}
}
