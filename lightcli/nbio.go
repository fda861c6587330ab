package lightcli

import (
	"errors"
	"io"
	"os"
	"time"
)

// DefaultPollTimeout bounds how long a deadline adapter waits for the peer
// before reporting ErrWouldBlock.
const DefaultPollTimeout = 10 * time.Millisecond

// DeadlineReader is a reader with read deadlines, such as net.Conn.
type DeadlineReader interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// DeadlineWriter is a writer with write deadlines, such as net.Conn.
type DeadlineWriter interface {
	io.Writer
	SetWriteDeadline(t time.Time) error
}

// DeadlineSource turns a deadline-capable reader into a non-blocking
// io.ByteScanner. Each refill waits at most PollTimeout; an expired
// deadline is reported as ErrWouldBlock.
type DeadlineSource struct {
	Conn        DeadlineReader
	PollTimeout time.Duration

	buf  [256]byte
	r, w int
	err  error // deferred until buf is drained
}

// ReadByte implements io.ByteReader.
func (s *DeadlineSource) ReadByte() (byte, error) {
	if s.r == s.w {
		if err := s.refill(); err != nil {
			return 0, err
		}
	}
	b := s.buf[s.r]
	s.r++
	return b, nil
}

// UnreadByte implements io.ByteScanner.
func (s *DeadlineSource) UnreadByte() error {
	if s.r == 0 {
		return errors.New("lightcli: UnreadByte without a preceding ReadByte")
	}
	s.r--
	return nil
}

// Buffered returns the number of bytes read from Conn but not yet
// returned.
func (s *DeadlineSource) Buffered() int {
	return s.w - s.r
}

func (s *DeadlineSource) refill() error {
	if s.err != nil {
		return s.err
	}
	if err := s.Conn.SetReadDeadline(time.Now().Add(pollTimeout(s.PollTimeout))); err != nil {
		return err
	}
	n, err := s.Conn.Read(s.buf[:])
	s.r, s.w = 0, n
	if err != nil && !errors.Is(err, os.ErrDeadlineExceeded) {
		s.err = err
	}
	if n > 0 {
		return nil
	}
	if s.err != nil {
		return s.err
	}
	return ErrWouldBlock
}

// DeadlineSink turns a deadline-capable writer into a non-blocking
// io.ByteWriter. A byte is accepted only once Conn took it.
type DeadlineSink struct {
	Conn        DeadlineWriter
	PollTimeout time.Duration

	deadline time.Time
	one      [1]byte
}

// WriteByte implements io.ByteWriter.
func (s *DeadlineSink) WriteByte(b byte) error {
	if now := time.Now(); !now.Before(s.deadline) {
		s.deadline = now.Add(pollTimeout(s.PollTimeout))
		if err := s.Conn.SetWriteDeadline(s.deadline); err != nil {
			return err
		}
	}
	s.one[0] = b
	n, err := s.Conn.Write(s.one[:])
	if n == 1 {
		return nil
	}
	if err == nil || errors.Is(err, os.ErrDeadlineExceeded) {
		s.deadline = time.Time{}
		return ErrWouldBlock
	}
	return err
}

func pollTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultPollTimeout
	}
	return d
}

// MemorySource is an in-memory io.ByteScanner fed in chunks. Reading past
// the fed bytes returns ErrWouldBlock until more is fed, or io.EOF after
// Close.
type MemorySource struct {
	buf    []byte
	pos    int
	read   int
	closed bool
}

// NewMemorySource creates a source holding p.
func NewMemorySource(p []byte) *MemorySource {
	m := &MemorySource{}
	m.Feed(p)
	return m
}

// Feed appends p to the unread bytes.
func (m *MemorySource) Feed(p []byte) {
	if m.pos > 0 && m.pos == len(m.buf) {
		m.buf, m.pos = m.buf[:0], 0
	}
	m.buf = append(m.buf, p...)
}

// Close marks the end of input.
func (m *MemorySource) Close() error {
	m.closed = true
	return nil
}

// Len returns the number of unread bytes.
func (m *MemorySource) Len() int {
	return len(m.buf) - m.pos
}

// Offset returns the total number of bytes read and not unread.
func (m *MemorySource) Offset() int {
	return m.read
}

// ReadByte implements io.ByteReader.
func (m *MemorySource) ReadByte() (byte, error) {
	if m.pos == len(m.buf) {
		if m.closed {
			return 0, io.EOF
		}
		return 0, ErrWouldBlock
	}
	b := m.buf[m.pos]
	m.pos++
	m.read++
	return b, nil
}

// UnreadByte implements io.ByteScanner.
func (m *MemorySource) UnreadByte() error {
	if m.pos == 0 {
		return errors.New("lightcli: UnreadByte at start of source")
	}
	m.pos--
	m.read--
	return nil
}
