package lightcli

import (
	"errors"
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Observer receives pipeline activity from a Session. Implementations must
// not retain the event's byte slices.
type Observer interface {
	ObserveBytes(n int)
	ObserveEvent(ev Event)
	ObserveError(err error)
}

// Stats holds Session counters.
type Stats struct {
	Polls      uint64
	BytesIn    uint64
	Commands   uint64
	Attributes uint64
	Errors     uint64
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger. The default discards everything.
func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithObserver registers an observer for bytes, events and errors.
func WithObserver(o Observer) SessionOption {
	return func(s *Session) {
		s.observer = o
	}
}

// Session runs poll cycles over one Input/Output pair: fill from src,
// parse into the handler, flush the output.
type Session struct {
	in       *Input
	out      *Output
	src      io.ByteReader
	handler  Handler
	log      *zap.Logger
	observer Observer
	stats    Stats
	tap      sessionTap
}

// NewSession creates a session. out may be nil for a receive-only session.
func NewSession(in *Input, out *Output, src io.ByteReader, h Handler, opts ...SessionOption) *Session {
	s := &Session{
		in:      in,
		out:     out,
		src:     src,
		handler: h,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tap.s = s
	return s
}

// Poll runs one cycle. Running out of input or output space for now is
// not an error. A fatal error is logged, counted and returned; the Input
// keeps failing with it until Reset or Resync. When the source fails, the
// bytes it delivered before failing are still parsed and answered.
func (s *Session) Poll() error {
	s.stats.Polls++
	var srcErr error
	for {
		before := s.in.Buffered()
		ferr := s.in.Fill(s.src)
		if n := s.in.Buffered() - before; n > 0 {
			s.stats.BytesIn += uint64(n)
			if s.observer != nil {
				s.observer.ObserveBytes(n)
			}
		}
		full := errors.Is(ferr, ErrCapacityExceeded)
		if ferr != nil && !full {
			srcErr = ferr
		}

		filled := s.in.Buffered()
		if err := s.in.Parse(&s.tap); err != nil && !errors.Is(err, ErrWouldBlock) {
			return s.fail("parse", err)
		}
		// Refill only while parsing makes room; the byte that did not fit
		// is still held by the input.
		if !full || s.in.Buffered() == filled {
			break
		}
	}

	if s.out != nil {
		if err := s.out.Flush(); err != nil && !errors.Is(err, ErrWouldBlock) {
			return s.fail("flush", err)
		}
	}
	if srcErr != nil {
		return s.fail("fill", srcErr)
	}
	return nil
}

func (s *Session) fail(stage string, err error) error {
	s.stats.Errors++
	if s.observer != nil {
		s.observer.ObserveError(err)
	}
	if errors.Is(err, io.EOF) {
		s.log.Debug("source closed", zap.String("stage", stage))
	} else {
		s.log.Warn("poll failed",
			zap.String("stage", stage),
			zap.Int("buffered", s.in.Buffered()),
			zap.Error(err),
		)
	}
	return err
}

// Reset discards all buffered and partially parsed input.
func (s *Session) Reset() {
	s.log.Info("input reset", zap.Int("discarded", s.in.Buffered()))
	s.in.Reset()
}

// Resync abandons the line that caused a fatal error and continues with
// the line after it. See Input.Resync.
func (s *Session) Resync() {
	s.log.Info("input resync", zap.Int("buffered", s.in.Buffered()))
	s.in.Resync()
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return s.stats
}

// sessionTap counts and observes events on their way to the handler.
type sessionTap struct {
	s *Session
}

func (t *sessionTap) HandleAttribute(command, key, value []byte) {
	s := t.s
	s.stats.Attributes++
	if s.observer != nil {
		s.observer.ObserveEvent(NewAttributeEvent(command, key, value))
	}
	if ce := s.log.Check(zapcore.DebugLevel, "attribute"); ce != nil {
		ce.Write(
			zap.ByteString("command", command),
			zap.ByteString("key", key),
			zap.ByteString("value", value),
		)
	}
	s.handler.HandleAttribute(command, key, value)
}

func (t *sessionTap) HandleCommand(command []byte) {
	s := t.s
	s.stats.Commands++
	if s.observer != nil {
		s.observer.ObserveEvent(NewCommandEvent(command))
	}
	if ce := s.log.Check(zapcore.DebugLevel, "command"); ce != nil {
		ce.Write(zap.ByteString("command", command))
	}
	s.handler.HandleCommand(command)
}
