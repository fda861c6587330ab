package lightcli

import (
	"errors"
	"io"
	"unicode/utf8"
)

// TokenKind identifies a lexical token.
type TokenKind int

const (
	// TokenValue is a run of non-delimiter text.
	TokenValue TokenKind = iota
	// TokenSpace is a single space byte.
	TokenSpace
	// TokenEquals is a single '=' byte.
	TokenEquals
	// TokenCarriageReturn is a single CR byte.
	TokenCarriageReturn
	// TokenNewLine is a single LF byte.
	TokenNewLine
)

// String returns the token kind name.
func (k TokenKind) String() string {
	switch k {
	case TokenValue:
		return "Value"
	case TokenSpace:
		return "Space"
	case TokenEquals:
		return "Equals"
	case TokenCarriageReturn:
		return "CarriageReturn"
	case TokenNewLine:
		return "NewLine"
	default:
		return "Unknown"
	}
}

// Token is one lexical unit. Text is set only for TokenValue and is a view
// into the tokenizer's accumulation buffer: it is valid until the next call
// to Tokenizer.Next.
type Token struct {
	Kind TokenKind
	Text []byte
}

// Tokenizer turns buffered bytes into tokens. It owns the input ring and a
// bounded accumulation buffer; both persist across calls, so a value split
// across several fills is reassembled.
type Tokenizer struct {
	ring *Ring[byte]
	acc  []byte // len <= cap, cap fixed at construction

	pending    TokenKind // delimiter owed after a flushed value
	hasPending bool
	stale      bool // acc was handed out and must be cleared

	carry    byte // read from a source that cannot unread, not yet stored
	hasCarry bool

	resyncing bool // dropping bytes up to the next line terminator
	skipLF    bool // resync stopped at CR; drop one LF right after it
}

// NewTokenizer creates a tokenizer with an input ring of inputCapacity
// bytes and values of at most tokenCapacity bytes.
func NewTokenizer(inputCapacity, tokenCapacity int) *Tokenizer {
	return &Tokenizer{
		ring: NewRing[byte](inputCapacity),
		acc:  make([]byte, 0, tokenCapacity),
	}
}

// Fill drains src into the input ring. See Fill for the error contract.
//
// A byte that did not fit and could not be pushed back into src is kept
// and stored first by the next Fill, so no byte is lost whatever src is.
// While that byte is held, Fill reports ErrCapacityExceeded without
// reading src until the ring has room again.
func (t *Tokenizer) Fill(src io.ByteReader) error {
	if t.hasCarry {
		if t.ring.IsFull() {
			return newCapacityError("fill", t.ring.Cap(), t.carry)
		}
		_ = t.ring.Enqueue(t.carry)
		t.hasCarry = false
	}
	_, taken, err := fill(t.ring, src)
	if taken {
		var e *Error
		if errors.As(err, &e) {
			t.carry, t.hasCarry = e.Byte, true
		}
	}
	return err
}

// Next returns the next token.
//
// It returns ErrWouldBlock when the ring is empty or holds only the prefix
// of a multi-byte sequence; the prefix stays buffered. It returns an
// *Error of KindInvalidEncoding for malformed UTF-8, and of
// KindCapacityExceeded when a value would outgrow the token capacity. In
// both failure cases the offending bytes are left unconsumed, so the error
// repeats until Reset or Resync.
func (t *Tokenizer) Next() (Token, error) {
	if t.stale {
		t.acc = t.acc[:0]
		t.stale = false
	}
	if t.hasPending {
		t.hasPending = false
		return Token{Kind: t.pending}, nil
	}
	if !t.skipLine() {
		return Token{}, ErrWouldBlock
	}

	for {
		r, size, err := t.peekRune()
		if err != nil {
			return Token{}, err
		}

		if kind, ok := delimiter(r); ok {
			t.ring.Discard(size)
			if len(t.acc) == 0 {
				return Token{Kind: kind}, nil
			}
			t.pending, t.hasPending = kind, true
			t.stale = true
			return Token{Kind: TokenValue, Text: t.acc}, nil
		}

		if len(t.acc)+size > cap(t.acc) {
			b, _ := t.ring.Peek()
			return Token{}, newCapacityError("token", cap(t.acc), b)
		}
		for i := 0; i < size; i++ {
			b, _ := t.ring.Dequeue()
			t.acc = append(t.acc, b)
		}
	}
}

// peekRune decodes the scalar at the head of the ring without consuming it.
func (t *Tokenizer) peekRune() (rune, int, error) {
	b0, ok := t.ring.Peek()
	if !ok {
		return 0, 0, ErrWouldBlock
	}
	if b0 < utf8.RuneSelf {
		return rune(b0), 1, nil
	}

	need := sequenceLength(b0)
	if need == 0 {
		return 0, 0, newEncodingError(b0)
	}
	if t.ring.Len() < need {
		// Reject a bad continuation early rather than waiting for bytes
		// that cannot make the sequence valid.
		for i := 1; i < t.ring.Len(); i++ {
			if b, _ := t.ring.PeekAt(i); b&0xC0 != 0x80 {
				return 0, 0, newEncodingError(b)
			}
		}
		return 0, 0, ErrWouldBlock
	}

	var seq [utf8.UTFMax]byte
	for i := 0; i < need; i++ {
		seq[i], _ = t.ring.PeekAt(i)
	}
	r, size := utf8.DecodeRune(seq[:need])
	if r == utf8.RuneError && size <= 1 {
		return 0, 0, newEncodingError(firstBadContinuation(seq[:need]))
	}
	return r, size, nil
}

// sequenceLength returns the encoded length announced by a lead byte, or 0
// for a byte that cannot start a sequence (a continuation byte, an
// overlong 2-byte lead, or a lead beyond U+10FFFF).
func sequenceLength(b byte) int {
	switch {
	case b < 0x80:
		return 1
	case b < 0xC2:
		return 0
	case b < 0xE0:
		return 2
	case b < 0xF0:
		return 3
	case b < 0xF5:
		return 4
	default:
		return 0
	}
}

// firstBadContinuation returns the first byte after the lead that is not a
// continuation byte. When all of them look like continuations, the
// sequence is an overlong form, a surrogate or beyond U+10FFFF, which is
// decided by the second byte's range, so the second byte is returned.
func firstBadContinuation(seq []byte) byte {
	for _, b := range seq[1:] {
		if b&0xC0 != 0x80 {
			return b
		}
	}
	return seq[1]
}

func delimiter(r rune) (TokenKind, bool) {
	switch r {
	case Space:
		return TokenSpace, true
	case Equals:
		return TokenEquals, true
	case CarriageReturn:
		return TokenCarriageReturn, true
	case LineFeed:
		return TokenNewLine, true
	}
	return 0, false
}

// Buffered returns the number of bytes waiting in the input ring.
func (t *Tokenizer) Buffered() int {
	return t.ring.Len()
}

// Pending returns the number of accumulated value bytes not yet emitted.
func (t *Tokenizer) Pending() int {
	if t.stale {
		return 0
	}
	return len(t.acc)
}

// Reset discards buffered bytes, accumulated text and any owed delimiter.
func (t *Tokenizer) Reset() {
	t.ring.Reset()
	t.acc = t.acc[:0]
	t.hasPending = false
	t.stale = false
	t.hasCarry = false
	t.resyncing = false
	t.skipLF = false
}

// Resync drops accumulated text, then makes Next skip bytes up to and
// including the next CR or LF (a LF right after that CR as well). Bytes
// after the terminator, including complete lines already buffered, are
// tokenized normally. Skipping continues across fills.
func (t *Tokenizer) Resync() {
	t.acc = t.acc[:0]
	t.hasPending = false
	t.stale = false
	t.resyncing = true
	t.skipLF = false
}

// skipLine performs the skipping requested by Resync. It reports false
// when the ring ran empty first. CR and LF never occur inside a multi-byte
// sequence, so the scan is byte-wise and ignores malformed input.
func (t *Tokenizer) skipLine() bool {
	for t.resyncing {
		b, ok := t.ring.Dequeue()
		if !ok {
			return false
		}
		switch b {
		case LineFeed:
			t.resyncing = false
		case CarriageReturn:
			t.resyncing, t.skipLF = false, true
		}
	}
	if t.skipLF {
		b, ok := t.ring.Peek()
		if !ok {
			return false
		}
		t.skipLF = false
		if b == LineFeed {
			t.ring.Discard(1)
		}
	}
	return true
}
