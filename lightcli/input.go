package lightcli

import (
	"errors"
	"io"
)

// Input is the receive side of the pipeline: a Tokenizer feeding a Lexer.
//
// Typical use from a polling loop:
//
//	if err := in.Fill(serial); err != nil {
//	    return err
//	}
//	if err := in.Parse(handler); err != nil && !lightcli.IsWouldBlock(err) {
//	    return err
//	}
type Input struct {
	tokenizer *Tokenizer
	lexer     *Lexer
}

// NewInput creates an Input with the capacities in cfg.
func NewInput(cfg Config) (*Input, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Input{
		tokenizer: NewTokenizer(cfg.InputCapacity, cfg.TokenCapacity),
		lexer:     NewLexer(cfg.TokenCapacity),
	}, nil
}

// Fill copies every byte src has available into the input ring. It
// returns nil once src reports ErrWouldBlock, an error matching
// ErrCapacityExceeded when the ring is full, or src's own error.
func (in *Input) Fill(src io.ByteReader) error {
	return in.tokenizer.Fill(src)
}

// Next returns the next event. It returns ErrWouldBlock when no complete
// event can be produced from the buffered bytes, and the tokenizer's error
// on invalid encoding or overflow. Lexer state is untouched by a failing
// call.
func (in *Input) Next() (Event, error) {
	for {
		if ev, ok := in.lexer.Pop(); ok {
			return ev, nil
		}
		tok, err := in.tokenizer.Next()
		if err != nil {
			return Event{}, err
		}
		in.lexer.Feed(tok)
	}
}

// Parse hands every available event to h. It returns nil when the input
// ring has been drained, ErrWouldBlock when an incomplete UTF-8 sequence
// is still buffered, or a fatal tokenizer error. Events delivered before a
// failure remain valid.
func (in *Input) Parse(h Handler) error {
	for {
		ev, err := in.Next()
		if err != nil {
			if errors.Is(err, ErrWouldBlock) && in.tokenizer.Buffered() == 0 {
				return nil
			}
			return err
		}
		ev.Visit(h)
	}
}

// Buffered returns the number of received bytes not yet tokenized.
func (in *Input) Buffered() int {
	return in.tokenizer.Buffered()
}

// Reset discards all buffered and partially parsed input.
func (in *Input) Reset() {
	in.tokenizer.Reset()
	in.lexer.Reset()
}

// Resync recovers from a fatal error by abandoning the current line: the
// partial command is dropped and bytes are skipped up to and including
// the next line terminator. Lines buffered after it are parsed normally.
func (in *Input) Resync() {
	in.tokenizer.Resync()
	in.lexer.Reset()
}
