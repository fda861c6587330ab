// Package lightcli implements a bounded, non-blocking parser for a
// line-oriented text command protocol, suitable for serial consoles and
// other byte streams that must never stall the caller.
//
// # Protocol Overview
//
//	Line:        <COMMAND> [<KEY>[=<VALUE>] ...]<LF | CR | CRLF>
//	Separator:   single space (0x20)
//	Assignment:  '=' (0x3D); a missing or repeated '=' yields an empty value
//	Terminator:  LF, CR or CRLF; CRLF completes exactly one command
//
// Each line produces one Attribute event per key, in order, followed by one
// Command event:
//
//	HELLO Name=Johnson\n  -> Attribute(HELLO, Name, Johnson), Command(HELLO)
//	EHLO\r\n              -> Command(EHLO)
//	SET Mode\n            -> Attribute(SET, Mode, ""), Command(SET)
//
// # Pipeline
//
// Bytes flow through fixed-capacity stages sized by Config:
//
//	source -> Fill -> Ring -> Tokenizer -> Lexer -> Handler
//	Handler -> Output -> Flush -> sink
//
// Nothing allocates after construction and no call blocks. When a stage
// cannot make progress it returns ErrWouldBlock and keeps its state, so the
// next poll resumes exactly where the last one stopped; a value split
// across any number of fills is reassembled.
//
// # Basic Usage
//
//	in, err := lightcli.NewInput(lightcli.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	out := lightcli.NewOutput(sink, lightcli.DefaultOutputCapacity)
//
//	reg := lightcli.NewRegistry()
//	reg.Handle("HELLO").
//	    OnKey("Name", func(v []byte) { name = string(v) }).
//	    OnDone(func() { fmt.Fprintf(out, "OK:hello %s\n", name) })
//
//	sess := lightcli.NewSession(in, out, src, reg, lightcli.WithLogger(logger))
//	for {
//	    if err := sess.Poll(); err != nil {
//	        sess.Resync()
//	    }
//	}
//
// # Borrowed Data
//
// Event and Token byte slices point into the parser's own buffers. They
// are valid until the next call into the component that produced them.
//
// # Errors
//
// ErrWouldBlock is the only retryable condition. Malformed UTF-8
// (ErrInvalidEncoding) and overflow (ErrCapacityExceeded) are reported as
// *Error values; the offending bytes stay buffered and the error repeats
// until Input.Resync (skip to the next line) or Input.Reset (drop
// everything buffered).
//
// # Thread Safety
//
// No type in this package is safe for concurrent use. Each Input, Output
// and Session belongs to a single polling goroutine.
package lightcli
