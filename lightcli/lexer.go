package lightcli

// Lexer turns tokens into events. It keeps the current command and key
// between calls so that a line delivered over many polls is reassembled.
//
// The lexer never fails. A token can produce up to two events (an
// empty-valued attribute followed by the command completion); they are
// queued by Feed and handed out by Pop.
type Lexer struct {
	state   machineState
	command []byte
	key     []byte
	clear   bool // buffers were handed out with a Command event

	queue [2]Event
	head  int
	n     int
}

// NewLexer creates a lexer whose command and key buffers hold
// tokenCapacity bytes.
func NewLexer(tokenCapacity int) *Lexer {
	return &Lexer{
		command: make([]byte, 0, tokenCapacity),
		key:     make([]byte, 0, tokenCapacity),
	}
}

// Feed applies one token and returns the number of events queued. Events
// from an earlier Feed that were not popped are dropped.
func (l *Lexer) Feed(tok Token) int {
	if l.clear {
		l.command = l.command[:0]
		l.key = l.key[:0]
		l.clear = false
	}
	l.head, l.n = 0, 0

	next, eff := transition(l.state, tok.Kind)
	if eff&effStoreCommand != 0 {
		l.command = append(l.command[:0], tok.Text...)
	}
	if eff&effStoreKey != 0 {
		l.key = append(l.key[:0], tok.Text...)
	}
	if eff&effEmitAttribute != 0 {
		l.push(Event{Kind: EventAttribute, Command: l.command, Key: l.key, Value: tok.Text})
	}
	if eff&effEmitEmptyValue != 0 {
		l.push(Event{Kind: EventAttribute, Command: l.command, Key: l.key})
	}
	if eff&effEmitCommand != 0 {
		l.push(Event{Kind: EventCommand, Command: l.command})
		l.clear = true
	}
	l.state = next
	return l.n
}

func (l *Lexer) push(ev Event) {
	l.queue[l.n] = ev
	l.n++
}

// Pop returns the next queued event.
func (l *Lexer) Pop() (Event, bool) {
	if l.head == l.n {
		return Event{}, false
	}
	ev := l.queue[l.head]
	l.queue[l.head] = Event{}
	l.head++
	return ev, true
}

// Reset returns the lexer to its initial state.
func (l *Lexer) Reset() {
	l.state = stateNewCommand
	l.command = l.command[:0]
	l.key = l.key[:0]
	l.clear = false
	l.head, l.n = 0, 0
}
