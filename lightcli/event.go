package lightcli

import "fmt"

// EventKind represents the type of parser event.
type EventKind int

const (
	// EventAttribute indicates a key/value pair of the current command.
	EventAttribute EventKind = iota
	// EventCommand indicates the current command line was terminated.
	EventCommand
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventAttribute:
		return "Attribute"
	case EventCommand:
		return "Command"
	default:
		return "Unknown"
	}
}

// Event is one parser event. The byte slices are borrowed from the parser
// and valid only until the next call into the Input that produced the
// event; copy anything that must be retained.
type Event struct {
	Kind EventKind

	// Set for both kinds
	Command []byte

	// For EventAttribute
	Key   []byte
	Value []byte
}

// NewAttributeEvent creates an attribute event.
func NewAttributeEvent(command, key, value []byte) Event {
	return Event{Kind: EventAttribute, Command: command, Key: key, Value: value}
}

// NewCommandEvent creates a command-complete event.
func NewCommandEvent(command []byte) Event {
	return Event{Kind: EventCommand, Command: command}
}

// IsAttribute returns true for attribute events.
func (e Event) IsAttribute() bool {
	return e.Kind == EventAttribute
}

// IsCommand returns true for command-complete events.
func (e Event) IsCommand() bool {
	return e.Kind == EventCommand
}

// Format returns a readable rendering, e.g. Attribute(HELLO, Name, Johnson).
// It allocates and is meant for logs and tests.
func (e Event) Format() string {
	switch e.Kind {
	case EventAttribute:
		return fmt.Sprintf("Attribute(%s, %s, %s)", e.Command, e.Key, e.Value)
	case EventCommand:
		return fmt.Sprintf("Command(%s)", e.Command)
	default:
		return "Unknown()"
	}
}

// Visit dispatches the event to h.
func (e Event) Visit(h Handler) {
	switch e.Kind {
	case EventAttribute:
		h.HandleAttribute(e.Command, e.Key, e.Value)
	case EventCommand:
		h.HandleCommand(e.Command)
	}
}

// Handler receives parser events. Arguments are borrowed; see Event.
type Handler interface {
	HandleAttribute(command, key, value []byte)
	HandleCommand(command []byte)
}

// HandlerFuncs adapts a pair of functions to the Handler interface. Nil
// fields ignore their events.
type HandlerFuncs struct {
	Attribute func(command, key, value []byte)
	Command   func(command []byte)
}

// HandleAttribute implements Handler.
func (h HandlerFuncs) HandleAttribute(command, key, value []byte) {
	if h.Attribute != nil {
		h.Attribute(command, key, value)
	}
}

// HandleCommand implements Handler.
func (h HandlerFuncs) HandleCommand(command []byte) {
	if h.Command != nil {
		h.Command(command)
	}
}
