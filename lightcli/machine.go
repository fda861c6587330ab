package lightcli

// machineState is the lexer's position within a line.
type machineState int

const (
	// stateNewCommand expects a command name (initial state).
	stateNewCommand machineState = iota
	// stateAfterCR follows a CR; a LF here must not complete a second command.
	stateAfterCR
	// stateKey expects a key name or a terminator.
	stateKey
	// stateValue expects a value or a value-terminating delimiter.
	stateValue
)

func (s machineState) String() string {
	switch s {
	case stateNewCommand:
		return "NewCommand"
	case stateAfterCR:
		return "AfterCR"
	case stateKey:
		return "Key"
	case stateValue:
		return "Value"
	default:
		return "Unknown"
	}
}

// effect is the set of actions a transition asks the lexer to perform, in
// bit order.
type effect uint8

const (
	effStoreCommand   effect = 1 << iota // copy token text into the command buffer
	effStoreKey                          // copy token text into the key buffer
	effEmitAttribute                     // Attribute(command, key, token text)
	effEmitEmptyValue                    // Attribute(command, key, "")
	effEmitCommand                       // Command(command), then clear buffers

	effNone effect = 0
)

// transition is the lexer's state machine. It is a pure function of the
// current state and the kind of the incoming token.
func transition(s machineState, k TokenKind) (machineState, effect) {
	switch k {
	case TokenValue:
		switch s {
		case stateKey:
			return stateValue, effStoreKey
		case stateValue:
			return stateKey, effEmitAttribute
		default:
			return stateKey, effStoreCommand
		}

	case TokenSpace:
		if s == stateValue {
			return stateKey, effEmitEmptyValue
		}
		return s, effNone

	case TokenEquals:
		return s, effNone

	case TokenNewLine:
		switch s {
		case stateAfterCR:
			return stateNewCommand, effNone
		case stateValue:
			return stateNewCommand, effEmitEmptyValue | effEmitCommand
		default:
			return stateNewCommand, effEmitCommand
		}

	case TokenCarriageReturn:
		if s == stateValue {
			return stateAfterCR, effEmitEmptyValue | effEmitCommand
		}
		return stateAfterCR, effEmitCommand
	}
	return s, effNone
}
