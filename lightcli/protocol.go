package lightcli

import (
	"fmt"
	"unicode/utf8"
)

// Delimiter bytes recognized by the tokenizer.
const (
	// Space separates the command and each key/value pair.
	Space = ' '

	// Equals separates a key from its value.
	Equals = '='

	// CarriageReturn terminates a line; a following LineFeed is absorbed.
	CarriageReturn = '\r'

	// LineFeed terminates a line.
	LineFeed = '\n'
)

// Default capacities fit a small microcontroller build:
// a 64-byte receive ring, 32-byte strings and a 128-byte transmit ring.
const (
	// DefaultInputCapacity is the number of received bytes held before
	// tokenizing is required.
	DefaultInputCapacity = 64

	// DefaultTokenCapacity is the maximum size in bytes of a command, key
	// or value.
	DefaultTokenCapacity = 32

	// DefaultOutputCapacity is the number of bytes queued before a flush
	// is required.
	DefaultOutputCapacity = 128
)

// Config holds the construction-time capacities of a parser instance.
// Nothing grows after construction.
type Config struct {
	InputCapacity  int `yaml:"input_capacity"`
	TokenCapacity  int `yaml:"token_capacity"`
	OutputCapacity int `yaml:"output_capacity"`
}

// DefaultConfig returns the default capacities.
func DefaultConfig() Config {
	return Config{
		InputCapacity:  DefaultInputCapacity,
		TokenCapacity:  DefaultTokenCapacity,
		OutputCapacity: DefaultOutputCapacity,
	}
}

// Validate checks that every capacity is usable. The input ring must hold
// at least one complete UTF-8 sequence, otherwise a 4-byte scalar could
// never be decoded.
func (c Config) Validate() error {
	if c.InputCapacity < utf8.UTFMax {
		return fmt.Errorf("input capacity %d is below the minimum of %d", c.InputCapacity, utf8.UTFMax)
	}
	if c.TokenCapacity <= 0 {
		return fmt.Errorf("token capacity must be positive, got %d", c.TokenCapacity)
	}
	if c.OutputCapacity <= 0 {
		return fmt.Errorf("output capacity must be positive, got %d", c.OutputCapacity)
	}
	return nil
}
