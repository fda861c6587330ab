// =============================================================================
// device.go - Demo Device
// =============================================================================
//
// The demo device is what the REPL and the server talk to. It is a small
// key/value responder built on lightcli.Registry, answering each command
// line with exactly one response line:
//
//	PING                   -> OK:pong
//	HELLO Name=<n>         -> OK:hello <n>     (remembers the name)
//	EHLO                   -> OK:<name>        (or OK:anonymous)
//	SET k=v ...            -> OK:set <count>
//	GET k ...              -> OK:k=v ...       (known keys only)
//	HELP                   -> OK:<commands>
//	anything else          -> ERR:unknown command '<cmd>'
//	unexpected key         -> ERR:unknown key '<key>' for '<cmd>'
//
// Empty lines are ignored.
//
// =============================================================================

package main

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/attic/lightcli/lightcli"
)

const (
	// okPrefix starts a success response line.
	okPrefix = "OK:"

	// errPrefix starts an error response line.
	errPrefix = "ERR:"
)

// device answers command lines. It implements lightcli.Handler by
// delegating to its registry and reporting the first failure of each line
// when the line completes.
type device struct {
	reg *lightcli.Registry
	out io.Writer

	name  string
	store map[string]string

	// Per-line state, cleared when a command completes.
	failure string
	setN    int
	getKeys []string
}

// newDevice creates a device writing its responses to out.
func newDevice(out io.Writer) *device {
	d := &device{
		reg:   lightcli.NewRegistry(),
		out:   out,
		store: make(map[string]string),
	}

	d.reg.Handle("PING").
		OnDone(d.guard(func() { d.reply("pong") }))

	d.reg.Handle("HELLO").
		OnKey("Name", func(v []byte) { d.name = string(v) }).
		OnDone(d.guard(func() { d.reply("hello " + d.displayName()) }))

	d.reg.Handle("EHLO").
		OnDone(d.guard(func() { d.reply(d.displayName()) }))

	d.reg.Handle("SET").
		OnAnyKey(func(k, v []byte) {
			d.store[string(k)] = string(v)
			d.setN++
		}).
		OnDone(d.guard(func() { d.reply(fmt.Sprintf("set %d", d.setN)) }))

	d.reg.Handle("GET").
		OnAnyKey(func(k, _ []byte) { d.getKeys = append(d.getKeys, string(k)) }).
		OnDone(d.guard(func() {
			pairs := make([]string, 0, len(d.getKeys))
			for _, k := range d.getKeys {
				if v, ok := d.store[k]; ok {
					pairs = append(pairs, k+"="+v)
				}
			}
			d.reply(strings.Join(pairs, " "))
		}))

	d.reg.Handle("HELP").
		OnDone(d.guard(func() {
			names := d.reg.Commands()
			slices.Sort(names)
			d.reply(strings.Join(names, " "))
		}))

	d.reg.OnUnknownCommand(func(cmd []byte) {
		d.fail(fmt.Sprintf("unknown command '%s'", cmd))
	})
	d.reg.OnUnknownKey(func(cmd, key, _ []byte) {
		d.fail(fmt.Sprintf("unknown key '%s' for '%s'", key, cmd))
	})

	return d
}

// HandleAttribute implements lightcli.Handler.
func (d *device) HandleAttribute(command, key, value []byte) {
	d.reg.HandleAttribute(command, key, value)
}

// HandleCommand implements lightcli.Handler.
func (d *device) HandleCommand(command []byte) {
	defer d.resetLine()
	if len(command) == 0 {
		return
	}
	d.reg.HandleCommand(command)
	if d.failure != "" {
		fmt.Fprintf(d.out, "%s%s\n", errPrefix, d.failure)
	}
}

// guard skips a completion action when the line already failed.
func (d *device) guard(fn func()) func() {
	return func() {
		if d.failure == "" {
			fn()
		}
	}
}

func (d *device) fail(msg string) {
	if d.failure == "" {
		d.failure = msg
	}
}

func (d *device) reply(data string) {
	fmt.Fprintf(d.out, "%s%s\n", okPrefix, data)
}

func (d *device) displayName() string {
	if d.name == "" {
		return "anonymous"
	}
	return d.name
}

// resetLine drops the state of a partially received line. It is also used
// after the input was resynchronized.
func (d *device) resetLine() {
	d.failure = ""
	d.setN = 0
	d.getKeys = d.getKeys[:0]
}
