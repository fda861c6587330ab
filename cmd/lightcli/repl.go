// =============================================================================
// repl.go - Interactive Device Console
// =============================================================================
//
// The REPL plays the role of a serial terminal attached to the demo device.
// Each line typed is delivered to the device's input with a trailing LF,
// polled once, and whatever the device queued in its output is flushed to
// stdout.
//
// Lines starting with '.' are console commands and never reach the device:
//
//	.help    list console and device commands
//	.stats   show session counters
//	.reset   discard any partially received input
//	.quit    leave the console
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attic/lightcli/lightcli"
)

// replPrompt is shown before each input line.
const replPrompt = "lightcli> "

// lineReader is the part of LineEditor the REPL needs.
//
// GO CONCEPT: Implicit Interface Satisfaction
// -------------------------------------------
// *LineEditor never declares that it implements lineReader; having a
// GetLine method with the right signature is enough. Tests pass a scripted
// reader without touching os.Stdin.
type lineReader interface {
	GetLine(prompt string) (string, error)
}

func newReplCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Talk to the demo device interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			editor := NewLineEditor()
			defer editor.Close()

			out := cmd.OutOrStdout()
			if editor.IsInteractive() {
				fmt.Fprint(out, welcomeBanner())
			}
			return runREPL(editor, s.Parser, out, log)
		},
	}
}

// console is the REPL's device connection: a session whose source is fed
// one line at a time and whose sink is stdout.
type console struct {
	src  *lightcli.MemorySource
	sess *lightcli.Session
	dev  *device
	out  *lightcli.Output
	w    *bufio.Writer
}

func newConsole(cfg lightcli.Config, stdout io.Writer, log *zap.Logger) (*console, error) {
	in, err := lightcli.NewInput(cfg)
	if err != nil {
		return nil, err
	}
	w := bufio.NewWriter(stdout)
	out := lightcli.NewOutput(w, cfg.OutputCapacity)
	dev := newDevice(out)
	src := lightcli.NewMemorySource(nil)
	return &console{
		src:  src,
		sess: lightcli.NewSession(in, out, src, dev, lightcli.WithLogger(log)),
		dev:  dev,
		out:  out,
		w:    w,
	}, nil
}

// deliver sends one line to the device and prints its response.
func (c *console) deliver(line string) error {
	c.src.Feed([]byte(line))
	c.src.Feed([]byte{lightcli.LineFeed})

	err := c.sess.Poll()
	if err != nil {
		c.sess.Resync()
		c.dev.resetLine()
	}
	if ferr := c.out.Flush(); ferr != nil {
		return ferr
	}
	if ferr := c.w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

// runREPL reads lines until EOF or .quit.
func runREPL(editor lineReader, cfg lightcli.Config, stdout io.Writer, log *zap.Logger) error {
	con, err := newConsole(cfg, stdout, log)
	if err != nil {
		return err
	}

	for {
		line, err := editor.GetLine(replPrompt)
		if errors.Is(err, io.EOF) {
			fmt.Fprintln(stdout)
			return nil
		}
		if err != nil {
			return err
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, ".") {
			if quit := con.dotCommand(trimmed, stdout); quit {
				return nil
			}
			continue
		}

		if err := con.deliver(line); err != nil {
			fmt.Fprintf(stdout, "Error: %v\n", err)
		}
	}
}

// dotCommand runs a console command and reports whether the REPL should
// exit.
func (c *console) dotCommand(cmd string, stdout io.Writer) bool {
	switch cmd {
	case ".quit", ".exit":
		return true
	case ".help":
		fmt.Fprint(stdout, replHelp)
	case ".stats":
		st := c.sess.Stats()
		fmt.Fprintf(stdout, "polls=%d bytes=%d commands=%d attributes=%d errors=%d\n",
			st.Polls, st.BytesIn, st.Commands, st.Attributes, st.Errors)
	case ".reset":
		c.sess.Reset()
		c.dev.resetLine()
		fmt.Fprintln(stdout, "Input reset")
	default:
		fmt.Fprintf(stdout, "Error: unknown console command %s (try .help)\n", cmd)
	}
	return false
}

const replHelp = `Console commands:
  .help     Show this help
  .stats    Show session counters
  .reset    Discard partially received input
  .quit     Exit

Device commands:
  PING                 Check the device answers
  HELLO Name=<name>    Introduce yourself
  EHLO                 Ask the device who you are
  SET <key>=<value>... Store values
  GET <key>...         Read stored values
  HELP                 List device commands
`
