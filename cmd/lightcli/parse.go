// =============================================================================
// parse.go - Offline Parsing
// =============================================================================
//
// "lightcli parse" runs a file (or stdin) through the parser the way a slow
// serial line would deliver it: in fixed-size chunks, one poll per chunk.
// It prints every event, which makes it handy for checking how a captured
// device log splits into commands.
//
//	$ printf 'HELLO Name=Johnson\nEHLO\r\n' | lightcli parse --chunk 3
//	ATTR HELLO Name=Johnson
//	CMD HELLO
//	CMD EHLO
//
// =============================================================================

package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/attic/lightcli/lightcli"
)

// parseOptions holds the parse command's flags.
type parseOptions struct {
	chunk  int
	resync bool
}

func newParseCmd(opts *globalOptions) *cobra.Command {
	var po parseOptions

	cmd := &cobra.Command{
		Use:   "parse [FILE]",
		Short: "Print the events a byte stream produces",
		Long: `Feed FILE (or stdin) to the parser in --chunk sized slices and print
each event as "ATTR <command> <key>=<value>" or "CMD <command>".

A malformed byte stops parsing with its offset; with --resync the rest of
that line is skipped and parsing continues with the next line.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			data, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("failed to read input: %w", err)
			}
			return runParse(data, s.Parser, po, cmd.OutOrStdout(), cmd.ErrOrStderr(), log)
		},
	}

	cmd.Flags().IntVar(&po.chunk, "chunk", lightcli.DefaultInputCapacity, "bytes delivered per poll")
	cmd.Flags().BoolVar(&po.resync, "resync", false, "skip the offending line and continue")

	return cmd
}

// eventPrinter writes events in the parse command's text format.
type eventPrinter struct {
	w *bufio.Writer
}

func (p eventPrinter) HandleAttribute(command, key, value []byte) {
	fmt.Fprintf(p.w, "ATTR %s %s=%s\n", command, key, value)
}

func (p eventPrinter) HandleCommand(command []byte) {
	fmt.Fprintf(p.w, "CMD %s\n", command)
}

// runParse feeds data through a session in po.chunk sized pieces.
func runParse(data []byte, cfg lightcli.Config, po parseOptions, stdout, stderr io.Writer, log *zap.Logger) error {
	if po.chunk <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", po.chunk)
	}
	in, err := lightcli.NewInput(cfg)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	defer w.Flush()

	src := lightcli.NewMemorySource(nil)
	sess := lightcli.NewSession(in, nil, src, eventPrinter{w: w}, lightcli.WithLogger(log))

	for {
		if len(data) > 0 {
			n := min(po.chunk, len(data))
			src.Feed(data[:n])
			data = data[n:]
		} else {
			_ = src.Close()
		}

		err := sess.Poll()
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if n := in.Buffered(); n > 0 {
				fmt.Fprintf(stderr, "Warning: %d trailing bytes form an incomplete character\n", n)
			}
			return nil
		default:
			offset := src.Offset() - in.Buffered()
			if !po.resync {
				return fmt.Errorf("at byte %d: %w", offset, err)
			}
			w.Flush()
			fmt.Fprintf(stderr, "Error: at byte %d: %v (resyncing)\n", offset, err)
			sess.Resync()
		}
	}
}
