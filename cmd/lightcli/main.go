// =============================================================================
// main.go - lightcli Entry Point
// =============================================================================
//
// lightcli is the command-line companion of the lightcli parser package. It
// drives the same demo device through four front ends:
//
//	lightcli parse [FILE]        print the events a byte stream produces
//	lightcli repl                type commands at the device
//	lightcli serve               expose the device on a socket
//	lightcli send COMMAND...     talk to a running server
//
// Global flags (config file, log level, buffer capacities) are shared by all
// subcommands; see config.go for how they combine with the config file and
// LIGHTCLI_* environment variables.
//
// =============================================================================

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

const (
	version   = "0.1.0"
	appName   = "lightcli"
	copyright = "Copyright (c) 2026"
)

// fullTitle returns the application name with its version.
func fullTitle() string {
	return fmt.Sprintf("%s v%s (Go)", appName, version)
}

// welcomeBanner is printed when the REPL starts on a terminal.
func welcomeBanner() string {
	return fmt.Sprintf(`%s - line protocol console
%s

Type '.help' for available commands.
Type '.quit' to exit.
`, fullTitle(), copyright)
}

// printError prints an error message to stderr.
func printError(message string) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", message)
}

// newRootCmd builds the command tree.
//
// GO CONCEPT: Constructor Functions Instead of Globals
// ----------------------------------------------------
// Building the tree in a function rather than in package-level variables
// with init() means every test gets a fresh, independent command with its
// own flag values.
func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:           appName,
		Short:         "Bounded line protocol parser and device console",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate(fullTitle() + "\n")
	opts.register(root)

	root.AddCommand(
		newParseCmd(opts),
		newReplCmd(opts),
		newServeCmd(opts),
		newSendCmd(opts),
	)
	return root
}

func main() {
	// GO CONCEPT: Context Cancellation on Signals
	// -------------------------------------------
	// signal.NotifyContext returns a context that is cancelled on SIGINT or
	// SIGTERM. Long-running subcommands (serve) watch ctx.Done() and shut
	// down cleanly instead of being killed mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		printError(err.Error())
		stop()
		os.Exit(1)
	}
}
