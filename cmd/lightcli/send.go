package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

// errCommandFailed reports that at least one command got an ERR response.
var errCommandFailed = errors.New("one or more commands failed")

func newSendCmd(opts *globalOptions) *cobra.Command {
	var socket, addr string
	var wait time.Duration

	cmd := &cobra.Command{
		Use:   "send COMMAND...",
		Short: "Send command lines to a running server",
		Long: `Send each argument as one command line and print the responses.

Without --socket or --addr the most recently started default socket in
/tmp is used. --wait gives a server that is still starting up time to
create its Unix socket.

Examples:
  lightcli send PING
  lightcli send "HELLO Name=Johnson" EHLO
  lightcli send --addr 127.0.0.1:7070 "SET mode=fast" "GET mode"
  lightcli send --socket /tmp/dev.sock --wait 5s PING`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			network, address := "unix", socket
			switch {
			case addr != "":
				network, address = "tcp", addr
			case socket != "":
			case s.Serve.Listen != "":
				network, address = "tcp", s.Serve.Listen
			case s.Serve.Socket != "":
				address = s.Serve.Socket
			default:
				address = discoverSocketWithin(wait)
				if address == "" {
					return errors.New("no running server found; start one with 'lightcli serve'")
				}
			}

			if network == "unix" && wait > 0 {
				if err := waitForSocket(address, wait); err != nil {
					return err
				}
			}

			client, err := Connect(cmd.Context(), network, address)
			if err != nil {
				return err
			}
			defer client.Close()
			return runSend(cmd.Context(), client, args, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Unix socket path of the server")
	cmd.Flags().StringVar(&addr, "addr", "", "TCP address of the server (host:port)")
	cmd.Flags().DurationVar(&wait, "wait", 0, "how long to wait for the Unix socket to appear")
	cmd.MarkFlagsMutuallyExclusive("socket", "addr")

	return cmd
}

// runSend sends each line and prints OK data to stdout and ERR data to
// stderr. Every line is sent even after a failure.
func runSend(ctx context.Context, client *Client, lines []string, stdout, stderr io.Writer) error {
	failed := false
	for _, line := range lines {
		resp, err := client.Send(ctx, line)
		if err != nil {
			return fmt.Errorf("%s: %w", line, err)
		}
		if resp.OK {
			fmt.Fprintln(stdout, resp.Data)
		} else {
			fmt.Fprintf(stderr, "Error: %s\n", resp.Data)
			failed = true
		}
	}
	if failed {
		return errCommandFailed
	}
	return nil
}
