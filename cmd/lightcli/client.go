// =============================================================================
// client.go - Protocol Client
// =============================================================================
//
// Client sends command lines to a running "lightcli serve" and reads the
// single response line the device answers with. Connect verifies the peer
// with PING before returning, so a stale socket file is reported as a
// connection error rather than a hang on the first command.
//
// =============================================================================

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"
)

const (
	// connectionTimeout bounds dialing the server.
	connectionTimeout = 5 * time.Second

	// pingTimeout bounds the PING exchange done by Connect.
	pingTimeout = time.Second

	// commandTimeout is the default time to wait for a response.
	commandTimeout = 10 * time.Second
)

var (
	// errNotConnected is returned when sending on a closed client.
	errNotConnected = errors.New("not connected")

	// errTimeout is returned when the server does not answer in time.
	errTimeout = errors.New("timed out waiting for response")
)

// connectionError wraps a transport failure with what was being attempted.
type connectionError struct {
	Message string
	Err     error
}

func (e *connectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *connectionError) Unwrap() error {
	return e.Err
}

// response is one parsed response line.
type response struct {
	OK   bool
	Data string
}

// parseResponse splits a response line into status and data.
func parseResponse(line string) (response, error) {
	line = strings.TrimRight(line, "\r\n")
	switch {
	case strings.HasPrefix(line, okPrefix):
		return response{OK: true, Data: strings.TrimPrefix(line, okPrefix)}, nil
	case strings.HasPrefix(line, errPrefix):
		return response{OK: false, Data: strings.TrimPrefix(line, errPrefix)}, nil
	default:
		return response{}, fmt.Errorf("invalid response %q", line)
	}
}

// Client is a line-oriented protocol client. It is safe for concurrent use;
// requests are serialized.
type Client struct {
	mu     sync.Mutex
	conn   net.Conn
	reader *bufio.Reader
}

// Connect dials network/address and checks the server answers PING.
func Connect(ctx context.Context, network, address string) (*Client, error) {
	dialCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(dialCtx, network, address)
	if err != nil {
		return nil, &connectionError{Message: "failed to connect", Err: err}
	}

	c := &Client{conn: conn, reader: bufio.NewReader(conn)}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()
	resp, err := c.Send(pingCtx, "PING")
	if err != nil {
		c.Close()
		return nil, &connectionError{Message: "ping failed", Err: err}
	}
	if !resp.OK || resp.Data != "pong" {
		c.Close()
		return nil, &connectionError{Message: "server ping failed"}
	}
	return c, nil
}

// Send writes line followed by LF and waits for one response line. Without
// a context deadline, commandTimeout applies.
func (c *Client) Send(ctx context.Context, line string) (response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return response{}, errNotConnected
	}

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(commandTimeout)
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return response{}, &connectionError{Message: "failed to set deadline", Err: err}
	}

	if _, err := c.conn.Write([]byte(line + "\n")); err != nil {
		return response{}, &connectionError{Message: "failed to send command", Err: err}
	}

	text, err := c.reader.ReadString('\n')
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return response{}, errTimeout
		}
		return response{}, &connectionError{Message: "disconnected", Err: err}
	}
	return parseResponse(text)
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}
