// =============================================================================
// serve_test.go - End-to-End Tests for the Server and Client
// =============================================================================
//
// Each test starts a real server on a Unix socket in a fresh /tmp directory
// (t.TempDir paths can exceed the 104-byte socket path limit on macOS) and
// talks to it with Client, the same code path "lightcli send" uses.
//
// =============================================================================

package main

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap/zaptest"
)

type testServer struct {
	path    string
	srv     *server
	metrics *metrics
	done    chan error
}

// startServer serves the demo device until the test ends.
func startServer(t *testing.T) *testServer {
	t.Helper()

	dir, err := os.MkdirTemp("/tmp", "lightcli-test-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	path := filepath.Join(dir, "s.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}

	s := defaultSettings()
	s.Serve.PollTimeout = 2 * time.Millisecond
	ts := &testServer{
		path:    path,
		srv:     newServer(s, zaptest.NewLogger(t)),
		metrics: newMetrics(prometheus.NewRegistry()),
		done:    make(chan error, 1),
	}
	ts.srv.metrics = ts.metrics

	ctx, cancel := context.WithCancel(context.Background())
	go func() { ts.done <- ts.srv.serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-ts.done:
			if err != nil {
				t.Errorf("serve() error: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return ts
}

func (ts *testServer) connect(t *testing.T) *Client {
	t.Helper()
	c, err := Connect(context.Background(), "unix", ts.path)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestServerAnswersCommands(t *testing.T) {
	ts := startServer(t)
	c := ts.connect(t)
	ctx := context.Background()

	tests := []struct {
		line string
		want response
	}{
		{"HELLO Name=Johnson", response{OK: true, Data: "hello Johnson"}},
		{"EHLO", response{OK: true, Data: "Johnson"}},
		{"SET mode=fast", response{OK: true, Data: "set 1"}},
		{"GET mode", response{OK: true, Data: "mode=fast"}},
		{"FORMAT c:", response{OK: false, Data: "unknown command 'FORMAT'"}},
	}
	for _, tt := range tests {
		got, err := c.Send(ctx, tt.line)
		if err != nil {
			t.Fatalf("Send(%q) error: %v", tt.line, err)
		}
		if got != tt.want {
			t.Errorf("Send(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

// TestServerRecoversFromBadLine sends a line with a malformed byte and
// checks the connection stays usable afterwards.
func TestServerRecoversFromBadLine(t *testing.T) {
	ts := startServer(t)
	c := ts.connect(t)
	ctx := context.Background()

	got, err := c.Send(ctx, "PI\xff")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got.OK || !strings.Contains(got.Data, "invalid utf-8") {
		t.Errorf("response = %+v, want an encoding error", got)
	}

	got, err = c.Send(ctx, "PING")
	if err != nil {
		t.Fatalf("Send() after bad line: %v", err)
	}
	if !got.OK || got.Data != "pong" {
		t.Errorf("response = %+v, want pong", got)
	}

	if n := testutil.ToFloat64(ts.metrics.errors.WithLabelValues("encoding")); n != 1 {
		t.Errorf("encoding errors = %v, want 1", n)
	}
}

// TestServerPipelinedAfterBadLine writes a bad line and a good one in a
// single write; both must be answered, in order.
func TestServerPipelinedAfterBadLine(t *testing.T) {
	ts := startServer(t)

	conn, err := net.Dial("unix", ts.path)
	if err != nil {
		t.Fatalf("Dial() error: %v", err)
	}
	defer conn.Close()
	if err := conn.SetDeadline(time.Now().Add(5 * time.Second)); err != nil {
		t.Fatalf("SetDeadline() error: %v", err)
	}

	if _, err := conn.Write([]byte("PI\xff\nPING\n")); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	reader := bufio.NewReader(conn)
	first, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading first response: %v", err)
	}
	if !strings.HasPrefix(first, errPrefix) {
		t.Errorf("first response = %q, want an ERR line", first)
	}
	second, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("reading second response: %v", err)
	}
	if second != "OK:pong\n" {
		t.Errorf("second response = %q, want OK:pong", second)
	}
}

func TestServerSessionsAreIndependent(t *testing.T) {
	ts := startServer(t)
	a := ts.connect(t)
	b := ts.connect(t)
	ctx := context.Background()

	if _, err := a.Send(ctx, "HELLO Name=Ann"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	got, err := b.Send(ctx, "EHLO")
	if err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got.Data != "anonymous" {
		t.Errorf("second connection sees name %q", got.Data)
	}
}

func TestServerCountsConnections(t *testing.T) {
	ts := startServer(t)
	c := ts.connect(t)

	if n := testutil.ToFloat64(ts.metrics.connections); n != 1 {
		t.Errorf("open connections = %v, want 1", n)
	}

	c.Close()
	deadline := time.Now().Add(2 * time.Second)
	for testutil.ToFloat64(ts.metrics.connections) != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if n := testutil.ToFloat64(ts.metrics.connections); n != 0 {
		t.Errorf("open connections after close = %v, want 0", n)
	}
}

func TestRunSend(t *testing.T) {
	ts := startServer(t)
	c := ts.connect(t)

	var stdout, stderr bytes.Buffer
	err := runSend(context.Background(), c, []string{"PING", "NOPE", "EHLO"}, &stdout, &stderr)

	if !errors.Is(err, errCommandFailed) {
		t.Errorf("runSend() error = %v, want errCommandFailed", err)
	}
	if stdout.String() != "pong\nanonymous\n" {
		t.Errorf("stdout = %q", stdout.String())
	}
	if stderr.String() != "Error: unknown command 'NOPE'\n" {
		t.Errorf("stderr = %q", stderr.String())
	}
}

// TestSendWaitsForSocket starts the server only after "lightcli send" is
// already waiting for its socket.
func TestSendWaitsForSocket(t *testing.T) {
	dir, err := os.MkdirTemp("/tmp", "lightcli-test-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "late.sock")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		time.Sleep(150 * time.Millisecond)
		ln, err := net.Listen("unix", path)
		if err != nil {
			done <- err
			return
		}
		done <- newServer(defaultSettings(), zaptest.NewLogger(t)).serve(ctx, ln)
	}()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("server error: %v", err)
		}
	}()

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"send", "--log-level", "error", "--socket", path, "--wait", "3s", "PING"})

	if err := root.Execute(); err != nil {
		t.Fatalf("send error: %v", err)
	}
	if out.String() != "pong\n" {
		t.Errorf("stdout = %q, want pong", out.String())
	}
}

func TestSendWithoutWaitFailsFast(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"send", "--log-level", "error", "--socket", filepath.Join(t.TempDir(), "none.sock"), "PING"})

	start := time.Now()
	if err := root.Execute(); err == nil {
		t.Fatal("send should fail without a server")
	}
	if elapsed := time.Since(start); elapsed > connectionTimeout {
		t.Errorf("send took %v without --wait", elapsed)
	}
}

func TestConnectNoServer(t *testing.T) {
	_, err := Connect(context.Background(), "unix", filepath.Join(t.TempDir(), "none.sock"))

	var connErr *connectionError
	if !errors.As(err, &connErr) {
		t.Errorf("Connect() error = %v, want *connectionError", err)
	}
}

// TestConnectSilentPeer checks that a peer which never answers PING is
// reported instead of hanging.
func TestConnectSilentPeer(t *testing.T) {
	dir, err := os.MkdirTemp("/tmp", "lightcli-test-")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "silent.sock")

	ln, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	defer ln.Close()
	go func() {
		conn, err := ln.Accept()
		if err == nil {
			defer conn.Close()
			time.Sleep(3 * time.Second)
		}
	}()

	_, err = Connect(context.Background(), "unix", path)
	if !errors.Is(err, errTimeout) {
		t.Errorf("Connect() error = %v, want errTimeout", err)
	}
}

func TestSendAfterClose(t *testing.T) {
	ts := startServer(t)
	c := ts.connect(t)
	c.Close()

	if _, err := c.Send(context.Background(), "PING"); !errors.Is(err, errNotConnected) {
		t.Errorf("Send() error = %v, want errNotConnected", err)
	}
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		line    string
		want    response
		wantErr bool
	}{
		{"OK:pong\n", response{OK: true, Data: "pong"}, false},
		{"OK:\r\n", response{OK: true, Data: ""}, false},
		{"ERR:unknown command 'X'\n", response{OK: false, Data: "unknown command 'X'"}, false},
		{"garbage\n", response{}, true},
	}
	for _, tt := range tests {
		got, err := parseResponse(tt.line)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseResponse(%q) error = %v, wantErr %v", tt.line, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("parseResponse(%q) = %+v, want %+v", tt.line, got, tt.want)
		}
	}
}

func TestListenAddress(t *testing.T) {
	tests := []struct {
		name        string
		settings    serveSettings
		wantNetwork string
		wantAddress string
	}{
		{"tcp", serveSettings{Listen: "127.0.0.1:7070"}, "tcp", "127.0.0.1:7070"},
		{"socket", serveSettings{Socket: "/tmp/dev.sock"}, "unix", "/tmp/dev.sock"},
		{"default", serveSettings{}, "unix", socketPath(os.Getpid())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			network, address := listenAddress(tt.settings)
			if network != tt.wantNetwork || address != tt.wantAddress {
				t.Errorf("listenAddress() = %s %s, want %s %s", network, address, tt.wantNetwork, tt.wantAddress)
			}
		})
	}
}
