// =============================================================================
// serve.go - Device Server
// =============================================================================
//
// "lightcli serve" exposes the demo device on a Unix socket or TCP address.
// Every connection gets its own Input, Output and Session, polled through
// deadline adapters so a quiet client never blocks the loop for longer than
// the poll timeout.
//
// A malformed line (bad UTF-8, oversized token) is answered with an ERR
// line; the rest of that line is skipped and the connection stays open,
// so commands pipelined behind it are still answered.
//
// =============================================================================

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/attic/lightcli/lightcli"
)

// shutdownTimeout bounds the metrics server's graceful shutdown.
const shutdownTimeout = 2 * time.Second

func newServeCmd(opts *globalOptions) *cobra.Command {
	var socket, listen, metricsAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the demo device over a Unix socket or TCP",
		Long: `Serve the demo device to protocol clients.

Without --socket or --listen the server creates /tmp/lightcli-<pid>.sock,
which "lightcli send" discovers automatically.

Examples:
  lightcli serve
  lightcli serve --socket /tmp/dev.sock
  lightcli serve --listen 127.0.0.1:7070 --metrics-addr :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, log, err := opts.load(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if cmd.Flags().Changed("socket") {
				s.Serve.Socket = socket
			}
			if cmd.Flags().Changed("listen") {
				s.Serve.Listen = listen
			}
			if cmd.Flags().Changed("metrics-addr") {
				s.Serve.MetricsAddr = metricsAddr
			}
			return runServe(cmd.Context(), s, log)
		},
	}

	cmd.Flags().StringVar(&socket, "socket", "", "Unix socket path to listen on")
	cmd.Flags().StringVar(&listen, "listen", "", "TCP address to listen on (host:port)")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the Prometheus /metrics endpoint")
	cmd.MarkFlagsMutuallyExclusive("socket", "listen")

	return cmd
}

// listenAddress returns the network and address the server binds to.
func listenAddress(s serveSettings) (network, address string) {
	switch {
	case s.Listen != "":
		return "tcp", s.Listen
	case s.Socket != "":
		return "unix", s.Socket
	default:
		return "unix", socketPath(os.Getpid())
	}
}

func runServe(ctx context.Context, s settings, log *zap.Logger) error {
	network, address := listenAddress(s.Serve)
	ln, err := net.Listen(network, address)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	srv := newServer(s, log)
	g, ctx := errgroup.WithContext(ctx)

	if s.Serve.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		srv.metrics = newMetrics(reg)
		httpSrv := &http.Server{
			Addr:              s.Serve.MetricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("metrics endpoint listening", zap.String("addr", s.Serve.MetricsAddr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpSrv.Shutdown(shutdownCtx)
		})
	}

	fmt.Printf("%s listening on %s %s\n", fullTitle(), network, address)
	g.Go(func() error {
		return srv.serve(ctx, ln)
	})
	return g.Wait()
}

// server accepts connections and runs one device session per connection.
type server struct {
	cfg     settings
	log     *zap.Logger
	metrics *metrics // nil unless metrics are enabled

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

func newServer(cfg settings, log *zap.Logger) *server {
	return &server{
		cfg:   cfg,
		log:   log,
		conns: make(map[net.Conn]struct{}),
	}
}

// serve accepts connections on ln until ctx is cancelled, then closes the
// listener and every open connection and waits for their sessions to end.
func (s *server) serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		_ = ln.Close()
		s.closeAll()
		return nil
	})

	g.Go(func() error {
		for {
			conn, err := ln.Accept()
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
					return nil
				}
				return fmt.Errorf("accept: %w", err)
			}
			s.track(conn)
			g.Go(func() error {
				defer s.untrack(conn)
				s.handle(ctx, conn)
				return nil
			})
		}
	})

	return g.Wait()
}

func (s *server) track(conn net.Conn) {
	s.mu.Lock()
	s.conns[conn] = struct{}{}
	s.mu.Unlock()
	if s.metrics != nil {
		s.metrics.connections.Inc()
	}
}

func (s *server) untrack(conn net.Conn) {
	s.mu.Lock()
	delete(s.conns, conn)
	s.mu.Unlock()
	_ = conn.Close()
	if s.metrics != nil {
		s.metrics.connections.Dec()
	}
}

func (s *server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		_ = conn.Close()
	}
}

// handle polls one connection's session until the peer disconnects, the
// connection fails, or ctx is cancelled.
func (s *server) handle(ctx context.Context, conn net.Conn) {
	log := s.log.With(zap.String("remote", remoteName(conn)))
	log.Info("client connected")
	defer log.Info("client disconnected")

	in, err := lightcli.NewInput(s.cfg.Parser)
	if err != nil {
		log.Error("failed to create input", zap.Error(err))
		return
	}
	timeout := s.cfg.Serve.PollTimeout
	out := lightcli.NewOutput(&lightcli.DeadlineSink{Conn: conn, PollTimeout: timeout}, s.cfg.Parser.OutputCapacity)
	dev := newDevice(out)

	opts := []lightcli.SessionOption{lightcli.WithLogger(log)}
	if s.metrics != nil {
		opts = append(opts, lightcli.WithObserver(s.metrics))
	}
	sess := lightcli.NewSession(in, out, &lightcli.DeadlineSource{Conn: conn, PollTimeout: timeout}, dev, opts...)

	for ctx.Err() == nil {
		err := sess.Poll()
		switch {
		case err == nil:
		case errors.Is(err, lightcli.ErrInvalidEncoding), errors.Is(err, lightcli.ErrCapacityExceeded):
			fmt.Fprintf(out, "%s%v\n", errPrefix, err)
			sess.Resync()
			dev.resetLine()
		case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed):
			return
		default:
			log.Warn("connection failed", zap.Error(err))
			return
		}
	}
}

func remoteName(conn net.Conn) string {
	if addr := conn.RemoteAddr(); addr != nil && addr.String() != "" {
		return addr.String()
	}
	return conn.LocalAddr().Network()
}
