// =============================================================================
// socket.go - Server Socket Naming and Discovery
// =============================================================================
//
// A server started without --socket or --listen creates a Unix socket named
// after its PID in /tmp. The send command finds the most recently created
// one when no address is given, and with --wait polls for the socket of a
// server that is still starting.
//
// =============================================================================

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"
)

const (
	// socketPathPrefix and socketPathSuffix frame the PID in a default
	// socket path: /tmp/lightcli-<pid>.sock
	socketPathPrefix = "/tmp/lightcli-"
	socketPathSuffix = ".sock"

	// socketPollInterval is how often waitForSocket checks for the file.
	socketPollInterval = 50 * time.Millisecond
)

// socketPath returns the default socket path for a server process.
func socketPath(pid int) string {
	return fmt.Sprintf("%s%d%s", socketPathPrefix, pid, socketPathSuffix)
}

// discoverSockets returns the default-named sockets in /tmp, most recently
// modified first.
func discoverSockets() ([]string, error) {
	matches, err := filepath.Glob(socketPathPrefix + "*" + socketPathSuffix)
	if err != nil {
		return nil, fmt.Errorf("failed to glob sockets: %w", err)
	}

	type socketInfo struct {
		path    string
		modTime time.Time
	}
	sockets := make([]socketInfo, 0, len(matches))
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || info.Mode()&os.ModeSocket == 0 {
			continue
		}
		sockets = append(sockets, socketInfo{path: path, modTime: info.ModTime()})
	}

	sort.Slice(sockets, func(i, j int) bool {
		return sockets[i].modTime.After(sockets[j].modTime)
	})

	result := make([]string, len(sockets))
	for i, s := range sockets {
		result[i] = s.path
	}
	return result, nil
}

// discoverSocket returns the most recently created server socket, or ""
// when none exists.
func discoverSocket() string {
	sockets, err := discoverSockets()
	if err != nil || len(sockets) == 0 {
		return ""
	}
	return sockets[0]
}

// discoverSocketWithin is discoverSocket retried until timeout elapses.
func discoverSocketWithin(timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for {
		if path := discoverSocket(); path != "" {
			return path
		}
		if !time.Now().Before(deadline) {
			return ""
		}
		time.Sleep(socketPollInterval)
	}
}

// waitForSocket polls until path exists or timeout elapses.
func waitForSocket(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("timeout waiting for socket %s", path)
		}
		time.Sleep(socketPollInterval)
	}
}

// homeDir returns the current user's home directory, or "" if unknown.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home
}
