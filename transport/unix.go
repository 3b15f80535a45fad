// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"os"
	"time"
)

var (
	_ Listener = (*UnixListener)(nil)
	_ Dialer   = (*UnixDialer)(nil)
)

// UnixListener accepts connections on a Unix domain socket. A stale
// socket file left by a crashed process is removed before binding; the
// file is removed again on Close.
type UnixListener struct {
	path     string
	listener *net.UnixListener
	logger   *slog.Logger
}

// NewUnixListener binds a stream socket at path.
func NewUnixListener(path string, logger *slog.Logger) (*UnixListener, error) {
	if err := removeStaleSocket(path); err != nil {
		return nil, err
	}

	listener, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		return nil, fmt.Errorf("listening on %s: %w", path, err)
	}
	// Close removes the file itself.
	listener.SetUnlinkOnClose(false)

	return &UnixListener{path: path, listener: listener, logger: discardLogger(logger)}, nil
}

// Serve accepts connections and dispatches each to handler.
func (l *UnixListener) Serve(ctx context.Context, handler ConnHandler) error {
	return serveListener(ctx, l.listener, handler, l.logger)
}

// Address returns the socket path.
func (l *UnixListener) Address() string {
	return l.path
}

// Close stops accepting connections and removes the socket file.
func (l *UnixListener) Close() error {
	err := l.listener.Close()
	if removeErr := os.Remove(l.path); removeErr != nil && !errors.Is(removeErr, fs.ErrNotExist) && err == nil {
		err = removeErr
	}
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// removeStaleSocket deletes path if it is a socket nobody is listening
// on. Any other file type is left alone and reported.
func removeStaleSocket(path string) error {
	info, err := os.Lstat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking %s: %w", path, err)
	}
	if info.Mode()&fs.ModeSocket == 0 {
		return fmt.Errorf("%s exists and is not a socket", path)
	}

	conn, err := net.DialTimeout("unix", path, 100*time.Millisecond)
	if err == nil {
		conn.Close()
		return fmt.Errorf("%s is in use by another process", path)
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing stale socket %s: %w", path, err)
	}
	return nil
}

// UnixDialer opens connections to a Unix domain socket.
type UnixDialer struct {
	Timeout time.Duration
}

// DialContext connects to the socket at address (a filesystem path).
func (d *UnixDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	return (&net.Dialer{Timeout: d.Timeout}).DialContext(ctx, "unix", address)
}
