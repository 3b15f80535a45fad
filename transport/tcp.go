// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"log/slog"
	"net"
	"time"
)

var (
	_ Listener = (*TCPListener)(nil)
	_ Dialer   = (*TCPDialer)(nil)
)

// TCPListener accepts inbound TCP connections. It requires direct
// reachability between device and collector; use [WebRTCTransport]
// across NAT.
type TCPListener struct {
	listener net.Listener
	logger   *slog.Logger
}

// NewTCPListener listens on address (e.g. ":7461" or
// "192.168.1.10:7461"). Use ":0" for a random available port.
func NewTCPListener(address string, logger *slog.Logger) (*TCPListener, error) {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &TCPListener{listener: listener, logger: discardLogger(logger)}, nil
}

// Serve accepts TCP connections and dispatches each to handler.
func (l *TCPListener) Serve(ctx context.Context, handler ConnHandler) error {
	return serveListener(ctx, l.listener, handler, l.logger)
}

// Address returns the listening address in "host:port" format.
func (l *TCPListener) Address() string {
	return l.listener.Addr().String()
}

// Close stops accepting connections.
func (l *TCPListener) Close() error {
	return l.listener.Close()
}

// TCPDialer opens TCP connections to a collector.
type TCPDialer struct {
	// Timeout bounds connection establishment. Zero means only the
	// context deadline applies.
	Timeout time.Duration

	// KeepAlive is the TCP keep-alive period. Zero uses the net
	// package default; negative disables keep-alives.
	KeepAlive time.Duration
}

// DialContext opens a TCP connection to address (host:port).
func (d *TCPDialer) DialContext(ctx context.Context, address string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: d.Timeout, KeepAlive: d.KeepAlive}
	return dialer.DialContext(ctx, "tcp", address)
}
