// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
)

// ConnHandler serves one accepted connection. ServeConn owns conn and
// must close it before returning. ctx is cancelled when the listener
// shuts down.
type ConnHandler interface {
	ServeConn(ctx context.Context, conn net.Conn)
}

// ConnHandlerFunc adapts a function to ConnHandler.
type ConnHandlerFunc func(ctx context.Context, conn net.Conn)

// ServeConn calls f(ctx, conn).
func (f ConnHandlerFunc) ServeConn(ctx context.Context, conn net.Conn) {
	f(ctx, conn)
}

// Listener accepts inbound connections from capture devices.
type Listener interface {
	// Serve accepts connections and runs handler for each on its own
	// goroutine. Blocks until ctx is cancelled or Close is called, then
	// waits for running handlers. Returns nil on clean shutdown.
	Serve(ctx context.Context, handler ConnHandler) error

	// Address returns the address devices dial to reach this listener.
	// The format is transport-specific: "host:port" for TCP, a socket
	// path for Unix, a peer name for WebRTC.
	Address() string

	// Close stops accepting connections.
	Close() error
}

// Dialer opens connections to a listener.
type Dialer interface {
	// DialContext opens a stream connection to address, which has the
	// format the peer's Listener.Address returns.
	DialContext(ctx context.Context, address string) (net.Conn, error)
}

// serveListener is the accept loop shared by every Listener. It closes
// listener when ctx is done and waits for handlers before returning.
func serveListener(ctx context.Context, listener net.Listener, handler ConnHandler, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	var handlers sync.WaitGroup
	defer handlers.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}

		logger.Debug("connection accepted", "remote", conn.RemoteAddr().String())
		handlers.Go(func() {
			handler.ServeConn(ctx, conn)
		})
	}
}

func discardLogger(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger
}
