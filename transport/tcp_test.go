// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"
)

// echoHandler writes every line it reads back, prefixed with tag.
func echoHandler(tag string) ConnHandler {
	return ConnHandlerFunc(func(ctx context.Context, conn net.Conn) {
		defer conn.Close()
		reader := bufio.NewReader(conn)
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			if _, err := conn.Write([]byte(tag + line)); err != nil {
				return
			}
		}
	})
}

// roundTrip writes request as one line and reads one line back.
func roundTrip(conn net.Conn, request string) (string, error) {
	conn.SetDeadline(time.Now().Add(30 * time.Second))
	if _, err := conn.Write([]byte(request + "\n")); err != nil {
		return "", fmt.Errorf("writing %q: %w", request, err)
	}
	line, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading reply to %q: %w", request, err)
	}
	return strings.TrimSuffix(line, "\n"), nil
}

func exchange(t *testing.T, conn net.Conn, request string) string {
	t.Helper()
	reply, err := roundTrip(conn, request)
	if err != nil {
		t.Fatal(err)
	}
	return reply
}

func TestTCPListenerAddress(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	defer listener.Close()

	address := listener.Address()
	if !strings.HasPrefix(address, "127.0.0.1:") {
		t.Errorf("Address() = %q, want 127.0.0.1:<port>", address)
	}
}

func TestTCPRoundTrip(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Serve(ctx, echoHandler("tcp:"))

	dialer := &TCPDialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, listener.Address())
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if reply := exchange(t, conn, "create-session"); reply != "tcp:create-session" {
		t.Errorf("reply = %q, want %q", reply, "tcp:create-session")
	}
	if reply := exchange(t, conn, "save-frames"); reply != "tcp:save-frames" {
		t.Errorf("second reply = %q, want %q", reply, "tcp:save-frames")
	}
}

func TestTCPConcurrentConnections(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Serve(ctx, echoHandler(""))

	dialer := &TCPDialer{}
	first, err := dialer.DialContext(ctx, listener.Address())
	if err != nil {
		t.Fatalf("first DialContext: %v", err)
	}
	defer first.Close()
	second, err := dialer.DialContext(ctx, listener.Address())
	if err != nil {
		t.Fatalf("second DialContext: %v", err)
	}
	defer second.Close()

	// The first connection stays open while the second is served.
	if reply := exchange(t, second, "b"); reply != "b" {
		t.Errorf("second reply = %q, want %q", reply, "b")
	}
	if reply := exchange(t, first, "a"); reply != "a" {
		t.Errorf("first reply = %q, want %q", reply, "a")
	}
}

func TestTCPDialerConnectionRefused(t *testing.T) {
	dialer := &TCPDialer{Timeout: time.Second}

	// Port 1 is almost certainly not listening.
	if _, err := dialer.DialContext(context.Background(), "127.0.0.1:1"); err == nil {
		t.Error("expected error connecting to non-listening port")
	}
}

func TestTCPDialerContextCancellation(t *testing.T) {
	dialer := &TCPDialer{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := dialer.DialContext(ctx, "127.0.0.1:1"); err == nil {
		t.Error("expected error with cancelled context")
	}
}

func TestTCPListenerServeReturnsOnCancel(t *testing.T) {
	listener, err := NewTCPListener("127.0.0.1:0", nil)
	if err != nil {
		t.Fatalf("NewTCPListener: %v", err)
	}
	defer listener.Close()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- listener.Serve(ctx, echoHandler(""))
	}()

	// Hold a connection open so Serve must cancel its handler too.
	conn, err := (&TCPDialer{}).DialContext(context.Background(), listener.Address())
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	exchange(t, conn, "ping")

	cancel()
	conn.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v, want nil", err)
		}
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Error("Serve did not return after context cancellation")
	}
}
