// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/arcollect/arcollect/lib/testutil"
)

func TestUnixRoundTrip(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "collector.sock")
	listener, err := NewUnixListener(path, testutil.Logger(t))
	if err != nil {
		t.Fatalf("NewUnixListener: %v", err)
	}
	defer listener.Close()

	if listener.Address() != path {
		t.Errorf("Address() = %q, want %q", listener.Address(), path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go listener.Serve(ctx, echoHandler("unix:"))

	conn, err := (&UnixDialer{}).DialContext(ctx, path)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if reply := exchange(t, conn, "list-sessions"); reply != "unix:list-sessions" {
		t.Errorf("reply = %q, want %q", reply, "unix:list-sessions")
	}
}

func TestUnixListenerRemovesStaleSocket(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "stale.sock")

	// A socket file with nobody listening, as a crashed process leaves.
	stale, err := net.ListenUnix("unix", &net.UnixAddr{Name: path, Net: "unix"})
	if err != nil {
		t.Fatalf("ListenUnix: %v", err)
	}
	stale.SetUnlinkOnClose(false)
	stale.Close()

	listener, err := NewUnixListener(path, nil)
	if err != nil {
		t.Fatalf("NewUnixListener over stale socket: %v", err)
	}
	if err := listener.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("socket file still present after Close: %v", err)
	}
}

func TestUnixListenerRefusesLiveSocket(t *testing.T) {
	path := filepath.Join(testutil.SocketDir(t), "live.sock")
	first, err := NewUnixListener(path, nil)
	if err != nil {
		t.Fatalf("first NewUnixListener: %v", err)
	}
	defer first.Close()

	if _, err := NewUnixListener(path, nil); err == nil {
		t.Fatal("second listener on a live socket succeeded")
	}
}

func TestUnixListenerRefusesRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-socket")
	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := NewUnixListener(path, nil); err == nil {
		t.Fatal("listener replaced a regular file")
	}
}
