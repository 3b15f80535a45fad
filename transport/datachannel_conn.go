// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"io"
	"net"
	"os"
	"sync"
	"time"
)

var _ net.Conn = (*DataChannelConn)(nil)

// DataChannelConn wraps a detached data channel as a net.Conn. SCTP
// handles fragmentation and reassembly, so the stream behaves like a
// TCP connection to the RPC framing above it.
//
// Deadlines are timer based: when one fires, the underlying stream is
// closed, unblocking pending I/O, and every later Read or Write returns
// os.ErrDeadlineExceeded. The connection cannot be reused afterwards.
type DataChannelConn struct {
	rwc        io.ReadWriteCloser
	localLabel string
	peerLabel  string

	mu         sync.Mutex
	readTimer  *time.Timer
	writeTimer *time.Timer
	expired    bool
}

// NewDataChannelConn wraps rwc. The labels name the local and remote
// endpoints in LocalAddr and RemoteAddr.
func NewDataChannelConn(rwc io.ReadWriteCloser, localLabel, peerLabel string) *DataChannelConn {
	return &DataChannelConn{
		rwc:        rwc,
		localLabel: localLabel,
		peerLabel:  peerLabel,
	}
}

func (c *DataChannelConn) Read(buffer []byte) (int, error) {
	n, err := c.rwc.Read(buffer)
	if err != nil && c.deadlineExpired() {
		return n, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *DataChannelConn) Write(buffer []byte) (int, error) {
	n, err := c.rwc.Write(buffer)
	if err != nil && c.deadlineExpired() {
		return n, os.ErrDeadlineExceeded
	}
	return n, err
}

func (c *DataChannelConn) Close() error {
	c.mu.Lock()
	c.stopTimersLocked()
	c.mu.Unlock()
	return c.rwc.Close()
}

func (c *DataChannelConn) LocalAddr() net.Addr {
	return &dataChannelAddr{label: c.localLabel}
}

func (c *DataChannelConn) RemoteAddr() net.Addr {
	return &dataChannelAddr{label: c.peerLabel}
}

// SetDeadline sets both deadlines. The zero time clears them.
func (c *DataChannelConn) SetDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.armLocked(c.readTimer, deadline)
	c.writeTimer = c.armLocked(c.writeTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetReadDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readTimer = c.armLocked(c.readTimer, deadline)
	return nil
}

func (c *DataChannelConn) SetWriteDeadline(deadline time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeTimer = c.armLocked(c.writeTimer, deadline)
	return nil
}

// armLocked replaces timer with one firing at deadline. A deadline in
// the past expires the connection immediately.
func (c *DataChannelConn) armLocked(timer *time.Timer, deadline time.Time) *time.Timer {
	if timer != nil {
		timer.Stop()
	}
	if deadline.IsZero() || c.expired {
		return nil
	}
	duration := time.Until(deadline)
	if duration <= 0 {
		c.expireLocked()
		return nil
	}
	return time.AfterFunc(duration, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.expireLocked()
	})
}

func (c *DataChannelConn) expireLocked() {
	if c.expired {
		return
	}
	c.expired = true
	c.rwc.Close()
}

func (c *DataChannelConn) deadlineExpired() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expired
}

func (c *DataChannelConn) stopTimersLocked() {
	if c.readTimer != nil {
		c.readTimer.Stop()
		c.readTimer = nil
	}
	if c.writeTimer != nil {
		c.writeTimer.Stop()
		c.writeTimer = nil
	}
}

type dataChannelAddr struct {
	label string
}

func (a *dataChannelAddr) Network() string { return "webrtc" }
func (a *dataChannelAddr) String() string  { return a.label }
