// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/codec"
	"github.com/arcollect/arcollect/lib/netutil"
)

// writeTimeout bounds one frame write. A stalled peer fails the whole
// connection rather than a single call.
const writeTimeout = 30 * time.Second

// Client issues calls over one connection. Safe for concurrent use.
type Client struct {
	conn   net.Conn
	limits Limits
	logger *slog.Logger

	// writeSlot serializes frame writes. It is a channel so a caller
	// can give up waiting when its context ends.
	writeSlot chan struct{}

	mu      sync.Mutex
	nextID  uint64
	pending map[uint64]chan Response
	err     error // set once, wraps ErrClosed

	done chan struct{}
}

// NewClient takes ownership of conn and starts reading responses from
// it. Close the client to release the connection.
func NewClient(conn net.Conn, limits Limits, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := &Client{
		conn:      conn,
		limits:    limits.withDefaults(),
		logger:    logger,
		writeSlot: make(chan struct{}, 1),
		pending:   make(map[uint64]chan Response),
		done:      make(chan struct{}),
	}
	go client.readLoop()
	return client
}

// Call sends action with params and waits for its response. On
// success, response data is decoded into result when both are non-nil.
// params may be nil for actions without parameters.
//
// Errors: *RemoteError when the server rejected the call, ctx.Err()
// when ctx ended first, an error wrapping ErrClosed when the
// connection is gone. Calls are never retried.
func (c *Client) Call(ctx context.Context, action string, params, result any) error {
	var encodedParams codec.RawMessage
	if params != nil {
		data, err := codec.Marshal(params)
		if err != nil {
			return fmt.Errorf("encoding %s params: %w", action, err)
		}
		encodedParams = data
	}

	replies, id, err := c.register()
	if err != nil {
		return fmt.Errorf("calling %s: %w", action, err)
	}
	defer c.unregister(id)

	body, err := codec.Marshal(Request{ID: id, Action: action, Params: encodedParams})
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", action, err)
	}
	if len(body) > c.limits.MaxRequestSize {
		return fmt.Errorf("%s request is %d bytes, limit %d", action, len(body), c.limits.MaxRequestSize)
	}

	if err := c.send(ctx, body); err != nil {
		return fmt.Errorf("calling %s: %w", action, err)
	}

	select {
	case response := <-replies:
		if !response.OK {
			return &RemoteError{Action: action, Message: response.Error, Code: response.Code}
		}
		if result != nil && len(response.Data) > 0 {
			if err := codec.Unmarshal(response.Data, result); err != nil {
				return fmt.Errorf("decoding %s response: %w", action, err)
			}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("calling %s: %w", action, c.Err())
	}
}

// Close closes the connection. Pending calls fail with ErrClosed.
func (c *Client) Close() error {
	c.fail(ErrClosed)
	return nil
}

// Done is closed when the connection is gone.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns nil while the connection is usable, then the error that
// ended it. The error wraps ErrClosed.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Client) register() (chan Response, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, 0, c.err
	}
	c.nextID++
	replies := make(chan Response, 1)
	c.pending[c.nextID] = replies
	return replies, c.nextID, nil
}

func (c *Client) unregister(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.pending, id)
}

// send writes one frame. Waiting for the write slot honors ctx; a write
// already started runs to completion so the stream stays framed.
func (c *Client) send(ctx context.Context, body []byte) error {
	select {
	case c.writeSlot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return c.Err()
	}
	defer func() { <-c.writeSlot }()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeFrame(c.conn, body); err != nil {
		c.fail(fmt.Errorf("%w: writing request: %v", ErrClosed, err))
		return c.Err()
	}
	return nil
}

func (c *Client) readLoop() {
	reader := bufio.NewReader(c.conn)
	for {
		body, err := readFrame(reader, c.limits.MaxResponseSize)
		if err != nil {
			if netutil.IsExpectedCloseError(err) {
				c.fail(fmt.Errorf("%w: server closed the connection: %v", ErrClosed, err))
			} else {
				c.fail(fmt.Errorf("%w: reading response: %v", ErrClosed, err))
			}
			return
		}

		var response Response
		if err := codec.Unmarshal(body, &response); err != nil {
			c.fail(fmt.Errorf("%w: decoding response: %v", ErrClosed, err))
			return
		}

		c.mu.Lock()
		replies, ok := c.pending[response.ID]
		delete(c.pending, response.ID)
		c.mu.Unlock()

		if !ok {
			c.logger.Debug("dropping response for abandoned call", "id", response.ID)
			continue
		}
		replies <- response
	}
}

// fail records the first terminal error, wakes every waiter, and
// closes the connection.
func (c *Client) fail(err error) {
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return
	}
	c.err = err
	c.pending = make(map[uint64]chan Response)
	close(c.done)
	c.mu.Unlock()

	if err != ErrClosed {
		c.logger.Debug("rpc connection ended", "error", err)
	}
	c.conn.Close()
}
