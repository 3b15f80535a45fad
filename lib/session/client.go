// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/transport"
)

var (
	// ErrSessionNotActive is returned by DeleteSession for a session the
	// client has not created or joined, or has since left.
	ErrSessionNotActive = errors.New("session is not active on this client")

	// ErrSessionGone is wrapped by data-plane errors when the service
	// rejected the call with CodeSessionGone.
	ErrSessionGone = errors.New("session is gone")
)

// Client drives the collection service over one connection. Safe for
// concurrent use.
type Client struct {
	rpc    *rpc.Client
	logger *slog.Logger

	mu     sync.Mutex
	states map[SessionID]State
}

// NewClient wraps an established connection. The client owns conn.
func NewClient(conn net.Conn, limits rpc.Limits, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		rpc:    rpc.NewClient(conn, limits, logger),
		logger: logger,
		states: make(map[SessionID]State),
	}
}

// Dial connects to the service at address through dialer.
func Dial(ctx context.Context, dialer transport.Dialer, address string, limits rpc.Limits, logger *slog.Logger) (*Client, error) {
	conn, err := dialer.DialContext(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("dialing collector at %s: %w", address, err)
	}
	return NewClient(conn, limits, logger), nil
}

// Close releases the connection. In-flight calls fail with
// rpc.ErrClosed.
func (c *Client) Close() error {
	return c.rpc.Close()
}

// Done is closed when the connection is gone and the client must be
// replaced.
func (c *Client) Done() <-chan struct{} {
	return c.rpc.Done()
}

// State returns the client-observed state of id.
func (c *Client) State(id SessionID) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[id]
}

func (c *Client) setState(id SessionID, state State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state == StateUnknown {
		delete(c.states, id)
		return
	}
	c.states[id] = state
}

// CreateSession allocates a session with device as its first member.
func (c *Client) CreateSession(ctx context.Context, metadata Metadata, device Device) (Session, error) {
	var created Session
	request := CreateSessionRequest{Metadata: metadata, Device: device}
	if err := c.rpc.Call(ctx, ActionCreateSession, request, &created); err != nil {
		return Session{}, fmt.Errorf("creating session %q: %w", metadata.Name, err)
	}
	if created.ID.IsZero() {
		return Session{}, fmt.Errorf("creating session %q: response carries no session id", metadata.Name)
	}

	c.setState(created.ID, StateActive)
	c.logger.Info("session created", "session", created.ID.String(), "name", metadata.Name)
	return created, nil
}

// GetSession fetches the current description of id.
func (c *Client) GetSession(ctx context.Context, id SessionID) (Session, error) {
	var found Session
	if err := c.rpc.Call(ctx, ActionGetSession, SessionRequest{SessionID: id}, &found); err != nil {
		return Session{}, fmt.Errorf("getting session %s: %w", id, err)
	}
	return found, nil
}

// ListSessions returns every session the service knows.
func (c *Client) ListSessions(ctx context.Context) ([]Session, error) {
	var result ListSessionsResult
	if err := c.rpc.Call(ctx, ActionListSessions, nil, &result); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return result.Sessions, nil
}

// DeleteSession ends id for every member. The client must believe the
// session is active; otherwise it returns ErrSessionNotActive without
// contacting the service.
func (c *Client) DeleteSession(ctx context.Context, id SessionID, device Device) error {
	if c.State(id) != StateActive {
		return fmt.Errorf("deleting session %s: %w", id, ErrSessionNotActive)
	}
	if err := c.rpc.Call(ctx, ActionDeleteSession, MembershipRequest{SessionID: id, Device: device}, nil); err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}

	c.setState(id, StateUnknown)
	c.logger.Info("session deleted", "session", id.String())
	return nil
}

// JoinSession adds device to id and returns the updated session.
func (c *Client) JoinSession(ctx context.Context, id SessionID, device Device) (Session, error) {
	var joined Session
	if err := c.rpc.Call(ctx, ActionJoinSession, MembershipRequest{SessionID: id, Device: device}, &joined); err != nil {
		return Session{}, fmt.Errorf("joining session %s: %w", id, err)
	}

	c.setState(id, StateActive)
	c.logger.Info("session joined", "session", id.String(), "devices", len(joined.Devices))
	return joined, nil
}

// LeaveSession removes device from id.
func (c *Client) LeaveSession(ctx context.Context, id SessionID, device Device) error {
	if err := c.rpc.Call(ctx, ActionLeaveSession, MembershipRequest{SessionID: id, Device: device}, nil); err != nil {
		return fmt.Errorf("leaving session %s: %w", id, err)
	}

	c.setState(id, StateUnknown)
	c.logger.Info("session left", "session", id.String())
	return nil
}

// RegisterIntrinsics records camera calibration for device, valid from
// timestamp onward.
func (c *Client) RegisterIntrinsics(ctx context.Context, id SessionID, device Device, timestamp time.Time, intrinsics frame.Intrinsics) error {
	request := RegisterIntrinsicsRequest{
		SessionID:       id,
		Device:          device,
		DeviceTimestamp: frame.DeviceTimestampOf(timestamp),
		Intrinsics:      intrinsics,
	}
	if err := c.rpc.Call(ctx, ActionRegisterIntrinsics, request, nil); err != nil {
		return fmt.Errorf("registering intrinsics for session %s: %w", id, c.classify(id, err))
	}
	return nil
}

// SaveARFrames sends one mixed-modality batch. The service stores all
// of it or none of it. An empty batch is a no-op: nothing is sent and
// the session state is unchanged. Frames failing local validation
// abort the call before anything is sent.
func (c *Client) SaveARFrames(ctx context.Context, id SessionID, frames []frame.ARFrame, device Device) error {
	if len(frames) == 0 {
		return nil
	}
	for i := range frames {
		if err := frames[i].Validate(); err != nil {
			return fmt.Errorf("saving frames to session %s: frame %d: %w", id, i, err)
		}
	}

	var result SaveFramesResult
	request := SaveFramesRequest{SessionID: id, Device: device, Frames: frames}
	if err := c.rpc.Call(ctx, ActionSaveFrames, request, &result); err != nil {
		return fmt.Errorf("saving %d frames to session %s: %w", len(frames), id, c.classify(id, err))
	}
	if result.Accepted != len(frames) {
		return fmt.Errorf("saving frames to session %s: service accepted %d of %d", id, result.Accepted, len(frames))
	}
	return nil
}

// classify wraps a CodeSessionGone rejection in ErrSessionGone and
// forgets id, since the service no longer has it for this device.
func (c *Client) classify(id SessionID, err error) error {
	var remote *rpc.RemoteError
	if !errors.As(err, &remote) || remote.Code != CodeSessionGone {
		return err
	}
	c.setState(id, StateUnknown)
	return fmt.Errorf("%w: %w", ErrSessionGone, err)
}

// ServerTime asks the service for its clock. Client satisfies
// timesync.Source.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var result ServerTimeResult
	if err := c.rpc.Call(ctx, ActionServerTime, nil, &result); err != nil {
		return time.Time{}, fmt.Errorf("querying server time: %w", err)
	}
	return frame.TimeFromDeviceTimestamp(result.UnixNano), nil
}
