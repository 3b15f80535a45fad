// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"errors"

	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/lib/session"
)

// Register binds every session action to server.
func (s *Service) Register(server *rpc.Server) {
	server.Handle(session.ActionCreateSession, rpc.Typed(s.handleCreateSession))
	server.Handle(session.ActionGetSession, rpc.Typed(s.handleGetSession))
	server.Handle(session.ActionListSessions, s.handleListSessions)
	server.Handle(session.ActionDeleteSession, rpc.Typed(s.handleDeleteSession))
	server.Handle(session.ActionJoinSession, rpc.Typed(s.handleJoinSession))
	server.Handle(session.ActionLeaveSession, rpc.Typed(s.handleLeaveSession))
	server.Handle(session.ActionRegisterIntrinsics, rpc.Typed(s.handleRegisterIntrinsics))
	server.Handle(session.ActionSaveFrames, rpc.Typed(s.handleSaveFrames))
	server.Handle(session.ActionServerTime, s.handleServerTime)
}

func (s *Service) handleCreateSession(_ context.Context, request session.CreateSessionRequest) (any, error) {
	return s.observe(session.ActionCreateSession)(s.CreateSession(request.Metadata, request.Device))
}

func (s *Service) handleGetSession(_ context.Context, request session.SessionRequest) (any, error) {
	return s.observe(session.ActionGetSession)(s.GetSession(request.SessionID))
}

func (s *Service) handleListSessions(context.Context, []byte) (any, error) {
	return session.ListSessionsResult{Sessions: s.ListSessions()}, nil
}

func (s *Service) handleDeleteSession(_ context.Context, request session.MembershipRequest) (any, error) {
	return s.observe(session.ActionDeleteSession)(nil, s.DeleteSession(request.SessionID, request.Device))
}

func (s *Service) handleJoinSession(_ context.Context, request session.MembershipRequest) (any, error) {
	return s.observe(session.ActionJoinSession)(s.JoinSession(request.SessionID, request.Device))
}

func (s *Service) handleLeaveSession(_ context.Context, request session.MembershipRequest) (any, error) {
	return s.observe(session.ActionLeaveSession)(nil, s.LeaveSession(request.SessionID, request.Device))
}

func (s *Service) handleRegisterIntrinsics(_ context.Context, request session.RegisterIntrinsicsRequest) (any, error) {
	err := s.RegisterIntrinsics(request.SessionID, request.Device, request.DeviceTimestamp, request.Intrinsics)
	return s.observe(session.ActionRegisterIntrinsics)(nil, err)
}

func (s *Service) handleSaveFrames(_ context.Context, request session.SaveFramesRequest) (any, error) {
	accepted, err := s.SaveFrames(request.SessionID, request.Device, request.Frames)
	return s.observe(session.ActionSaveFrames)(session.SaveFramesResult{Accepted: accepted}, err)
}

func (s *Service) handleServerTime(context.Context, []byte) (any, error) {
	return session.ServerTimeResult{UnixNano: frame.DeviceTimestampOf(s.Now())}, nil
}

// observe returns a pass-through that counts rejections of action and
// tags session-gone rejections with session.CodeSessionGone.
func (s *Service) observe(action string) func(any, error) (any, error) {
	return func(result any, err error) (any, error) {
		if err != nil {
			s.metrics.rejected(action)
			if errors.Is(err, ErrSessionNotFound) || errors.Is(err, ErrNotMember) {
				err = &rpc.CodedError{Code: session.CodeSessionGone, Err: err}
			}
			return nil, err
		}
		return result, nil
	}
}
