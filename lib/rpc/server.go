// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/arcollect/arcollect/lib/codec"
	"github.com/arcollect/arcollect/lib/netutil"
)

// ActionFunc handles one request. params is the raw CBOR parameter
// value, empty when the caller sent none. A non-nil result is encoded
// into the response data; a returned error becomes a failure response
// carrying err.Error().
type ActionFunc func(ctx context.Context, params []byte) (any, error)

// Typed adapts a handler taking decoded parameters of type P.
func Typed[P any](handler func(ctx context.Context, params P) (any, error)) ActionFunc {
	return func(ctx context.Context, raw []byte) (any, error) {
		var params P
		if len(raw) > 0 {
			if err := codec.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("invalid params: %w", err)
			}
		}
		return handler(ctx, params)
	}
}

// Server dispatches requests to registered actions. Register every
// action with Handle before serving the first connection.
type Server struct {
	handlers map[string]ActionFunc
	limits   Limits
	logger   *slog.Logger
}

// NewServer creates a server with no actions.
func NewServer(limits Limits, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{
		handlers: make(map[string]ActionFunc),
		limits:   limits.withDefaults(),
		logger:   logger,
	}
}

// Handle registers handler for action. Panics on a duplicate action.
func (s *Server) Handle(action string, handler ActionFunc) {
	if _, exists := s.handlers[action]; exists {
		panic(fmt.Sprintf("rpc.Server: duplicate handler for action %q", action))
	}
	s.handlers[action] = handler
}

// Actions returns the number of registered actions.
func (s *Server) Actions() int {
	return len(s.handlers)
}

// ServeConn reads requests from conn until it fails or ctx ends,
// handling each on its own goroutine. In-flight handlers see their
// context cancelled when the connection goes away; ServeConn waits for
// them before returning.
func (s *Server) ServeConn(ctx context.Context, conn net.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	remote := conn.RemoteAddr().String()
	var writeMu sync.Mutex
	var inflight sync.WaitGroup

	reader := bufio.NewReader(conn)
	for {
		body, err := readFrame(reader, s.limits.MaxRequestSize)
		if err != nil {
			if !netutil.IsExpectedCloseError(err) && ctx.Err() == nil {
				s.logger.Warn("closing rpc connection", "remote", remote, "error", err)
			}
			break
		}

		var request Request
		if err := codec.Unmarshal(body, &request); err != nil {
			s.logger.Warn("closing rpc connection on malformed request", "remote", remote, "error", err)
			break
		}

		inflight.Go(func() {
			response := s.dispatch(ctx, request)
			s.writeResponse(conn, &writeMu, response)
		})
	}

	cancel()
	inflight.Wait()
}

func (s *Server) dispatch(ctx context.Context, request Request) Response {
	if request.Action == "" {
		return Response{ID: request.ID, Error: "missing required field: action"}
	}
	handler, exists := s.handlers[request.Action]
	if !exists {
		return Response{ID: request.ID, Error: fmt.Sprintf("unknown action %q", request.Action)}
	}

	result, err := handler(ctx, request.Params)
	if err != nil {
		s.logger.Debug("action failed", "action", request.Action, "error", err)
		response := Response{ID: request.ID, Error: err.Error()}
		var coded *CodedError
		if errors.As(err, &coded) {
			response.Code = coded.Code
		}
		return response
	}

	response := Response{ID: request.ID, OK: true}
	if result != nil {
		data, err := codec.Marshal(result)
		if err != nil {
			return Response{ID: request.ID, Error: fmt.Sprintf("internal: encoding response: %v", err)}
		}
		response.Data = data
	}
	return response
}

// writeResponse encodes and writes one response. A response above the
// size limit is replaced by a failure response.
func (s *Server) writeResponse(conn net.Conn, writeMu *sync.Mutex, response Response) {
	body, err := codec.Marshal(response)
	if err == nil && len(body) > s.limits.MaxResponseSize {
		body, err = codec.Marshal(Response{
			ID:    response.ID,
			Error: fmt.Sprintf("response is %d bytes, limit %d", len(body), s.limits.MaxResponseSize),
		})
	}
	if err != nil {
		s.logger.Error("encoding rpc response failed", "id", response.ID, "error", err)
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := writeFrame(conn, body); err != nil {
		s.logger.Debug("writing rpc response failed", "id", response.ID, "error", err)
	}
}
