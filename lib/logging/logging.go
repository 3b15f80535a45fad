// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package logging builds the slog loggers used by the ARCollect
// binaries.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Output formats accepted by New.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// New returns a logger writing to stderr. With FormatAuto the handler
// is text when stderr is a terminal and JSON otherwise, so piped output
// stays machine-parseable.
func New(level, format string) (*slog.Logger, error) {
	return NewWriter(os.Stderr, level, format, term.IsTerminal(int(os.Stderr.Fd())))
}

// NewWriter is New for an arbitrary writer. terminal decides what
// FormatAuto resolves to.
func NewWriter(w io.Writer, level, format string, terminal bool) (*slog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	options := &slog.HandlerOptions{Level: parsed}

	switch format {
	case FormatAuto, "":
		if terminal {
			return slog.New(slog.NewTextHandler(w, options)), nil
		}
		return slog.New(slog.NewJSONHandler(w, options)), nil
	case FormatText:
		return slog.New(slog.NewTextHandler(w, options)), nil
	case FormatJSON:
		return slog.New(slog.NewJSONHandler(w, options)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// ParseLevel maps debug, info, warn and error to slog levels. Empty
// means info.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}
