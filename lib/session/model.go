// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"fmt"

	"github.com/google/uuid"
)

// SessionID identifies a session. It travels as {"uuid": "..."} so it
// cannot be confused with other string fields.
type SessionID struct {
	UUID string `cbor:"uuid"`
}

// NewSessionID returns a random session id.
func NewSessionID() SessionID {
	return SessionID{UUID: uuid.NewString()}
}

// ParseSessionID validates s and returns it in canonical lower-case
// form.
func ParseSessionID(s string) (SessionID, error) {
	parsed, err := uuid.Parse(s)
	if err != nil {
		return SessionID{}, fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return SessionID{UUID: parsed.String()}, nil
}

// IsZero reports whether id is unset.
func (id SessionID) IsZero() bool {
	return id.UUID == ""
}

func (id SessionID) String() string {
	return id.UUID
}

// Metadata describes a session. SavePath, when set, asks the service to
// store the recording under that path; it is omitted from the wire when
// nil.
type Metadata struct {
	Name     string  `cbor:"name"`
	SavePath *string `cbor:"save_path,omitempty"`
}

// Platform names the kind of host a device runs on.
type Platform string

const (
	PlatformIOS       Platform = "ios"
	PlatformAndroid   Platform = "android"
	PlatformVisionOS  Platform = "visionos"
	PlatformSimulated Platform = "simulated"
)

// Device describes the host sending a request. ID is globally unique
// and is how the service attributes frames.
type Device struct {
	Model    string   `cbor:"model"`
	Name     string   `cbor:"name"`
	Platform Platform `cbor:"platform"`
	ID       string   `cbor:"id"`
}

// Validate reports a device descriptor the service cannot attribute.
func (d Device) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("device %q has no id", d.Name)
	}
	return nil
}

// Session is a recording and the devices currently joined to it.
type Session struct {
	ID       SessionID `cbor:"id"`
	Metadata Metadata  `cbor:"metadata"`
	Devices  []Device  `cbor:"devices"`
}

// HasDevice reports whether a device with id is joined.
func (s Session) HasDevice(id string) bool {
	for _, device := range s.Devices {
		if device.ID == id {
			return true
		}
	}
	return false
}

// State is the client-observed lifecycle of a session.
type State uint8

const (
	StateUnknown State = iota
	StateActive
)

func (s State) String() string {
	switch s {
	case StateUnknown:
		return "unknown"
	case StateActive:
		return "active"
	default:
		return fmt.Sprintf("State(%d)", uint8(s))
	}
}
