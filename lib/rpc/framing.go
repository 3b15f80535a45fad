// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package rpc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const frameHeaderSize = 4

// errFrameTooLarge is returned by readFrame for a declared body length
// above the limit. The stream is unusable afterwards.
var errFrameTooLarge = errors.New("frame exceeds size limit")

// writeFrame writes body and its length prefix in one Write call.
func writeFrame(w io.Writer, body []byte) error {
	frame := make([]byte, frameHeaderSize+len(body))
	binary.BigEndian.PutUint32(frame, uint32(len(body)))
	copy(frame[frameHeaderSize:], body)
	_, err := w.Write(frame)
	return err
}

// readFrame reads one length-prefixed body of at most limit bytes. A
// clean end of stream before the header returns io.EOF.
func readFrame(r io.Reader, limit int) ([]byte, error) {
	var header [frameHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	length := binary.BigEndian.Uint32(header[:])
	if uint64(length) > uint64(limit) {
		return nil, fmt.Errorf("%w: %d bytes, limit %d", errFrameTooLarge, length, limit)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return body, nil
}
