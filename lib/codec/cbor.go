// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"io"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// maxArrayElements bounds decoded arrays. Point clouds and audio
// batches routinely exceed the library default of 131072 elements.
const maxArrayElements = 64 * 1024 * 1024

// encMode uses Core Deterministic Encoding (RFC 8949 §4.2): sorted map
// keys, smallest integer encoding, no indefinite-length items. Floats
// are shortened only when the shorter form is exact, so float32
// vector and quaternion components survive a round trip bit for bit.
var encMode cbor.EncMode

// decMode accepts standard CBOR and ignores unknown fields so older
// clients keep working against newer collectors.
var decMode cbor.DecMode

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Decoding into any must produce map[string]any, not
		// map[any]any, so request parameters can be inspected by
		// ordinary Go code.
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
		MaxArrayElements: maxArrayElements,
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Marshal encodes v using Core Deterministic Encoding.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encoder is a CBOR stream encoder. Aliased so callers import only
// lib/codec.
type Encoder = cbor.Encoder

// Decoder is a CBOR stream decoder.
type Decoder = cbor.Decoder

// RawMessage is a raw encoded CBOR value, used to defer decoding of
// request parameters and response data until the action is known.
type RawMessage = cbor.RawMessage

// NewEncoder returns a stream encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return decMode.NewDecoder(r)
}
