// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package meshcodec

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag identifies how one section of an encoded sub-mesh is
// stored. Tags are written into the blob header; changing the values
// breaks compatibility with recorded sessions.
type CompressionTag uint8

const (
	CompressionNone CompressionTag = 0

	// CompressionLZ4 is LZ4 block compression.
	CompressionLZ4 CompressionTag = 1

	// CompressionZstd is zstd at the default level. Used for index
	// streams, which are highly repetitive.
	CompressionZstd CompressionTag = 2

	// CompressionBG4LZ4 transposes 4-byte groups before LZ4 so the
	// exponent bytes of neighbouring float32 coordinates sit together.
	CompressionBG4LZ4 CompressionTag = 3
)

func (tag CompressionTag) String() string {
	switch tag {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZstd:
		return "zstd"
	case CompressionBG4LZ4:
		return "bg4_lz4"
	default:
		return fmt.Sprintf("unknown(%d)", tag)
	}
}

// ErrIncompressible is returned when a section does not get smaller.
// The encoder stores such sections with CompressionNone.
var ErrIncompressible = errors.New("data is incompressible")

func compress(data []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return data, nil
	case CompressionLZ4:
		return compressLZ4(data)
	case CompressionZstd:
		return compressZstd(data)
	case CompressionBG4LZ4:
		return compressLZ4(bg4Transpose(data))
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

// compressOrStore compresses with tag, falling back to storing the
// bytes as-is when compression does not help.
func compressOrStore(data []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	compressed, err := compress(data, tag)
	if errors.Is(err, ErrIncompressible) {
		return data, CompressionNone, nil
	}
	if err != nil {
		return nil, 0, err
	}
	return compressed, tag, nil
}

func decompress(compressed []byte, tag CompressionTag, uncompressedSize int) ([]byte, error) {
	switch tag {
	case CompressionNone:
		if len(compressed) != uncompressedSize {
			return nil, fmt.Errorf("stored section: size %d does not match expected %d",
				len(compressed), uncompressedSize)
		}
		return compressed, nil
	case CompressionLZ4:
		return decompressLZ4(compressed, uncompressedSize)
	case CompressionZstd:
		return decompressZstd(compressed, uncompressedSize)
	case CompressionBG4LZ4:
		transposed, err := decompressLZ4(compressed, uncompressedSize)
		if err != nil {
			return nil, err
		}
		return bg4Untranspose(transposed), nil
	default:
		return nil, fmt.Errorf("unsupported compression tag: %d", tag)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	destination := make([]byte, lz4.CompressBlockBound(len(data)))
	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("lz4 compress: %w", err)
	}
	// CompressBlock reports 0 for input it cannot shrink.
	if written == 0 || written >= len(data) {
		return nil, ErrIncompressible
	}
	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

// zstd.Encoder and zstd.Decoder are safe for concurrent use, so the
// parallel sub-mesh encodes share one of each.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("meshcodec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("meshcodec: zstd decoder initialization failed: " + err.Error())
	}
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, ErrIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// bg4Transpose groups byte 0 of every 4-byte word first, then byte 1,
// and so on. A trailing partial word is copied unchanged.
func bg4Transpose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := 0; i < groups; i++ {
		for b := 0; b < 4; b++ {
			output[b*groups+i] = data[i*4+b]
		}
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}

func bg4Untranspose(data []byte) []byte {
	groups := len(data) / 4
	output := make([]byte, len(data))
	for i := 0; i < groups; i++ {
		for b := 0; b < 4; b++ {
			output[i*4+b] = data[b*groups+i]
		}
	}
	copy(output[groups*4:], data[groups*4:])
	return output
}
