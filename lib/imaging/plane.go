// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"fmt"
)

// Plane is one plane of a native image: the raw bytes plus the layout
// needed to address a pixel. For a biplanar (interleaved CbCr) camera
// image the Cb and Cr planes share one buffer, offset by one byte, each
// with PixelStride 2.
type Plane struct {
	Data        []byte `cbor:"data"`
	RowStride   int    `cbor:"row_stride"`
	PixelStride int    `cbor:"pixel_stride"`
}

// offset returns the byte offset of pixel (x, y).
func (p Plane) offset(x, y int) int {
	return y*p.RowStride + x*p.PixelStride
}

// check reports whether a width×height region of bytesPerPixel-sized
// samples fits in the plane.
func (p Plane) check(name string, width, height, bytesPerPixel int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%s plane: invalid dimensions %dx%d", name, width, height)
	}
	if p.PixelStride < bytesPerPixel || p.RowStride < 0 {
		return fmt.Errorf("%s plane: invalid strides (row %d, pixel %d)", name, p.RowStride, p.PixelStride)
	}
	last := p.offset(width-1, height-1) + bytesPerPixel
	if last > len(p.Data) {
		return fmt.Errorf("%s plane: %dx%d needs %d bytes, have %d", name, width, height, last, len(p.Data))
	}
	return nil
}

// Clone returns a copy of the plane that owns its bytes. Capture uses
// this to detach plane data from a native image before releasing it.
func (p Plane) Clone() Plane {
	data := make([]byte, len(p.Data))
	copy(data, p.Data)
	return Plane{Data: data, RowStride: p.RowStride, PixelStride: p.PixelStride}
}

// PackPlane copies a strided plane into a tightly packed buffer of
// width*height*bytesPerPixel bytes, row-major.
func PackPlane(p Plane, width, height, bytesPerPixel int) ([]byte, error) {
	if err := p.check("source", width, height, bytesPerPixel); err != nil {
		return nil, err
	}

	output := make([]byte, width*height*bytesPerPixel)
	if p.PixelStride == bytesPerPixel {
		rowBytes := width * bytesPerPixel
		for y := 0; y < height; y++ {
			start := y * p.RowStride
			copy(output[y*rowBytes:(y+1)*rowBytes], p.Data[start:start+rowBytes])
		}
		return output, nil
	}

	index := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			offset := p.offset(x, y)
			copy(output[index:index+bytesPerPixel], p.Data[offset:offset+bytesPerPixel])
			index += bytesPerPixel
		}
	}
	return output, nil
}
