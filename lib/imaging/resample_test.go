// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"bytes"
	"image"
	"testing"
)

// gradientYCbCr returns a 4:2:0 image whose luma value encodes the
// pixel column and whose chroma values encode the chroma row and
// column, so nearest-neighbor picks are easy to verify.
func gradientYCbCr(width, height int) *image.YCbCr {
	img := image.NewYCbCr(image.Rect(0, 0, width, height), image.YCbCrSubsampleRatio420)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Y[y*img.YStride+x] = byte(x)
		}
	}
	for cy := 0; cy < (height+1)/2; cy++ {
		for cx := 0; cx < (width+1)/2; cx++ {
			img.Cb[cy*img.CStride+cx] = byte(cx)
			img.Cr[cy*img.CStride+cx] = byte(100 + cy)
		}
	}
	return img
}

// ycbcrPlanes exposes the three planes of a 4:2:0 image.
func ycbcrPlanes(img *image.YCbCr) (y, cb, cr Plane) {
	return Plane{Data: img.Y, RowStride: img.YStride, PixelStride: 1},
		Plane{Data: img.Cb, RowStride: img.CStride, PixelStride: 1},
		Plane{Data: img.Cr, RowStride: img.CStride, PixelStride: 1}
}

func TestResampleNV12OutputLength(t *testing.T) {
	y, cb, cr := ycbcrPlanes(gradientYCbCr(64, 48))

	for _, target := range []struct{ width, height int }{
		{64, 48}, {32, 24}, {17, 9}, {1, 1}, {3, 2}, {128, 96},
	} {
		output, err := ResampleNV12(y, cb, cr, 64, 48, target.width, target.height)
		if err != nil {
			t.Fatalf("ResampleNV12(%dx%d): %v", target.width, target.height, err)
		}
		want := target.width*target.height + 2*(target.width/2*target.height/2)
		if len(output) != want {
			t.Errorf("%dx%d: output length %d, want %d", target.width, target.height, len(output), want)
		}
	}
}

func TestResampleNV12NearestNeighbor(t *testing.T) {
	y, cb, cr := ycbcrPlanes(gradientYCbCr(8, 4))

	output, err := ResampleNV12(y, cb, cr, 8, 4, 4, 2)
	if err != nil {
		t.Fatalf("ResampleNV12: %v", err)
	}

	// Luma columns 0,2,4,6 are picked from the 8-wide source.
	wantLuma := []byte{0, 2, 4, 6, 0, 2, 4, 6}
	if !bytes.Equal(output[:8], wantLuma) {
		t.Errorf("luma = %v, want %v", output[:8], wantLuma)
	}

	// Chroma target is 2x1 sampled from a 4x2 source: columns 0 and 2,
	// row 0, interleaved Cb, Cr.
	wantChroma := []byte{0, 100, 2, 100}
	if !bytes.Equal(output[8:], wantChroma) {
		t.Errorf("chroma = %v, want %v", output[8:], wantChroma)
	}
}

func TestResampleNV12InterleavedChroma(t *testing.T) {
	// Biplanar layout: one CbCr buffer, Cb at even offsets, Cr at odd.
	luma := Plane{Data: make([]byte, 4*4), RowStride: 4, PixelStride: 1}
	interleaved := []byte{10, 20, 11, 21, 12, 22, 13, 23}
	cb := Plane{Data: interleaved, RowStride: 4, PixelStride: 2}
	cr := Plane{Data: interleaved[1:], RowStride: 4, PixelStride: 2}

	output, err := ResampleNV12(luma, cb, cr, 4, 4, 4, 4)
	if err != nil {
		t.Fatalf("ResampleNV12: %v", err)
	}
	wantChroma := []byte{10, 20, 11, 21, 12, 22, 13, 23}
	if !bytes.Equal(output[16:], wantChroma) {
		t.Errorf("chroma = %v, want %v", output[16:], wantChroma)
	}
}

func TestResampleNV12RejectsShortPlanes(t *testing.T) {
	luma := Plane{Data: make([]byte, 10), RowStride: 4, PixelStride: 1}
	chroma := Plane{Data: make([]byte, 4), RowStride: 2, PixelStride: 1}
	if _, err := ResampleNV12(luma, chroma, chroma, 4, 4, 2, 2); err == nil {
		t.Fatal("expected error for truncated luma plane")
	}
	if _, err := ResampleNV12(luma, chroma, chroma, 4, 4, 0, 2); err == nil {
		t.Fatal("expected error for zero target width")
	}
}

func TestPackPlaneRemovesPadding(t *testing.T) {
	// 2x2 image of 2-byte samples with 2 bytes of row padding.
	plane := Plane{
		Data:        []byte{1, 2, 3, 4, 0xff, 0xff, 5, 6, 7, 8},
		RowStride:   6,
		PixelStride: 2,
	}
	packed, err := PackPlane(plane, 2, 2, 2)
	if err != nil {
		t.Fatalf("PackPlane: %v", err)
	}
	want := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if !bytes.Equal(packed, want) {
		t.Errorf("packed = %v, want %v", packed, want)
	}
}

func TestPackPlaneWithPixelStride(t *testing.T) {
	plane := Plane{Data: []byte{1, 0, 2, 0, 3, 0, 4}, RowStride: 4, PixelStride: 2}
	packed, err := PackPlane(plane, 2, 2, 1)
	if err != nil {
		t.Fatalf("PackPlane: %v", err)
	}
	if want := []byte{1, 2, 3, 4}; !bytes.Equal(packed, want) {
		t.Errorf("packed = %v, want %v", packed, want)
	}
}

func TestCloneOwnsBytes(t *testing.T) {
	original := Plane{Data: []byte{1, 2, 3}, RowStride: 3, PixelStride: 1}
	clone := original.Clone()
	original.Data[0] = 9
	if clone.Data[0] != 1 {
		t.Fatal("clone shares its buffer with the original")
	}
}
