// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import "fmt"

// NV12Size returns the byte length of a width×height NV12 image: a full
// resolution luma plane followed by interleaved Cb/Cr pairs at half
// resolution in both axes.
func NV12Size(width, height int) int {
	return width*height + 2*((width/2)*(height/2))
}

// ResampleNV12 resamples a YCbCr 4:2:0 image of sourceWidth×sourceHeight
// to targetWidth×targetHeight using nearest-neighbor sampling (no
// interpolation) and returns it in NV12 layout. The output length is
// always NV12Size(targetWidth, targetHeight).
//
// Luma is sampled from the full resolution plane. Chroma is sampled
// from the half resolution Cb and Cr planes at half the target
// resolution, so each output chroma pair covers a 2×2 luma block just
// as in the source.
func ResampleNV12(y, cb, cr Plane, sourceWidth, sourceHeight, targetWidth, targetHeight int) ([]byte, error) {
	if targetWidth <= 0 || targetHeight <= 0 {
		return nil, fmt.Errorf("invalid target resolution %dx%d", targetWidth, targetHeight)
	}
	if err := y.check("luma", sourceWidth, sourceHeight, 1); err != nil {
		return nil, err
	}

	chromaSourceWidth := (sourceWidth + 1) / 2
	chromaSourceHeight := (sourceHeight + 1) / 2
	if err := cb.check("cb", chromaSourceWidth, chromaSourceHeight, 1); err != nil {
		return nil, err
	}
	if err := cr.check("cr", chromaSourceWidth, chromaSourceHeight, 1); err != nil {
		return nil, err
	}

	output := make([]byte, NV12Size(targetWidth, targetHeight))

	for ty := 0; ty < targetHeight; ty++ {
		sy := ty * sourceHeight / targetHeight
		row := output[ty*targetWidth : (ty+1)*targetWidth]
		for tx := range row {
			sx := tx * sourceWidth / targetWidth
			row[tx] = y.Data[y.offset(sx, sy)]
		}
	}

	chromaWidth := targetWidth / 2
	chromaHeight := targetHeight / 2
	chroma := output[targetWidth*targetHeight:]
	for cy := 0; cy < chromaHeight; cy++ {
		sy := cy * chromaSourceHeight / chromaHeight
		for cx := 0; cx < chromaWidth; cx++ {
			sx := cx * chromaSourceWidth / chromaWidth
			index := 2 * (cy*chromaWidth + cx)
			chroma[index] = cb.Data[cb.offset(sx, sy)]
			chroma[index+1] = cr.Data[cr.offset(sx, sy)]
		}
	}

	return output, nil
}
