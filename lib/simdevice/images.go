// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package simdevice

import (
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/frame"
	"github.com/arcollect/arcollect/lib/imaging"
)

// Confidence levels follow the three-level scale mobile depth APIs
// report.
const (
	ConfidenceLow    = 0
	ConfidenceMedium = 1
	ConfidenceHigh   = 2
)

// image is a NativeImage over freshly allocated planes.
type image struct {
	width, height int
	format        uint8
	planes        []imaging.Plane
	released      atomic.Bool
}

func (i *image) Width() int              { return i.width }
func (i *image) Height() int             { return i.height }
func (i *image) Format() uint8           { return i.format }
func (i *image) Planes() []imaging.Plane { return i.planes }

func (i *image) Release() { i.released.Store(true) }

// imageSource adapts a generator to capture.ImageSource.
type imageSource func() (capture.NativeImage, error)

func (f imageSource) AcquireLatestImage() (capture.NativeImage, error) { return f() }

// Camera returns the color image source: a three-plane YCbCr 4:2:0
// diagonal gradient that scrolls one step per frame.
func (d *Device) Camera() capture.ImageSource {
	return imageSource(func() (capture.NativeImage, error) {
		count := d.frame.Load()
		if count == 0 {
			return nil, capture.ErrNoImage
		}
		return d.colorImage(count), nil
	})
}

// Depth returns the depth image source: a surface whose distance
// ripples with position and frame.
func (d *Device) Depth() capture.ImageSource {
	return imageSource(func() (capture.NativeImage, error) {
		count := d.frame.Load()
		if count == 0 {
			return nil, capture.ErrNoImage
		}
		return d.depthImage(count), nil
	})
}

// Confidence returns the one byte per pixel confidence source paired
// with Depth.
func (d *Device) Confidence() capture.ImageSource {
	return imageSource(func() (capture.NativeImage, error) {
		count := d.frame.Load()
		if count == 0 {
			return nil, capture.ErrNoImage
		}
		return d.confidenceImage(count), nil
	})
}

func (d *Device) colorImage(count uint64) *image {
	width, height := d.options.ColorWidth, d.options.ColorHeight
	shift := int(count % 256)

	luma := make([]byte, width*height)
	for y := range height {
		row := luma[y*width : (y+1)*width]
		for x := range row {
			row[x] = byte((x + y + shift) & 0xff)
		}
	}

	chromaWidth, chromaHeight := width/2, height/2
	cb := make([]byte, chromaWidth*chromaHeight)
	cr := make([]byte, chromaWidth*chromaHeight)
	for y := range chromaHeight {
		for x := range chromaWidth {
			cb[y*chromaWidth+x] = byte(64 + (x*128)/chromaWidth)
			cr[y*chromaWidth+x] = byte(64 + (y*128)/chromaHeight)
		}
	}

	return &image{
		width:  width,
		height: height,
		format: uint8(frame.PixelFormatYCbCr420),
		planes: []imaging.Plane{
			{Data: luma, RowStride: width, PixelStride: 1},
			{Data: cb, RowStride: chromaWidth, PixelStride: 1},
			{Data: cr, RowStride: chromaWidth, PixelStride: 1},
		},
	}
}

// depthAt returns the simulated distance in meters at pixel (x, y).
func (d *Device) depthAt(x, y int, count uint64) float64 {
	u := float64(x) / float64(d.options.DepthWidth)
	v := float64(y) / float64(d.options.DepthHeight)
	phase := float64(count) * 0.1
	return 1.5 + 0.5*math.Sin(2*math.Pi*u+phase)*math.Cos(2*math.Pi*v)
}

func (d *Device) depthImage(count uint64) *image {
	width, height := d.options.DepthWidth, d.options.DepthHeight
	bytesPerSample := d.options.DepthFormat.BytesPerSample()
	data := make([]byte, width*height*bytesPerSample)

	for y := range height {
		for x := range width {
			offset := (y*width + x) * bytesPerSample
			meters := d.depthAt(x, y, count)
			switch d.options.DepthFormat {
			case frame.DepthFormatUint16:
				binary.LittleEndian.PutUint16(data[offset:], uint16(math.Round(meters*1000)))
			default:
				binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(float32(meters)))
			}
		}
	}

	return &image{
		width:  width,
		height: height,
		format: uint8(d.options.DepthFormat),
		planes: []imaging.Plane{{Data: data, RowStride: width * bytesPerSample, PixelStride: bytesPerSample}},
	}
}

// confidenceImage grades pixels by distance from the image center:
// high in the middle, low at the edges.
func (d *Device) confidenceImage(count uint64) *image {
	width, height := d.options.DepthWidth, d.options.DepthHeight
	data := make([]byte, width*height)
	jitter := int(count % 3)

	for y := range height {
		for x := range width {
			dx := 2*x - width
			dy := 2*y - height
			ring := (dx*dx+dy*dy)*9/(width*width+height*height) + jitter
			switch {
			case ring < 3:
				data[y*width+x] = ConfidenceHigh
			case ring < 6:
				data[y*width+x] = ConfidenceMedium
			default:
				data[y*width+x] = ConfidenceLow
			}
		}
	}

	return &image{
		width:  width,
		height: height,
		planes: []imaging.Plane{{Data: data, RowStride: width, PixelStride: 1}},
	}
}
