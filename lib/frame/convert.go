// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package frame

import (
	"fmt"

	"github.com/arcollect/arcollect/lib/imaging"
)

// Converter turns raw frames into ARFrames. The zero value sends color
// images at their native size and leaves depth unfiltered.
type Converter struct {
	// ColorWidth and ColorHeight are the NV12 target size. Zero means
	// the source size.
	ColorWidth  int
	ColorHeight int

	// ConfidenceThreshold zeroes depth samples whose confidence is
	// below it. Zero disables filtering.
	ConfidenceThreshold uint8
}

// Convert produces the wire envelope for one raw frame. Errors come
// only from malformed image data; every other modality converts
// unconditionally.
func (c Converter) Convert(raw Raw) (ARFrame, error) {
	switch f := raw.(type) {
	case *ColorFrame:
		payload, err := c.convertColor(f)
		if err != nil {
			return ARFrame{}, err
		}
		return ARFrame{Kind: ModalityColor, Color: payload}, nil

	case *DepthFrame:
		payload, err := c.convertDepth(f)
		if err != nil {
			return ARFrame{}, err
		}
		return ARFrame{Kind: ModalityDepth, Depth: payload}, nil

	case *TransformFrame:
		matrix := make([]byte, AffineSize)
		copy(matrix, f.Matrix[:])
		return ARFrame{Kind: ModalityTransform, Transform: &TransformPayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			Matrix:          matrix,
		}}, nil

	case *PoseFrame:
		return ARFrame{Kind: ModalityPose, Pose: &PosePayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			Position:        f.Position,
			Rotation:        f.Rotation,
			Forward:         f.Forward,
			Right:           f.Right,
			Up:              f.Up,
		}}, nil

	case *GyroscopeFrame:
		return ARFrame{Kind: ModalityGyroscope, Gyroscope: &GyroscopePayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			Attitude:        f.Attitude,
			RotationRate:    f.RotationRate,
			Gravity:         f.Gravity,
			Acceleration:    f.Acceleration,
		}}, nil

	case *AudioFrame:
		return ARFrame{Kind: ModalityAudio, Audio: &AudioPayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			SampleRate:      f.SampleRate,
			Channels:        f.Channels,
			Samples:         f.Samples,
		}}, nil

	case *PlaneDetectionFrame:
		payload := &PlaneDetectionPayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			State:           f.State,
			TrackableID:     f.TrackableID,
			SubsumedByID:    f.SubsumedByID,
			Position:        f.Position,
			Rotation:        f.Rotation,
			Center:          f.Center,
			Normal:          f.Normal,
			Size:            f.Size,
			Alignment:       f.Alignment,
			Classification:  f.Classification,
		}
		if f.State != StateRemoved {
			payload.Boundary = f.Boundary
		}
		return ARFrame{Kind: ModalityPlaneDetection, PlaneDetection: payload}, nil

	case *PointCloudDetectionFrame:
		payload := &PointCloudDetectionPayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			State:           f.State,
			TrackableID:     f.TrackableID,
			Position:        f.Position,
			Rotation:        f.Rotation,
		}
		if f.State != StateRemoved {
			payload.Identifiers = f.Identifiers
			payload.Positions = f.Positions
			payload.Confidences = f.Confidences
		}
		return ARFrame{Kind: ModalityPointCloudDetection, PointCloudDetection: payload}, nil

	case *MeshDetectionFrame:
		payload := &MeshDetectionPayload{
			DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
			State:           f.State,
			MeshFilterID:    f.MeshFilterID,
			SubMeshIndex:    f.SubMeshIndex,
		}
		if f.State != StateRemoved {
			payload.Mesh = f.Mesh
		}
		return ARFrame{Kind: ModalityMeshDetection, MeshDetection: payload}, nil

	default:
		return ARFrame{}, fmt.Errorf("unsupported raw frame %T", raw)
	}
}

// ConvertSynchronized expands a synchronized frame into one ARFrame
// per populated modality. Each keeps its own capture timestamp.
func (c Converter) ConvertSynchronized(s SynchronizedFrame) ([]ARFrame, error) {
	children := s.Children()
	frames := make([]ARFrame, 0, len(children))
	for _, child := range children {
		converted, err := c.Convert(child)
		if err != nil {
			return nil, fmt.Errorf("converting %s: %w", child.Modality(), err)
		}
		frames = append(frames, converted)
	}
	return frames, nil
}

func (c Converter) convertColor(f *ColorFrame) (*ColorPayload, error) {
	var y, cb, cr ImagePlane
	switch f.Format {
	case PixelFormatYCbCr420:
		if len(f.Planes) != 3 {
			return nil, fmt.Errorf("color frame: YCbCr 4:2:0 needs 3 planes, have %d", len(f.Planes))
		}
		y, cb, cr = f.Planes[0], f.Planes[1], f.Planes[2]
	case PixelFormatNV12:
		if len(f.Planes) != 2 {
			return nil, fmt.Errorf("color frame: NV12 needs 2 planes, have %d", len(f.Planes))
		}
		y = f.Planes[0]
		chroma := f.Planes[1]
		if len(chroma.Data) == 0 {
			return nil, fmt.Errorf("color frame: empty chroma plane")
		}
		cb = ImagePlane{Data: chroma.Data, RowStride: chroma.RowStride, PixelStride: 2}
		cr = ImagePlane{Data: chroma.Data[1:], RowStride: chroma.RowStride, PixelStride: 2}
	default:
		return nil, fmt.Errorf("color frame: unsupported pixel format %d", f.Format)
	}

	width, height := c.ColorWidth, c.ColorHeight
	if width == 0 || height == 0 {
		width, height = f.Width, f.Height
	}
	data, err := imaging.ResampleNV12(y, cb, cr, f.Width, f.Height, width, height)
	if err != nil {
		return nil, fmt.Errorf("resampling color frame: %w", err)
	}
	return &ColorPayload{
		DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
		Width:           width,
		Height:          height,
		Format:          PixelFormatNV12,
		Data:            data,
	}, nil
}

func (c Converter) convertDepth(f *DepthFrame) (*DepthPayload, error) {
	bytesPerSample := f.Format.BytesPerSample()
	if bytesPerSample == 0 {
		return nil, fmt.Errorf("depth frame: unsupported depth format %d", f.Format)
	}
	data, err := imaging.PackPlane(f.Depth, f.Width, f.Height, bytesPerSample)
	if err != nil {
		return nil, fmt.Errorf("packing depth plane: %w", err)
	}

	payload := &DepthPayload{
		DeviceTimestamp: DeviceTimestampOf(f.Timestamp),
		Width:           f.Width,
		Height:          f.Height,
		Format:          f.Format,
		Data:            data,
	}
	if f.Confidence == nil || c.ConfidenceThreshold == 0 {
		return payload, nil
	}

	confidence, err := imaging.PackPlane(*f.Confidence, f.Width, f.Height, 1)
	if err != nil {
		return nil, fmt.Errorf("packing confidence plane: %w", err)
	}
	filtered, err := imaging.FilterDepthByConfidence(data, confidence, bytesPerSample, c.ConfidenceThreshold)
	if err != nil {
		return nil, fmt.Errorf("filtering depth: %w", err)
	}
	payload.Data = filtered
	payload.ConfidenceFiltered = true
	return payload, nil
}
