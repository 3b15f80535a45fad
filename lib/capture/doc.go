// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package capture buffers raw sensor and tracking samples, one buffer
// per modality, each at the modality's natural rate.
//
// Every buffer wraps a [Buffer]: an append-only, mutex-protected
// sequence of raw frames in non-decreasing timestamp order. Producers
// differ by modality:
//
//   - Event-driven: [ColorBuffer] and [DepthBuffer] acquire one native
//     image per camera frame event; the plane, point cloud and mesh
//     buffers turn each trackables-changed event into one frame per
//     trackable.
//   - Rate-based: [GyroscopeBuffer], [TransformBuffer] and [PoseBuffer]
//     sample their sensors on a ticker from the injected clock.
//   - Streaming: [AudioBuffer] appends whatever the microphone callback
//     delivers.
//
// Platform inputs arrive through small interfaces ([EventSource],
// [ImageSource], [Vector3Sensor], [Microphone], ...) so that the
// package never touches a platform API directly. lib/simdevice
// implements all of them for development and tests.
//
// Capture failures (no image available, a sensor missing) are logged
// at debug level and counted in [Stats]; they never surface from
// StartCapture or StopCapture. Buffers grow without bound; the
// recorder drains them.
//
// [SynchronizedBuffer] composes one buffer of each modality and
// samples their latest frames together.
package capture
