// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package simdevice

import (
	"math"

	"github.com/arcollect/arcollect/lib/capture"
	"github.com/arcollect/arcollect/lib/frame"
)

// The device walks a horizontal circle around the world origin at eye
// height, always facing the center.
const (
	walkRadius       = 1.5 // meters
	walkHeight       = 1.4 // meters
	walkAngularSpeed = 0.4 // radians per second
	standardGravity  = 9.80665
)

var (
	_ capture.TransformReader = (*Device)(nil)
	_ capture.PoseReader      = (*Device)(nil)
)

// walkAngle returns the position angle on the circle and the device
// yaw about +Y that points +Z at the center.
func (d *Device) walkAngle() (theta, yaw float64) {
	theta = walkAngularSpeed * d.elapsed()
	return theta, -(theta + math.Pi/2)
}

func (d *Device) position(theta float64) frame.Vector3 {
	return frame.Vector3{
		X: float32(walkRadius * math.Cos(theta)),
		Y: walkHeight,
		Z: float32(walkRadius * math.Sin(theta)),
	}
}

func yawQuaternion(yaw float64) frame.Quaternion {
	return frame.Quaternion{Y: float32(math.Sin(yaw / 2)), W: float32(math.Cos(yaw / 2))}
}

// ReadPose returns the current position and orientation.
func (d *Device) ReadPose() (capture.Pose, bool) {
	theta, yaw := d.walkAngle()
	return capture.Pose{Position: d.position(theta), Rotation: yawQuaternion(yaw)}, true
}

// WorldTransform returns the current pose as a row-major 4×4 matrix.
func (d *Device) WorldTransform() (frame.Matrix4x4, bool) {
	theta, yaw := d.walkAngle()
	position := d.position(theta)
	cos, sin := float32(math.Cos(yaw)), float32(math.Sin(yaw))
	return frame.Matrix4x4{
		cos, 0, sin, position.X,
		0, 1, 0, position.Y,
		-sin, 0, cos, position.Z,
		0, 0, 0, 1,
	}, true
}

// Sensors returns the motion sensors for a capture.GyroscopeBuffer.
// Rotation is about the vertical axis only, so gravity reads the same
// in device and world frames and the user acceleration is the
// centripetal pull along the device's forward axis.
func (d *Device) Sensors() capture.GyroscopeSensors {
	return capture.GyroscopeSensors{
		Attitude: quaternionReading(func() frame.Quaternion {
			_, yaw := d.walkAngle()
			return yawQuaternion(yaw)
		}),
		RotationRate: vectorReading(func() frame.Vector3 {
			return frame.Vector3{Y: -walkAngularSpeed}
		}),
		Gravity: vectorReading(func() frame.Vector3 {
			return frame.Vector3{Y: -standardGravity}
		}),
		Acceleration: vectorReading(func() frame.Vector3 {
			return frame.Vector3{Z: walkAngularSpeed * walkAngularSpeed * walkRadius}
		}),
	}
}

type vectorReading func() frame.Vector3

func (f vectorReading) ReadVector3() (frame.Vector3, bool) { return f(), true }

type quaternionReading func() frame.Quaternion

func (f quaternionReading) ReadQuaternion() (frame.Quaternion, bool) { return f(), true }
