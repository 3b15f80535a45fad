// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package simdevice is a deterministic stand-in for an AR platform. A
// [Device] implements every capture input: frame events with a YCbCr
// gradient camera image and a depth map with confidence, motion
// sensors and a device pose that follow a circular walk, plane, point
// cloud and mesh trackables that are added, grown and removed on a
// fixed schedule, and a sine-wave microphone.
//
// Everything is a pure function of elapsed clock time and the frame
// counter, so a FakeClock makes the whole device reproducible.
package simdevice
