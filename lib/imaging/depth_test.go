// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
)

func float32Depth(values ...float32) []byte {
	data := make([]byte, 4*len(values))
	for i, value := range values {
		binary.LittleEndian.PutUint32(data[i*4:], math.Float32bits(value))
	}
	return data
}

func TestFilterDepthByConfidenceFloat32(t *testing.T) {
	depth := float32Depth(1.5, 2.5, 3.5, 4.5)
	confidence := []byte{0, 1, 2, 1}

	filtered, err := FilterDepthByConfidence(depth, confidence, 4, 2)
	if err != nil {
		t.Fatalf("FilterDepthByConfidence: %v", err)
	}

	want := float32Depth(0, 0, 3.5, 0)
	if !bytes.Equal(filtered, want) {
		t.Errorf("filtered = %v, want %v", filtered, want)
	}
	if !bytes.Equal(depth, float32Depth(1.5, 2.5, 3.5, 4.5)) {
		t.Error("input depth was modified")
	}
}

func TestFilterDepthByConfidenceUint16(t *testing.T) {
	depth := []byte{0x10, 0x01, 0x20, 0x02, 0x30, 0x03}
	confidence := []byte{200, 50, 128}

	filtered, err := FilterDepthByConfidence(depth, confidence, 2, 128)
	if err != nil {
		t.Fatalf("FilterDepthByConfidence: %v", err)
	}
	want := []byte{0x10, 0x01, 0, 0, 0x30, 0x03}
	if !bytes.Equal(filtered, want) {
		t.Errorf("filtered = %v, want %v", filtered, want)
	}
}

func TestFilterDepthByConfidenceIdempotent(t *testing.T) {
	depth := float32Depth(1, 2, 3, 4, 5, 6)
	confidence := []byte{2, 0, 1, 2, 1, 0}

	once, err := FilterDepthByConfidence(depth, confidence, 4, 1)
	if err != nil {
		t.Fatalf("first filter: %v", err)
	}
	twice, err := FilterDepthByConfidence(once, confidence, 4, 1)
	if err != nil {
		t.Fatalf("second filter: %v", err)
	}
	if !bytes.Equal(once, twice) {
		t.Errorf("filtering is not idempotent: %v then %v", once, twice)
	}
}

func TestFilterDepthByConfidenceZeroThresholdPassesEverything(t *testing.T) {
	depth := float32Depth(7, 8)
	filtered, err := FilterDepthByConfidence(depth, []byte{0, 0}, 4, 0)
	if err != nil {
		t.Fatalf("FilterDepthByConfidence: %v", err)
	}
	if !bytes.Equal(filtered, depth) {
		t.Errorf("filtered = %v, want unchanged %v", filtered, depth)
	}
}

func TestFilterDepthByConfidenceRejectsMismatch(t *testing.T) {
	if _, err := FilterDepthByConfidence(make([]byte, 8), []byte{1}, 4, 1); err == nil {
		t.Fatal("expected size mismatch error")
	}
	if _, err := FilterDepthByConfidence(make([]byte, 3), []byte{1, 1, 1}, 1, 1); err == nil {
		t.Fatal("expected unsupported sample size error")
	}
}
