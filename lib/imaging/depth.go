// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package imaging

import "fmt"

// FilterDepthByConfidence returns a copy of depth in which every sample
// whose confidence is below threshold is zeroed. depth is a tightly
// packed image of bytesPerSample-wide samples (4 for float32 depth, 2
// for uint16 depth); confidence holds one byte per sample.
//
// Precondition: depth and confidence were acquired for the same camera
// frame. Nothing here can check that, and a mismatched pair silently
// masks the wrong pixels. Callers acquire both images in the same
// frame-event handler.
//
// Filtering is idempotent: zeroed samples stay zero and the confidence
// map is not modified, so applying the same threshold again changes
// nothing.
func FilterDepthByConfidence(depth, confidence []byte, bytesPerSample int, threshold uint8) ([]byte, error) {
	if bytesPerSample != 2 && bytesPerSample != 4 {
		return nil, fmt.Errorf("unsupported depth sample size %d", bytesPerSample)
	}
	if len(depth) != len(confidence)*bytesPerSample {
		return nil, fmt.Errorf("depth has %d bytes but confidence covers %d samples of %d bytes",
			len(depth), len(confidence), bytesPerSample)
	}

	output := make([]byte, len(depth))
	copy(output, depth)
	for i, value := range confidence {
		if value >= threshold {
			continue
		}
		clear(output[i*bytesPerSample : (i+1)*bytesPerSample])
	}
	return output, nil
}
