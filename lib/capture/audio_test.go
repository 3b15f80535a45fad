// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"errors"
	"testing"

	"github.com/arcollect/arcollect/lib/clock"
)

func TestAudioBufferAppendsCallbacks(t *testing.T) {
	fake := clock.Fake(epoch)
	microphone := &testMicrophone{}
	buffer := NewAudioBuffer(microphone, fakeDependencies(fake))
	defer buffer.Dispose()

	buffer.StartCapture()
	samples := []float32{0.5, -0.5, 0.25}
	if !microphone.speak(samples) {
		t.Fatal("microphone not started")
	}

	latest, ok := buffer.TryAcquireLatestFrame()
	if !ok {
		t.Fatal("no audio frame")
	}
	if latest.SampleRate != 16000 || latest.Channels != 1 || len(latest.Samples) != 3 || latest.Samples[1] != -0.5 {
		t.Errorf("audio frame = %+v", latest)
	}

	buffer.StopCapture()
	if microphone.speak(samples) {
		t.Error("microphone still running after StopCapture")
	}
	if buffer.Len() != 1 {
		t.Errorf("buffer holds %d frames after stop, want 1", buffer.Len())
	}
}

func TestAudioBufferMicrophoneFailure(t *testing.T) {
	microphone := &testMicrophone{startErr: errors.New("permission denied")}
	buffer := NewAudioBuffer(microphone, fakeDependencies(clock.Fake(epoch)))

	buffer.StartCapture()
	if buffer.Capturing() {
		t.Error("capturing after microphone failure")
	}
	if buffer.Stats().Skipped != 1 {
		t.Errorf("skipped = %d, want 1", buffer.Stats().Skipped)
	}
	buffer.Dispose()
}
