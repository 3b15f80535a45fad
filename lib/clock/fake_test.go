// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFakeClockNow(t *testing.T) {
	clock := Fake(epoch)
	if got := clock.Now(); !got.Equal(epoch) {
		t.Fatalf("Now() = %v, want %v", got, epoch)
	}
	clock.Advance(50 * time.Millisecond)
	want := epoch.Add(50 * time.Millisecond)
	if got := clock.Now(); !got.Equal(want) {
		t.Fatalf("Now() after Advance = %v, want %v", got, want)
	}
}

func TestFakeClockAfter(t *testing.T) {
	clock := Fake(epoch)
	channel := clock.After(3 * time.Second)

	clock.Advance(2 * time.Second)
	select {
	case <-channel:
		t.Fatal("After fired before deadline")
	default:
	}

	clock.Advance(1 * time.Second)
	select {
	case <-channel:
	default:
		t.Fatal("After did not fire at deadline")
	}

	if clock.PendingCount() != 0 {
		t.Fatalf("expected no pending waiters, got %d", clock.PendingCount())
	}
}

func TestFakeClockAfterNonPositive(t *testing.T) {
	clock := Fake(epoch)
	for _, d := range []time.Duration{0, -time.Second} {
		select {
		case <-clock.After(d):
		default:
			t.Fatalf("After(%v) should fire immediately", d)
		}
	}
}

func TestFakeClockTickerFiresEachInterval(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for i := 1; i <= 3; i++ {
		clock.Advance(50 * time.Millisecond)
		select {
		case fired := <-ticker.C:
			want := epoch.Add(time.Duration(i) * 50 * time.Millisecond)
			if !fired.Equal(want) {
				t.Fatalf("tick %d at %v, want %v", i, fired, want)
			}
		default:
			t.Fatalf("tick %d did not fire", i)
		}
	}
}

func TestFakeClockTickerDropsWhenFull(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	// Five intervals elapse with nobody reading: the channel holds one.
	clock.Advance(50 * time.Millisecond)

	select {
	case <-ticker.C:
	default:
		t.Fatal("expected one buffered tick")
	}
	select {
	case <-ticker.C:
		t.Fatal("expected extra ticks to be dropped")
	default:
	}
}

func TestFakeClockTickerStop(t *testing.T) {
	clock := Fake(epoch)
	ticker := clock.NewTicker(10 * time.Millisecond)
	ticker.Stop()

	clock.Advance(20 * time.Millisecond)
	select {
	case <-ticker.C:
		t.Fatal("stopped ticker fired")
	default:
	}

	if clock.PendingCount() != 0 {
		t.Fatalf("stopped ticker still pending: %d waiters", clock.PendingCount())
	}
}

func TestFakeClockWaitForTimers(t *testing.T) {
	clock := Fake(epoch)
	done := make(chan struct{})

	go func() {
		<-clock.After(time.Second)
		close(done)
	}()

	clock.WaitForTimers(1)
	clock.Advance(time.Second)

	select {
	case <-done:
	case <-time.After(5 * time.Second): //nolint:realclock test hang prevention
		t.Fatal("After did not fire after Advance")
	}
}

func TestFakeClockNewTickerPanicsOnZero(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for zero interval")
		}
	}()
	Fake(epoch).NewTicker(0)
}
