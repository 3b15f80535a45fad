// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/arcollect/arcollect/lib/testutil"
)

// startWebRTCPair creates two transports on a shared MemorySignaler,
// serves echo handlers on both, and waits until both are polling.
func startWebRTCPair(t *testing.T) (device, collector *WebRTCTransport) {
	t.Helper()
	ctx := t.Context()
	signaler := NewMemorySignaler()

	device = NewWebRTCTransport(signaler, "device-0001", ICEConfig{}, nil)
	t.Cleanup(func() { device.Close() })
	collector = NewWebRTCTransport(signaler, "collector", ICEConfig{}, nil)
	t.Cleanup(func() { collector.Close() })

	go device.Serve(ctx, echoHandler("device:"))
	go collector.Serve(ctx, echoHandler("collector:"))

	testutil.RequireClosed(t, device.Ready(), 5*time.Second, "device transport ready")
	testutil.RequireClosed(t, collector.Ready(), 5*time.Second, "collector transport ready")
	return device, collector
}

func TestWebRTCTransportDialAndServe(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	defer cancel()
	device, collector := startWebRTCPair(t)

	conn, err := device.DialContext(ctx, collector.Address())
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	defer conn.Close()

	if reply := exchange(t, conn, "join-session"); reply != "collector:join-session" {
		t.Errorf("reply = %q, want %q", reply, "collector:join-session")
	}
	if conn.RemoteAddr().Network() != "webrtc" {
		t.Errorf("RemoteAddr().Network() = %q, want webrtc", conn.RemoteAddr().Network())
	}
}

func TestWebRTCTransportSequentialChannels(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	defer cancel()
	device, collector := startWebRTCPair(t)

	for index := range 3 {
		conn, err := device.DialContext(ctx, collector.Address())
		if err != nil {
			t.Fatalf("dial %d: %v", index, err)
		}
		request := fmt.Sprintf("request-%d", index)
		if reply := exchange(t, conn, request); reply != "collector:"+request {
			t.Errorf("dial %d: reply = %q, want %q", index, reply, "collector:"+request)
		}
		conn.Close()
	}

	device.mu.Lock()
	peers := len(device.peers)
	device.mu.Unlock()
	if peers != 1 {
		t.Errorf("device holds %d PeerConnections, want 1 shared by every channel", peers)
	}
}

func TestWebRTCTransportConcurrentDials(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	defer cancel()
	device, collector := startWebRTCPair(t)

	const dials = 4
	var wg sync.WaitGroup
	errs := make(chan error, dials)
	for index := range dials {
		wg.Go(func() {
			conn, err := device.DialContext(ctx, collector.Address())
			if err != nil {
				errs <- fmt.Errorf("dial %d: %w", index, err)
				return
			}
			defer conn.Close()
			request := fmt.Sprintf("concurrent-%d", index)
			reply, err := roundTrip(conn, request)
			if err != nil {
				errs <- fmt.Errorf("dial %d: %w", index, err)
				return
			}
			if reply != "collector:"+request {
				errs <- fmt.Errorf("dial %d: reply = %q", index, reply)
			}
		})
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestWebRTCTransportBidirectional(t *testing.T) {
	ctx, cancel := context.WithTimeout(t.Context(), 60*time.Second)
	defer cancel()
	device, collector := startWebRTCPair(t)

	toCollector, err := device.DialContext(ctx, collector.Address())
	if err != nil {
		t.Fatalf("device dial: %v", err)
	}
	defer toCollector.Close()
	if reply := exchange(t, toCollector, "ping"); reply != "collector:ping" {
		t.Errorf("device→collector reply = %q", reply)
	}

	// The collector reuses the PeerConnection the device established.
	toDevice, err := collector.DialContext(ctx, device.Address())
	if err != nil {
		t.Fatalf("collector dial: %v", err)
	}
	defer toDevice.Close()
	if reply := exchange(t, toDevice, "ping"); reply != "device:ping" {
		t.Errorf("collector→device reply = %q", reply)
	}
}

func TestWebRTCTransportAddress(t *testing.T) {
	wt := NewWebRTCTransport(NewMemorySignaler(), "device-7", ICEConfig{}, nil)
	defer wt.Close()

	if address := wt.Address(); address != "device-7" {
		t.Errorf("Address() = %q, want %q", address, "device-7")
	}
}

func TestWebRTCTransportDialAfterClose(t *testing.T) {
	wt := NewWebRTCTransport(NewMemorySignaler(), "device-1", ICEConfig{}, nil)
	wt.Close()

	_, err := wt.DialContext(context.Background(), "collector")
	if err != net.ErrClosed {
		t.Fatalf("DialContext after Close: err = %v, want net.ErrClosed", err)
	}
}

func TestWebRTCTransportServeReturnsOnClose(t *testing.T) {
	wt := NewWebRTCTransport(NewMemorySignaler(), "collector", ICEConfig{}, nil)

	done := make(chan error, 1)
	go func() {
		done <- wt.Serve(context.Background(), echoHandler(""))
	}()
	testutil.RequireClosed(t, wt.Ready(), 5*time.Second, "transport ready")

	wt.Close()
	if err := testutil.RequireReceive(t, done, 5*time.Second, "Serve return"); err != nil {
		t.Fatalf("Serve returned %v, want nil", err)
	}
}

func TestICEConfigFromURLs(t *testing.T) {
	tests := []struct {
		name       string
		urls       []string
		username   string
		credential string
		servers    int
		wantErr    bool
	}{
		{name: "empty", servers: 0},
		{name: "stun only", urls: []string{"stun:a:3478", "stun:b:3478"}, servers: 1},
		{name: "stun and turn", urls: []string{"stun:a:3478", "turns:b:5349"}, username: "u", credential: "c", servers: 2},
		{name: "turn without credentials", urls: []string{"turn:b:3478"}, wantErr: true},
		{name: "unknown scheme", urls: []string{"http://b"}, wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			config, err := ICEConfigFromURLs(test.urls, test.username, test.credential)
			if test.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ICEConfigFromURLs: %v", err)
			}
			if len(config.Servers) != test.servers {
				t.Fatalf("servers = %d, want %d", len(config.Servers), test.servers)
			}
		})
	}
}

func TestMemorySignalerPublishAndPoll(t *testing.T) {
	signaler := NewMemorySignaler()
	ctx := context.Background()

	if err := signaler.PublishOffer(ctx, "device-a", "collector", "offer-sdp"); err != nil {
		t.Fatalf("PublishOffer: %v", err)
	}

	offers, err := signaler.PollOffers(ctx, "collector")
	if err != nil {
		t.Fatalf("PollOffers: %v", err)
	}
	if len(offers) != 1 || offers[0].Peer != "device-a" || offers[0].SDP != "offer-sdp" {
		t.Fatalf("offers = %+v, want one offer from device-a", offers)
	}

	offers, _ = signaler.PollOffers(ctx, "collector")
	if len(offers) != 0 {
		t.Errorf("second poll returned %d offers, want 0", len(offers))
	}

	if err := signaler.PublishAnswer(ctx, "device-a", "collector", "answer-sdp"); err != nil {
		t.Fatalf("PublishAnswer: %v", err)
	}
	answers, err := signaler.PollAnswers(ctx, "device-a")
	if err != nil {
		t.Fatalf("PollAnswers: %v", err)
	}
	if len(answers) != 1 || answers[0].Peer != "collector" || answers[0].SDP != "answer-sdp" {
		t.Fatalf("answers = %+v, want one answer from collector", answers)
	}
}

func TestMemorySignalerRepublishIsSeenAgain(t *testing.T) {
	signaler := NewMemorySignaler()
	ctx := context.Background()

	signaler.PublishOffer(ctx, "device-a", "collector", "first")
	signaler.PollOffers(ctx, "collector")
	signaler.PublishOffer(ctx, "device-a", "collector", "second")

	offers, _ := signaler.PollOffers(ctx, "collector")
	if len(offers) != 1 || offers[0].SDP != "second" {
		t.Fatalf("offers = %+v, want the republished offer", offers)
	}
}

func TestMemorySignalerOrdersAndFilters(t *testing.T) {
	signaler := NewMemorySignaler()
	ctx := context.Background()

	signaler.PublishOffer(ctx, "device-b", "collector", "b")
	signaler.PublishOffer(ctx, "device-a", "collector", "a")
	signaler.PublishOffer(ctx, "device-a", "other-collector", "elsewhere")

	offers, _ := signaler.PollOffers(ctx, "collector")
	if len(offers) != 2 {
		t.Fatalf("got %d offers, want 2", len(offers))
	}
	if offers[0].Peer != "device-b" || offers[1].Peer != "device-a" {
		t.Errorf("offers out of publish order: %+v", offers)
	}
	if offers[0].Sequence >= offers[1].Sequence {
		t.Errorf("sequences not increasing: %d, %d", offers[0].Sequence, offers[1].Sequence)
	}
}
