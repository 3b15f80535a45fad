// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import "context"

// Signaler exchanges WebRTC session descriptions between peers. Peers
// are identified by name: a device id for recorders, the configured
// service name for a collector.
//
// Signaling is vanilla ICE: every candidate is embedded in the SDP
// before it is published, so establishing a connection takes exactly
// one offer and one answer.
type Signaler interface {
	// PublishOffer stores a complete SDP offer from peer to target,
	// replacing any earlier offer on the same pair.
	PublishOffer(ctx context.Context, peer, target, sdp string) error

	// PublishAnswer stores a complete SDP answer from peer to the
	// offerer of a previously received offer.
	PublishAnswer(ctx context.Context, offerer, peer, sdp string) error

	// PollOffers returns offers directed at peer that it has not seen
	// before.
	PollOffers(ctx context.Context, peer string) ([]SignalMessage, error)

	// PollAnswers returns answers to offers peer published that it has
	// not seen before.
	PollAnswers(ctx context.Context, peer string) ([]SignalMessage, error)
}

// SignalMessage is one published offer or answer.
type SignalMessage struct {
	// Peer is the other party: the offerer for a received offer, the
	// answerer for a received answer.
	Peer string `cbor:"peer"`

	// SDP is the session description with all ICE candidates embedded.
	SDP string `cbor:"sdp"`

	// Sequence increases with every publish on a signaler. Consumers
	// use it to skip messages they already processed.
	Sequence uint64 `cbor:"sequence"`
}
