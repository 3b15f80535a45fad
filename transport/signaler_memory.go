// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"sort"
	"sync"
)

var _ Signaler = (*MemorySignaler)(nil)

// MemorySignaler is an in-process Signaler. Two WebRTCTransports
// sharing one MemorySignaler establish PeerConnections without network
// signaling. The collection service wraps one to relay signaling for
// remote devices. Safe for concurrent use.
type MemorySignaler struct {
	mu       sync.Mutex
	sequence uint64
	offers   map[signalKey]SignalMessage
	answers  map[signalKey]SignalMessage

	// lastSeen records, per consumer and pair, the highest sequence
	// already returned by a poll.
	lastSeen map[consumerKey]uint64
}

type signalKey struct {
	offerer string
	target  string
}

type consumerKey struct {
	answers bool
	pair    signalKey
}

// NewMemorySignaler creates an empty in-process signaler.
func NewMemorySignaler() *MemorySignaler {
	return &MemorySignaler{
		offers:   make(map[signalKey]SignalMessage),
		answers:  make(map[signalKey]SignalMessage),
		lastSeen: make(map[consumerKey]uint64),
	}
}

func (s *MemorySignaler) PublishOffer(_ context.Context, peer, target, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	s.offers[signalKey{offerer: peer, target: target}] = SignalMessage{
		Peer:     peer,
		SDP:      sdp,
		Sequence: s.sequence,
	}
	return nil
}

func (s *MemorySignaler) PublishAnswer(_ context.Context, offerer, peer, sdp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	s.answers[signalKey{offerer: offerer, target: peer}] = SignalMessage{
		Peer:     peer,
		SDP:      sdp,
		Sequence: s.sequence,
	}
	return nil
}

func (s *MemorySignaler) PollOffers(_ context.Context, peer string) ([]SignalMessage, error) {
	return s.poll(s.offers, false, func(key signalKey) bool { return key.target == peer }), nil
}

func (s *MemorySignaler) PollAnswers(_ context.Context, peer string) ([]SignalMessage, error) {
	return s.poll(s.answers, true, func(key signalKey) bool { return key.offerer == peer }), nil
}

// poll returns unseen messages from store whose key matches, in
// publish order.
func (s *MemorySignaler) poll(store map[signalKey]SignalMessage, answers bool, match func(signalKey) bool) []SignalMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []SignalMessage
	for key, message := range store {
		if !match(key) {
			continue
		}
		seen := consumerKey{answers: answers, pair: key}
		if last, ok := s.lastSeen[seen]; ok && message.Sequence <= last {
			continue
		}
		s.lastSeen[seen] = message.Sequence
		messages = append(messages, message)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].Sequence < messages[j].Sequence
	})
	return messages
}
