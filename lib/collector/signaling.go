// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"context"
	"fmt"

	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/transport"
)

// Signaling action names.
const (
	ActionPublishOffer  = "signal-publish-offer"
	ActionPublishAnswer = "signal-publish-answer"
	ActionPollOffers    = "signal-poll-offers"
	ActionPollAnswers   = "signal-poll-answers"
)

// SignalPublishRequest carries an offer or answer. For an offer, From
// is the offerer and To the target; for an answer, From is the answerer
// and To the original offerer.
type SignalPublishRequest struct {
	From string `cbor:"from"`
	To   string `cbor:"to"`
	SDP  string `cbor:"sdp"`
}

// SignalPollRequest names the peer polling for its messages.
type SignalPollRequest struct {
	Peer string `cbor:"peer"`
}

// SignalPollResult lists messages the poller has not seen.
type SignalPollResult struct {
	Messages []transport.SignalMessage `cbor:"messages"`
}

// RegisterSignaling exposes signaler through the signaling actions on
// server.
func RegisterSignaling(server *rpc.Server, signaler transport.Signaler) {
	server.Handle(ActionPublishOffer, rpc.Typed(func(ctx context.Context, request SignalPublishRequest) (any, error) {
		return nil, signaler.PublishOffer(ctx, request.From, request.To, request.SDP)
	}))
	server.Handle(ActionPublishAnswer, rpc.Typed(func(ctx context.Context, request SignalPublishRequest) (any, error) {
		return nil, signaler.PublishAnswer(ctx, request.To, request.From, request.SDP)
	}))
	server.Handle(ActionPollOffers, rpc.Typed(func(ctx context.Context, request SignalPollRequest) (any, error) {
		messages, err := signaler.PollOffers(ctx, request.Peer)
		if err != nil {
			return nil, err
		}
		return SignalPollResult{Messages: messages}, nil
	}))
	server.Handle(ActionPollAnswers, rpc.Typed(func(ctx context.Context, request SignalPollRequest) (any, error) {
		messages, err := signaler.PollAnswers(ctx, request.Peer)
		if err != nil {
			return nil, err
		}
		return SignalPollResult{Messages: messages}, nil
	}))
}

// SignalingClient is a transport.Signaler backed by a collector's
// signaling actions.
type SignalingClient struct {
	client *rpc.Client
}

var _ transport.Signaler = (*SignalingClient)(nil)

// NewSignalingClient signals through client. The caller keeps
// ownership of client.
func NewSignalingClient(client *rpc.Client) *SignalingClient {
	return &SignalingClient{client: client}
}

func (c *SignalingClient) PublishOffer(ctx context.Context, peer, target, sdp string) error {
	request := SignalPublishRequest{From: peer, To: target, SDP: sdp}
	if err := c.client.Call(ctx, ActionPublishOffer, request, nil); err != nil {
		return fmt.Errorf("publishing offer to %s: %w", target, err)
	}
	return nil
}

func (c *SignalingClient) PublishAnswer(ctx context.Context, offerer, peer, sdp string) error {
	request := SignalPublishRequest{From: peer, To: offerer, SDP: sdp}
	if err := c.client.Call(ctx, ActionPublishAnswer, request, nil); err != nil {
		return fmt.Errorf("publishing answer to %s: %w", offerer, err)
	}
	return nil
}

func (c *SignalingClient) PollOffers(ctx context.Context, peer string) ([]transport.SignalMessage, error) {
	return c.poll(ctx, ActionPollOffers, peer)
}

func (c *SignalingClient) PollAnswers(ctx context.Context, peer string) ([]transport.SignalMessage, error) {
	return c.poll(ctx, ActionPollAnswers, peer)
}

func (c *SignalingClient) poll(ctx context.Context, action, peer string) ([]transport.SignalMessage, error) {
	var result SignalPollResult
	if err := c.client.Call(ctx, action, SignalPollRequest{Peer: peer}, &result); err != nil {
		return nil, fmt.Errorf("polling signals for %s: %w", peer, err)
	}
	return result.Messages, nil
}
