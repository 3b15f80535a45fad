// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
)

var (
	_ Listener = (*WebRTCTransport)(nil)
	_ Dialer   = (*WebRTCTransport)(nil)
)

const (
	// signalingPollInterval is how often Serve polls for inbound offers.
	signalingPollInterval = 2 * time.Second

	// iceGatherTimeout bounds candidate gathering before an SDP is
	// published.
	iceGatherTimeout = 15 * time.Second

	answerPollInterval = 500 * time.Millisecond
	answerTimeout      = 30 * time.Second

	// dataChannelOpenTimeout bounds the wait for a new data channel to
	// reach the open state.
	dataChannelOpenTimeout = 10 * time.Second
)

// initChannelLabel names the data channel created only so the offer SDP
// carries an application section. Neither side uses it.
const initChannelLabel = "init"

// WebRTCTransport connects devices and collectors over WebRTC data
// channels. It implements Listener and Dialer on one instance because
// both directions share the same PeerConnections.
type WebRTCTransport struct {
	signaler Signaler
	name     string
	logger   *slog.Logger

	iceConfig ICEConfig

	// peers maps peer name to its PeerConnection.
	mu    sync.Mutex
	peers map[string]*peerState

	// inboundConnections carries data channels opened by remote peers.
	inboundConnections chan net.Conn

	ready     chan struct{}
	readyOnce sync.Once

	closed    chan struct{}
	closeOnce sync.Once

	channelCounter atomic.Uint64
}

// peerState tracks the PeerConnection to one remote peer. Guarded by
// WebRTCTransport.mu.
type peerState struct {
	connection  *webrtc.PeerConnection
	name        string
	established chan struct{} // closed when ICE reaches Connected/Completed
}

// NewWebRTCTransport creates a transport that signals as name.
func NewWebRTCTransport(signaler Signaler, name string, iceConfig ICEConfig, logger *slog.Logger) *WebRTCTransport {
	return &WebRTCTransport{
		signaler:           signaler,
		name:               name,
		iceConfig:          iceConfig,
		logger:             discardLogger(logger),
		peers:              make(map[string]*peerState),
		inboundConnections: make(chan net.Conn, 64),
		ready:              make(chan struct{}),
		closed:             make(chan struct{}),
	}
}

// Ready is closed once Serve is polling for offers. Dial only after
// Ready when both ends run in the same process.
func (wt *WebRTCTransport) Ready() <-chan struct{} {
	return wt.ready
}

// Serve polls the signaler for inbound offers and dispatches every data
// channel a peer opens to handler. Blocks until ctx is cancelled or
// Close is called.
func (wt *WebRTCTransport) Serve(ctx context.Context, handler ConnHandler) error {
	go wt.signalingPoller(ctx)
	wt.readyOnce.Do(func() { close(wt.ready) })

	listener := &chanListener{
		connections: wt.inboundConnections,
		closed:      wt.closed,
		address:     wt.name,
		done:        make(chan struct{}),
	}
	return serveListener(ctx, listener, handler, wt.logger)
}

// Address returns the name this transport signals as.
func (wt *WebRTCTransport) Address() string {
	return wt.name
}

// Close tears down every PeerConnection and stops Serve.
func (wt *WebRTCTransport) Close() error {
	wt.closeOnce.Do(func() {
		close(wt.closed)
	})

	wt.mu.Lock()
	defer wt.mu.Unlock()

	for name, peer := range wt.peers {
		peer.connection.Close()
		delete(wt.peers, name)
	}
	return nil
}

// DialContext opens a data channel to the peer named address,
// establishing a PeerConnection first if none is live.
func (wt *WebRTCTransport) DialContext(ctx context.Context, address string) (net.Conn, error) {
	select {
	case <-wt.closed:
		return nil, net.ErrClosed
	default:
	}

	peer, err := wt.getOrCreatePeer(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("establishing peer connection to %s: %w", address, err)
	}

	select {
	case <-peer.established:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-wt.closed:
		return nil, net.ErrClosed
	}

	return wt.openDataChannel(ctx, peer)
}

// getOrCreatePeer returns the live peerState for name, signaling a new
// PeerConnection if necessary. Concurrent callers share one attempt.
func (wt *WebRTCTransport) getOrCreatePeer(ctx context.Context, name string) (*peerState, error) {
	wt.mu.Lock()

	if peer, ok := wt.peers[name]; ok {
		if usable(peer.connection) {
			wt.mu.Unlock()
			return peer, nil
		}
		peer.connection.Close()
		delete(wt.peers, name)
	}

	pc, err := wt.newPeerConnection()
	if err != nil {
		wt.mu.Unlock()
		return nil, fmt.Errorf("creating PeerConnection: %w", err)
	}

	// Registered before signaling so concurrent dialers wait on it.
	peer := &peerState{
		connection:  pc,
		name:        name,
		established: make(chan struct{}),
	}
	wt.peers[name] = peer
	wt.mu.Unlock()

	if err := wt.establishOutbound(ctx, peer); err != nil {
		wt.forgetPeer(peer)
		pc.Close()
		return nil, err
	}
	return peer, nil
}

// establishOutbound publishes an offer for peer and applies the answer.
// The ICE state handler closes peer.established once connected.
func (wt *WebRTCTransport) establishOutbound(ctx context.Context, peer *peerState) error {
	pc := peer.connection
	wt.watchPeer(peer)

	if _, err := pc.CreateDataChannel(initChannelLabel, nil); err != nil {
		return fmt.Errorf("creating init data channel: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		return fmt.Errorf("creating SDP offer: %w", err)
	}
	completeSDP, err := wt.gatherLocal(ctx, pc, offer)
	if err != nil {
		return err
	}

	if err := wt.signaler.PublishOffer(ctx, wt.name, peer.name, completeSDP); err != nil {
		return fmt.Errorf("publishing SDP offer: %w", err)
	}
	wt.logger.Info("webrtc offer published", "peer", peer.name)

	answerSDP, err := wt.waitForAnswer(ctx, peer.name)
	if err != nil {
		return fmt.Errorf("waiting for SDP answer from %s: %w", peer.name, err)
	}

	answer := webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: answerSDP}
	if err := pc.SetRemoteDescription(answer); err != nil {
		return fmt.Errorf("setting remote description: %w", err)
	}

	wt.logger.Info("webrtc outbound connection negotiated", "peer", peer.name)
	return nil
}

// gatherLocal sets description as the local description and waits for
// candidate gathering to finish, returning the complete SDP.
func (wt *WebRTCTransport) gatherLocal(ctx context.Context, pc *webrtc.PeerConnection, description webrtc.SessionDescription) (string, error) {
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(description); err != nil {
		return "", fmt.Errorf("setting local description: %w", err)
	}

	select {
	case <-gatherComplete:
	case <-time.After(iceGatherTimeout):
		return "", fmt.Errorf("ICE gathering timed out after %s", iceGatherTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return pc.LocalDescription().SDP, nil
}

func (wt *WebRTCTransport) waitForAnswer(ctx context.Context, peerName string) (string, error) {
	deadline := time.After(answerTimeout)
	ticker := time.NewTicker(answerPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-deadline:
			return "", fmt.Errorf("timed out after %s", answerTimeout)
		case <-ctx.Done():
			return "", ctx.Err()
		case <-wt.closed:
			return "", net.ErrClosed
		case <-ticker.C:
			answers, err := wt.signaler.PollAnswers(ctx, wt.name)
			if err != nil {
				wt.logger.Warn("polling for SDP answer failed", "error", err)
				continue
			}
			for _, answer := range answers {
				if answer.Peer == peerName {
					return answer.SDP, nil
				}
			}
		}
	}
}

func (wt *WebRTCTransport) signalingPoller(ctx context.Context) {
	ticker := time.NewTicker(signalingPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wt.closed:
			return
		case <-ticker.C:
			wt.processInboundOffers(ctx)
		}
	}
}

func (wt *WebRTCTransport) processInboundOffers(ctx context.Context) {
	offers, err := wt.signaler.PollOffers(ctx, wt.name)
	if err != nil {
		wt.logger.Warn("polling for SDP offers failed", "error", err)
		return
	}

	for _, offer := range offers {
		wt.mu.Lock()
		existing, hasExisting := wt.peers[offer.Peer]
		if hasExisting {
			// Both sides dialed at once: the smaller name is the
			// canonical offerer.
			if usable(existing.connection) && offer.Peer > wt.name {
				wt.mu.Unlock()
				continue
			}
			existing.connection.Close()
			delete(wt.peers, offer.Peer)
		}
		wt.mu.Unlock()

		if err := wt.answerOffer(ctx, offer); err != nil {
			wt.logger.Error("answering webrtc offer failed",
				"peer", offer.Peer,
				"error", err,
			)
		}
	}
}

// answerOffer creates a PeerConnection for an inbound offer and
// publishes the answer.
func (wt *WebRTCTransport) answerOffer(ctx context.Context, offer SignalMessage) error {
	pc, err := wt.newPeerConnection()
	if err != nil {
		return fmt.Errorf("creating PeerConnection: %w", err)
	}

	peer := &peerState{
		connection:  pc,
		name:        offer.Peer,
		established: make(chan struct{}),
	}
	wt.watchPeer(peer)

	remoteOffer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}
	if err := pc.SetRemoteDescription(remoteOffer); err != nil {
		pc.Close()
		return fmt.Errorf("setting remote description: %w", err)
	}

	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		pc.Close()
		return fmt.Errorf("creating SDP answer: %w", err)
	}
	completeSDP, err := wt.gatherLocal(ctx, pc, answer)
	if err != nil {
		pc.Close()
		return err
	}

	if err := wt.signaler.PublishAnswer(ctx, offer.Peer, wt.name, completeSDP); err != nil {
		pc.Close()
		return fmt.Errorf("publishing SDP answer: %w", err)
	}

	wt.mu.Lock()
	wt.peers[offer.Peer] = peer
	wt.mu.Unlock()

	wt.logger.Info("webrtc inbound connection answered", "peer", offer.Peer)
	return nil
}

// watchPeer installs the data channel and ICE state callbacks on a new
// PeerConnection.
func (wt *WebRTCTransport) watchPeer(peer *peerState) {
	peer.connection.OnDataChannel(func(dc *webrtc.DataChannel) {
		wt.handleInboundDataChannel(dc, peer.name)
	})
	peer.connection.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		wt.handleICEStateChange(peer, state)
	})
}

// handleInboundDataChannel detaches a data channel opened by a peer and
// queues it for Serve.
func (wt *WebRTCTransport) handleInboundDataChannel(dc *webrtc.DataChannel, peerName string) {
	// Leaving the init channel open costs a blocked reader on the SCTP
	// association for its whole lifetime.
	if dc.Label() == initChannelLabel {
		dc.OnOpen(func() {
			dc.Close()
		})
		return
	}

	dc.OnOpen(func() {
		wt.logger.Debug("inbound data channel opened",
			"peer", peerName,
			"label", dc.Label(),
		)
		rawChannel, err := dc.Detach()
		if err != nil {
			wt.logger.Error("detaching inbound data channel failed",
				"peer", peerName,
				"label", dc.Label(),
				"error", err,
			)
			return
		}

		conn := NewDataChannelConn(
			rawChannel,
			wt.name+"/"+dc.Label(),
			peerName+"/"+dc.Label(),
		)

		select {
		case wt.inboundConnections <- conn:
		case <-wt.closed:
			conn.Close()
		}
	})
}

func (wt *WebRTCTransport) handleICEStateChange(peer *peerState, state webrtc.ICEConnectionState) {
	wt.logger.Info("ice state change",
		"peer", peer.name,
		"state", state.String(),
	)

	switch state {
	case webrtc.ICEConnectionStateConnected, webrtc.ICEConnectionStateCompleted:
		select {
		case <-peer.established:
		default:
			close(peer.established)
		}

	case webrtc.ICEConnectionStateFailed:
		// The next DialContext sees the failed state and re-signals.
		wt.logger.Warn("webrtc connection failed", "peer", peer.name)

	case webrtc.ICEConnectionStateClosed:
		wt.forgetPeer(peer)
	}
}

// forgetPeer removes peer from the map if it is still the current entry
// for its name.
func (wt *WebRTCTransport) forgetPeer(peer *peerState) {
	wt.mu.Lock()
	defer wt.mu.Unlock()
	if current, ok := wt.peers[peer.name]; ok && current == peer {
		delete(wt.peers, peer.name)
	}
}

// openDataChannel creates an ordered, reliable data channel to peer and
// returns it as a net.Conn once open.
func (wt *WebRTCTransport) openDataChannel(ctx context.Context, peer *peerState) (net.Conn, error) {
	label := fmt.Sprintf("rpc-%d", wt.channelCounter.Add(1))

	ordered := true
	dc, err := peer.connection.CreateDataChannel(label, &webrtc.DataChannelInit{
		Ordered: &ordered,
	})
	if err != nil {
		return nil, fmt.Errorf("creating data channel %s: %w", label, err)
	}

	opened := make(chan struct{})
	dc.OnOpen(func() {
		close(opened)
	})

	select {
	case <-opened:
	case <-time.After(dataChannelOpenTimeout):
		dc.Close()
		return nil, fmt.Errorf("data channel %s did not open within %s", label, dataChannelOpenTimeout)
	case <-ctx.Done():
		dc.Close()
		return nil, ctx.Err()
	case <-wt.closed:
		dc.Close()
		return nil, net.ErrClosed
	}

	rawChannel, err := dc.Detach()
	if err != nil {
		dc.Close()
		return nil, fmt.Errorf("detaching data channel %s: %w", label, err)
	}

	wt.logger.Debug("data channel opened", "label", label, "peer", peer.name)
	return NewDataChannelConn(
		rawChannel,
		wt.name+"/"+label,
		peer.name+"/"+label,
	), nil
}

// newPeerConnection creates a PeerConnection with the transport's ICE
// config, detached data channels, and loopback candidates enabled.
func (wt *WebRTCTransport) newPeerConnection() (*webrtc.PeerConnection, error) {
	config := webrtc.Configuration{
		ICEServers: wt.iceConfig.Servers,
	}

	settingEngine := webrtc.SettingEngine{}
	settingEngine.DetachDataChannels()
	settingEngine.SetIncludeLoopbackCandidate(true)

	api := webrtc.NewAPI(webrtc.WithSettingEngine(settingEngine))
	return api.NewPeerConnection(config)
}

// usable reports whether pc is connected or still connecting.
func usable(pc *webrtc.PeerConnection) bool {
	state := pc.ICEConnectionState()
	return state != webrtc.ICEConnectionStateFailed && state != webrtc.ICEConnectionStateClosed
}

// chanListener adapts the inbound connection channel to net.Listener.
// Closing it ends one Serve call; the transport stays usable.
type chanListener struct {
	connections <-chan net.Conn
	closed      <-chan struct{}
	address     string

	done      chan struct{}
	closeOnce sync.Once
}

func (l *chanListener) Accept() (net.Conn, error) {
	select {
	case conn := <-l.connections:
		return conn, nil
	case <-l.closed:
		return nil, net.ErrClosed
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *chanListener) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

func (l *chanListener) Addr() net.Addr {
	return &dataChannelAddr{label: l.address}
}
