// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

package transport

import (
	"fmt"
	"strings"

	"github.com/pion/webrtc/v4"
)

// ICEConfig holds the STUN and TURN servers used while gathering
// candidates. An empty config gathers host candidates only, which is
// enough on one machine or a flat LAN.
type ICEConfig struct {
	Servers []webrtc.ICEServer
}

// ICEConfigFromURLs builds an ICEConfig from server URLs such as
// "stun:stun.example.net:3478" or "turn:turn.example.net:3478". STUN
// URLs become one credential-less server entry; TURN URLs share the
// given username and credential.
func ICEConfigFromURLs(urls []string, username, credential string) (ICEConfig, error) {
	var stun, turn []string
	for _, url := range urls {
		switch {
		case strings.HasPrefix(url, "stun:"), strings.HasPrefix(url, "stuns:"):
			stun = append(stun, url)
		case strings.HasPrefix(url, "turn:"), strings.HasPrefix(url, "turns:"):
			turn = append(turn, url)
		default:
			return ICEConfig{}, fmt.Errorf("ICE server URL %q: scheme must be stun, stuns, turn, or turns", url)
		}
	}

	var config ICEConfig
	if len(stun) > 0 {
		config.Servers = append(config.Servers, webrtc.ICEServer{URLs: stun})
	}
	if len(turn) > 0 {
		if username == "" || credential == "" {
			return ICEConfig{}, fmt.Errorf("TURN servers %v require a username and credential", turn)
		}
		config.Servers = append(config.Servers, webrtc.ICEServer{
			URLs:       turn,
			Username:   username,
			Credential: credential,
		})
	}
	return config, nil
}
