// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// arcollect-collector is the reference collection service. It keeps
// sessions, membership, per-modality frame counts and intrinsics in
// memory and answers session RPCs over TCP, a Unix socket, or a WebRTC
// data channel.
//
// With the webrtc transport the collector also serves the signaling
// actions on a TCP endpoint (server.signaling_listen). Recorders
// exchange their offers and answers there before opening the data
// channel.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/arcollect/arcollect/lib/clock"
	"github.com/arcollect/arcollect/lib/collector"
	"github.com/arcollect/arcollect/lib/config"
	"github.com/arcollect/arcollect/lib/logging"
	"github.com/arcollect/arcollect/lib/metrics"
	"github.com/arcollect/arcollect/lib/process"
	"github.com/arcollect/arcollect/lib/rpc"
	"github.com/arcollect/arcollect/lib/version"
	"github.com/arcollect/arcollect/transport"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath    string
		listenAddress string
		transportName string
	)

	flagSet := pflag.NewFlagSet("arcollect-collector", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to arcollect.yaml (default: $ARCOLLECT_CONFIG, else built-in defaults)")
	flagSet.StringVar(&listenAddress, "listen", "", "override server.listen")
	flagSet.StringVar(&transportName, "transport", "", "override server.transport (tcp, unix, webrtc)")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("arcollect-collector")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: arcollect-collector [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if listenAddress != "" {
		cfg.Server.Listen = listenAddress
	}
	if transportName != "" {
		cfg.Server.Transport = transportName
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger = logger.With("service", "arcollect-collector")

	ctx, stop := process.SignalContext()
	defer stop()

	return serve(ctx, cfg, logger)
}

// loadConfig prefers --config, then ARCOLLECT_CONFIG, then defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("ARCOLLECT_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	registry := metrics.NewRegistry()
	serviceMetrics, err := collector.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	service := collector.New(clock.Real(), serviceMetrics, logger)
	limits := rpc.Limits{MaxRequestSize: cfg.Server.MaxRequestSize}
	server := rpc.NewServer(limits, logger)
	service.Register(server)

	group, ctx := errgroup.WithContext(ctx)

	listener, err := listen(ctx, cfg.Server, group, logger)
	if err != nil {
		return err
	}
	defer listener.Close()

	group.Go(func() error {
		return listener.Serve(ctx, server)
	})
	if cfg.Metrics.Listen != "" {
		group.Go(func() error {
			return metrics.ListenAndServe(ctx, cfg.Metrics.Listen, registry, logger)
		})
	}

	logger.Info("collector running",
		"transport", cfg.Server.Transport,
		"address", listener.Address(),
		"actions", server.Actions(),
		"version", version.Info(),
	)

	err = group.Wait()
	logger.Info("shutting down", "sessions", len(service.ListSessions()))
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// listen opens the session listener. For webrtc it also starts the TCP
// signaling endpoint on group, backed by an in-process signaler the
// WebRTC transport answers from.
func listen(ctx context.Context, cfg config.ServerConfig, group *errgroup.Group, logger *slog.Logger) (transport.Listener, error) {
	switch cfg.Transport {
	case config.TransportTCP:
		return transport.NewTCPListener(cfg.Listen, logger)
	case config.TransportUnix:
		return transport.NewUnixListener(cfg.Listen, logger)
	case config.TransportWebRTC:
		iceConfig, err := transport.ICEConfigFromURLs(cfg.ICEServers, cfg.ICEUsername, cfg.ICECredential)
		if err != nil {
			return nil, fmt.Errorf("ICE configuration: %w", err)
		}

		signaler := transport.NewMemorySignaler()
		signalingServer := rpc.NewServer(rpc.Limits{}, logger)
		collector.RegisterSignaling(signalingServer, signaler)
		signalingListener, err := transport.NewTCPListener(cfg.SignalingListen, logger)
		if err != nil {
			return nil, fmt.Errorf("signaling listener: %w", err)
		}
		group.Go(func() error {
			defer signalingListener.Close()
			return signalingListener.Serve(ctx, signalingServer)
		})
		logger.Info("serving signaling", "address", signalingListener.Address())

		return transport.NewWebRTCTransport(signaler, cfg.Listen, iceConfig, logger), nil
	default:
		return nil, fmt.Errorf("unknown transport %q", cfg.Transport)
	}
}
