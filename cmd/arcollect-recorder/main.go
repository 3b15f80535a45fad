// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// arcollect-recorder records a capture session from a simulated AR
// device and uploads it to an arcollect-collector.
//
// The recorder creates a session (or joins session.id), corrects frame
// timestamps against the configured time source, starts one buffer per
// enabled modality and ships converted frames every flush interval
// until interrupted. On SIGINT or SIGTERM it stops capture, makes a
// final upload pass and leaves the session.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/arcollect/arcollect/lib/config"
	"github.com/arcollect/arcollect/lib/logging"
	"github.com/arcollect/arcollect/lib/metrics"
	"github.com/arcollect/arcollect/lib/process"
	"github.com/arcollect/arcollect/lib/version"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		configPath  string
		address     string
		sessionID   string
		sessionName string
		deviceID    string
	)

	flagSet := pflag.NewFlagSet("arcollect-recorder", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to arcollect.yaml (default: $ARCOLLECT_CONFIG, else built-in defaults)")
	flagSet.StringVar(&address, "collector", "", "override collector.address")
	flagSet.StringVar(&sessionID, "session", "", "join this session id instead of creating one")
	flagSet.StringVar(&sessionName, "name", "", "override session.name")
	flagSet.StringVar(&deviceID, "device-id", "", "override device.id")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		version.Print("arcollect-recorder")
		return nil
	}
	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		fmt.Fprintf(os.Stderr, "Usage: arcollect-recorder [flags]\n\n%s", flagSet.FlagUsages())
		return nil
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	override(&cfg.Collector.Address, address)
	override(&cfg.Session.ID, sessionID)
	override(&cfg.Session.Name, sessionName)
	override(&cfg.Device.ID, deviceID)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	logger = logger.With("service", "arcollect-recorder", "device", cfg.Device.ID)

	ctx, stop := process.SignalContext()
	defer stop()

	return record(ctx, cfg, metrics.NewRegistry(), logger)
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

func override(field *string, value string) {
	if value != "" {
		*field = value
	}
}
