// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for the ARCollect
// binaries.
//
// Configuration is loaded from a single file named either by the
// ARCOLLECT_CONFIG environment variable (via [Load]) or a --config
// flag (via [LoadFile]). There is no search path and no per-field
// environment override.
//
// The file may contain development and production sections that
// override base values when [Config].Environment matches. Production
// turns logging.format auto into json.
//
// ${VAR} and ${VAR:-default} patterns are expanded in path-like fields
// after loading. Durations are strings ("250ms", "30s") parsed by the
// accessor methods; [Config.Validate] rejects any that do not parse.
package config
