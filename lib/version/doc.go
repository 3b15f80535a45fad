// Copyright 2026 The ARCollect Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the
// ARCollect binaries.
//
// Four package-level variables are injected at build time via
// -ldflags -X:
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// When GitCommit is not injected, the vcs stamps from
// runtime/debug.ReadBuildInfo are used instead. Test binaries carry no
// stamps and report "unknown".
//
//	go build -ldflags "-X github.com/arcollect/arcollect/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
