// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides YAML configuration loading for Tapproof
// clients.
//
// Configuration is loaded from a single file specified by either the
// TAPPROOF_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks, no ~/.config discovery,
// and no automatic file search. This ensures deterministic, auditable
// configuration with no hidden overrides.
//
// The configuration file supports environment-specific sections
// (development, staging, production) that override base values when
// [Config].Environment matches.
//
// Key exports:
//
//   - [Config] -- master struct with API, Flow, and Retry sections
//   - [Default] -- returns a Config with development defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//
// This package depends on no other Tapproof packages except backoff.
package config
