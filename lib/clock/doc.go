// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for the verification client.
//
// Every delay in this codebase is load-bearing: backoff pauses between
// retries, per-attempt timeouts, and total operation budgets. Production
// code injects Real(); tests inject Fake() and advance time explicitly,
// so the retry engine's timing behavior is asserted exactly rather than
// approximated with sleeps.
package clock
