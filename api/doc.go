// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package api is the HTTP client for the Tapproof verification
// service: a one-shot challenge create call and a long-polled receipt
// wait call, both driven by the same retry engine.
//
// The engine enforces two timeout horizons at once. The total budget
// bounds the whole retry loop for an operation; the per-attempt
// ceiling bounds a single network call so that one stalled request
// cannot eat the entire budget. Both are enforced by aborting the
// in-flight request, not by abandoning it.
//
// Long-poll protocol: the wait endpoint holds the connection open
// server-side. A 408 response is the server saying "nothing yet, ask
// again": it resets the attempt counter and is retried immediately,
// because the server-side hold already paced the loop. A 410 means the
// challenge expired server-side and is terminal.
package api
