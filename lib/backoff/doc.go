// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package backoff is the retry policy for verification API calls:
// jittered exponential delays, retryability classification for HTTP
// statuses and transport errors, and the attempt/budget gate.
//
// The package computes and classifies; it never sleeps. The API client
// owns the loop, the clock, and the cancellation wiring.
package backoff
