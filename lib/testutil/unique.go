// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"fmt"
	"sync/atomic"
)

var uniqueCounter atomic.Uint64

// UniqueID returns a string of the form "prefix-N" where N is a
// monotonically increasing integer. Use this instead of time.Now() when
// tests need unique identifiers for challenge IDs, receipts, or
// request IDs.
//
//	challengeID := testutil.UniqueID("chal")  // "chal-1", "chal-2", ...
//	receipt := testutil.UniqueID("rcpt")      // "rcpt-3", ...
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, uniqueCounter.Add(1))
}
