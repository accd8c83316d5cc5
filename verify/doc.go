// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify orchestrates a full verification flow: obtain a
// challenge credential, present it to the user, and long-poll the
// service until the user completes verification out-of-band.
//
// A Verifier runs one flow at a time. Concurrent Start calls coalesce
// onto the in-flight flow and all observe the same outcome. The user
// can abandon a flow at any point, either through the presenter's
// close affordance or through Cancel; once a receipt has been
// obtained, the flow is committed and a racing close no longer turns
// success into cancellation.
package verify
