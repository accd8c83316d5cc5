// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package challenge decodes and holds short-lived challenge tokens.
//
// A challenge token is an opaque two-part string,
// base64url(claims).signature. The client decodes the claims to learn
// the routing region, the challenge ID, and the expiry; it never
// verifies the signature; that is the server's business. Expiry is
// derived purely from the embedded claims and re-evaluated on every
// read, so a token is trusted for exactly as long as its issuer said
// it should be.
package challenge
