// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// Package httpx provides bounded HTTP response body reads for the
// verification API client.
//
// All verification service responses are small JSON documents (a token,
// a receipt, an error envelope). The read bound exists so that a
// misbehaving server or intercepting proxy cannot make the client
// allocate unbounded memory; it is far above anything a legitimate
// response produces.
package httpx

import (
	"encoding/json"
	"fmt"
	"io"
)

// MaxBodySize bounds response body reads: 4 MB. Verification service
// responses are a few hundred bytes; the headroom covers verbose error
// envelopes from intermediaries.
const MaxBodySize int64 = 4 << 20

// ReadBody reads a response body up to MaxBodySize bytes. Use instead
// of io.ReadAll on HTTP response bodies.
func ReadBody(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxBodySize))
}

// DecodeJSON reads a response body (bounded by MaxBodySize) and
// JSON-decodes it into v.
func DecodeJSON(body io.Reader, v any) error {
	data, err := ReadBody(body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding response body: %w", err)
	}
	return nil
}

// ErrorBody reads an error response body for diagnostic messages. Read
// failures are ignored; a truncated body is still useful in an error
// string.
func ErrorBody(body io.Reader) string {
	data, _ := ReadBody(body)
	return string(data)
}
