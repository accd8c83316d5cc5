// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the client. Callers match them with
// errors.Is; everything else arrives as *APIError or *NetworkError.
var (
	// ErrCancelled reports that the operation was aborted by user
	// cancellation. The orchestrator installs it as the cancel cause;
	// the engine never retries after seeing it.
	ErrCancelled = errors.New("api: operation cancelled")

	// ErrTimedOut reports that the total operation budget was
	// exhausted, either by elapsed attempts or because the next
	// backoff delay could not fit in the remaining budget.
	ErrTimedOut = errors.New("api: operation timed out")

	// ErrChallengeExpired reports a 410 from the wait endpoint: the
	// challenge expired server-side before the user completed it.
	ErrChallengeExpired = errors.New("api: challenge expired")

	// ErrInvalidResponse reports a 2xx whose body did not parse into
	// the expected shape. Never coerced into a success.
	ErrInvalidResponse = errors.New("api: invalid response body")

	// ErrNoReceipt reports a well-formed wait response that carried
	// no usable receipt.
	ErrNoReceipt = errors.New("api: response carried no receipt")
)

// APIError is a non-2xx response from the verification service, after
// the retry engine has given up on it (or classified it permanent).
type APIError struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int

	// Message is the error body, decoded from the service's error
	// envelope when possible, raw otherwise.
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api: service returned %d: %s", e.StatusCode, e.Message)
}

// NetworkError is a transport-level failure, after the retry engine
// has given up on it. Temporary records how the failure classified;
// permanent failures (TLS, certificate) were never retried.
type NetworkError struct {
	Temporary bool
	Err       error
}

func (e *NetworkError) Error() string {
	kind := "permanent"
	if e.Temporary {
		kind = "temporary"
	}
	return fmt.Sprintf("api: %s network failure: %v", kind, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
