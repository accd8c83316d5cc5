// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
)

// Decision is the outcome of classifying a failed attempt.
type Decision int

const (
	// Retry means the failure is likely transient and another attempt
	// may succeed.
	Retry Decision = iota

	// Stop means the failure is permanent: retrying cannot help and
	// only delays the error reaching the caller.
	Stop
)

// String returns "retry" or "stop" for logging.
func (d Decision) String() string {
	if d == Retry {
		return "retry"
	}
	return "stop"
}

// ClassifyStatus classifies a non-2xx HTTP status. 429 and every 5xx
// are transient server conditions; everything else in the 4xx range is
// a permanent client error. 410 lands in Stop like the rest of the
// 4xx family; the API client detects it first and reports challenge
// expiry before consulting this function, as it does for the 408
// long-poll signal.
func ClassifyStatus(status int) Decision {
	if status == http.StatusTooManyRequests || status >= 500 {
		return Retry
	}
	return Stop
}

// ClassifyError classifies a transport-level failure.
//
// Transient: DNS resolution failures, refused or reset connections,
// timeouts, and any unrecognized transport error (the "failed to
// fetch" catch-all, since a flaky network looks like almost anything).
//
// Permanent: cancellation (a cancelled operation must never be
// retried) and TLS or certificate verification failures, which reflect
// server or trust-store configuration that a retry cannot change.
func ClassifyError(err error) Decision {
	if err == nil {
		return Stop
	}

	if errors.Is(err, context.Canceled) {
		return Stop
	}

	var certVerify *tls.CertificateVerificationError
	var recordHeader tls.RecordHeaderError
	var unknownAuthority x509.UnknownAuthorityError
	var hostname x509.HostnameError
	var certInvalid x509.CertificateInvalidError
	if errors.As(err, &certVerify) ||
		errors.As(err, &recordHeader) ||
		errors.As(err, &unknownAuthority) ||
		errors.As(err, &hostname) ||
		errors.As(err, &certInvalid) {
		return Stop
	}

	var dnsError *net.DNSError
	if errors.As(err, &dnsError) {
		return Retry
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Retry
	}
	var netError net.Error
	if errors.As(err, &netError) && netError.Timeout() {
		return Retry
	}

	// Connection refused/reset, EOF mid-response, and anything else
	// the transport can produce: transient by default.
	return Retry
}
