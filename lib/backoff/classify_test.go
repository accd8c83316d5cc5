// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"syscall"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Decision
	}{
		{429, Retry},
		{500, Retry},
		{502, Retry},
		{503, Retry},
		{599, Retry},
		{400, Stop},
		{401, Stop},
		{403, Stop},
		{404, Stop},
		{408, Stop}, // the long-poll signal is intercepted before classification
		{410, Stop}, // likewise challenge expiry
		{422, Stop},
	}
	for _, test := range tests {
		if got := ClassifyStatus(test.status); got != test.want {
			t.Errorf("ClassifyStatus(%d) = %v, want %v", test.status, got, test.want)
		}
	}
}

// timeoutError implements net.Error with Timeout() == true, the shape
// the HTTP transport produces for I/O deadlines.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Decision
	}{
		{
			name: "dns failure",
			err:  &url.Error{Op: "Get", URL: "https://x", Err: &net.DNSError{Err: "no such host", Name: "x"}},
			want: Retry,
		},
		{
			name: "connection refused",
			err:  &net.OpError{Op: "dial", Err: syscall.ECONNREFUSED},
			want: Retry,
		},
		{
			name: "connection reset",
			err:  &net.OpError{Op: "read", Err: syscall.ECONNRESET},
			want: Retry,
		},
		{
			name: "io timeout",
			err:  &url.Error{Op: "Get", URL: "https://x", Err: timeoutError{}},
			want: Retry,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("attempt: %w", context.DeadlineExceeded),
			want: Retry,
		},
		{
			name: "generic transport failure",
			err:  errors.New("unexpected EOF"),
			want: Retry,
		},
		{
			name: "unknown authority",
			err:  &url.Error{Op: "Get", URL: "https://x", Err: x509.UnknownAuthorityError{}},
			want: Stop,
		},
		{
			name: "hostname mismatch",
			err:  &url.Error{Op: "Get", URL: "https://x", Err: x509.HostnameError{Host: "x"}},
			want: Stop,
		},
		{
			name: "certificate expired",
			err: &url.Error{Op: "Get", URL: "https://x", Err: x509.CertificateInvalidError{
				Reason: x509.Expired,
			}},
			want: Stop,
		},
		{
			name: "user cancellation",
			err:  fmt.Errorf("request aborted: %w", context.Canceled),
			want: Stop,
		},
		{
			name: "nil",
			err:  nil,
			want: Stop,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := ClassifyError(test.err); got != test.want {
				t.Errorf("ClassifyError(%v) = %v, want %v", test.err, got, test.want)
			}
		})
	}
}

func TestCancellationBeatsTimeout(t *testing.T) {
	// An error chain carrying both cancellation and a timeout must
	// stop: user cancellation is never retried.
	err := &url.Error{Op: "Get", URL: "https://x", Err: fmt.Errorf("%w while waiting: %v", context.Canceled, timeoutError{})}
	if got := ClassifyError(err); got != Stop {
		t.Errorf("ClassifyError = %v, want Stop", got)
	}
}
