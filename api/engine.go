// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tapproof/tapproof-go/lib/backoff"
	"github.com/tapproof/tapproof-go/lib/httpx"
)

// call describes one logical operation for the retry engine. Both API
// operations share the engine; they differ only in endpoint, method,
// body, budget, and whether the long-poll protocol applies.
type call struct {
	name     string // for logs
	method   string
	url      string
	header   http.Header
	body     []byte // pre-encoded JSON, nil for GET
	budget   time.Duration
	longPoll bool
}

// execute runs the retry loop for one logical call and returns the
// body of the first 2xx response.
//
// Attempts are strictly sequential. Before each attempt the engine
// checks cancellation and the remaining budget; each attempt runs
// under min(remaining budget, attempt ceiling) and is aborted outright
// when that window closes. Backoff delays that cannot fit into the
// remaining budget fail the operation immediately; sleeping through
// the budget would only delay the inevitable timeout.
func (c *Client) execute(ctx context.Context, call call) ([]byte, error) {
	startedAt := c.clock.Now()
	attempt := 0
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, c.abortError(ctx)
		}

		remaining := call.budget - c.clock.Now().Sub(startedAt)
		if remaining <= 0 {
			return nil, c.budgetExhausted(call, attempt, lastErr)
		}

		status, body, err := c.attempt(ctx, call, attempt, min(remaining, c.attemptTimeout))
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, c.abortError(ctx)
			}
			if backoff.ClassifyError(err) == backoff.Stop {
				return nil, &NetworkError{Temporary: false, Err: err}
			}
			lastErr = &NetworkError{Temporary: true, Err: err}
			// Transport failures can poison Go's connection pool;
			// make the next attempt dial fresh.
			c.httpClient.CloseIdleConnections()

		case status >= 200 && status < 300:
			return body, nil

		case call.longPoll && status == http.StatusRequestTimeout:
			// The server-side hold elapsed without the user acting.
			// That is the long-poll heartbeat, not a failure: the
			// round-trip itself provided the pacing, so go again
			// immediately and forget accumulated attempts.
			c.logger.Debug("long-poll window elapsed, re-polling",
				"call", call.name,
				"elapsed", c.clock.Now().Sub(startedAt),
			)
			attempt = 0
			lastErr = nil
			continue

		case call.longPoll && status == http.StatusGone:
			return nil, fmt.Errorf("%w: server reported the challenge gone", ErrChallengeExpired)

		default:
			apiErr := &APIError{StatusCode: status, Message: errorMessage(body)}
			if backoff.ClassifyStatus(status) == backoff.Stop {
				return nil, apiErr
			}
			lastErr = apiErr
		}

		attempt++
		if attempt >= c.policy.MaxAttempts {
			c.logger.Warn("retry attempts exhausted",
				"call", call.name,
				"attempts", attempt,
				"error", lastErr,
			)
			return nil, lastErr
		}

		delay := c.policy.Delay(attempt - 1)
		remaining = call.budget - c.clock.Now().Sub(startedAt)
		if delay >= remaining {
			return nil, c.budgetExhausted(call, attempt, lastErr)
		}

		c.logger.Debug("retrying after backoff",
			"call", call.name,
			"attempt", attempt,
			"delay", delay,
			"remaining_budget", remaining,
			"error", lastErr,
		)
		select {
		case <-c.clock.After(delay):
		case <-ctx.Done():
			return nil, c.abortError(ctx)
		}
	}
}

// attempt performs one HTTP round-trip under the given timeout. The
// timeout is enforced by aborting the request context via the injected
// clock, which keeps per-attempt behavior controllable from tests.
// The attempt context descends from ctx, so an external cancellation
// aborts whichever attempt is in flight.
func (c *Client) attempt(ctx context.Context, call call, index int, timeout time.Duration) (int, []byte, error) {
	attemptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var timedOut atomic.Bool
	timer := c.clock.AfterFunc(timeout, func() {
		timedOut.Store(true)
		cancel()
	})
	defer timer.Stop()

	var bodyReader io.Reader
	if call.body != nil {
		bodyReader = bytes.NewReader(call.body)
	}
	request, err := http.NewRequestWithContext(attemptCtx, call.method, call.url, bodyReader)
	if err != nil {
		return 0, nil, fmt.Errorf("api: creating request: %w", err)
	}
	for key, values := range call.header {
		request.Header[key] = values
	}
	if call.body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	requestID := uuid.NewString()
	request.Header.Set(headerRequestID, requestID)

	c.logger.Debug("sending attempt",
		"call", call.name,
		"attempt", index,
		"request_id", requestID,
		"timeout", timeout,
	)

	response, err := c.httpClient.Do(request)
	if err != nil {
		if timedOut.Load() {
			// The per-attempt ceiling fired. Report it as a timeout
			// so classification treats it as transient.
			return 0, nil, fmt.Errorf("api: attempt %d timed out after %v: %w", index, timeout, context.DeadlineExceeded)
		}
		return 0, nil, err
	}
	defer response.Body.Close()

	body, err := httpx.ReadBody(response.Body)
	if err != nil {
		if timedOut.Load() {
			return 0, nil, fmt.Errorf("api: attempt %d timed out reading response: %w", index, context.DeadlineExceeded)
		}
		return 0, nil, fmt.Errorf("api: reading response: %w", err)
	}
	return response.StatusCode, body, nil
}

// abortError normalizes an externally aborted operation. User
// cancellation (the orchestrator's cancel cause) stays cancellation;
// every other abort (deadline, teardown) is reported as a timeout.
func (c *Client) abortError(ctx context.Context) error {
	cause := context.Cause(ctx)
	if errors.Is(cause, ErrCancelled) {
		return ErrCancelled
	}
	return fmt.Errorf("%w: %v", ErrTimedOut, cause)
}

// budgetExhausted builds the terminal timeout error, carrying the last
// attempt failure when there is one.
func (c *Client) budgetExhausted(call call, attempts int, lastErr error) error {
	if lastErr != nil {
		return fmt.Errorf("%w: %s budget %v exhausted after %d attempts, last error: %v",
			ErrTimedOut, call.name, call.budget, attempts, lastErr)
	}
	return fmt.Errorf("%w: %s budget %v exhausted after %d attempts",
		ErrTimedOut, call.name, call.budget, attempts)
}

// errorMessage extracts a human-readable message from an error
// response body. The service wraps errors as {"error": "..."}; when
// the body is something else, it is passed through raw.
func errorMessage(body []byte) string {
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(body)
}
