// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"math"
	"math/rand/v2"
	"time"
)

// Defaults applied by Policy.WithDefaults for zero-valued fields.
const (
	DefaultInitialDelay = 500 * time.Millisecond
	DefaultMultiplier   = 2.0
	DefaultJitter       = 0.2
	DefaultMaxAttempts  = 8
)

// Policy computes retry delays. The zero value is unusable; call
// WithDefaults or fill every field.
//
// Jitter exists because many clients observe the same outage at the
// same moment: without a random spread, their retries arrive as
// synchronized waves.
type Policy struct {
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration

	// Multiplier scales the base delay for each subsequent retry.
	Multiplier float64

	// Jitter is the uniform perturbation as a fraction of the base
	// delay, in [0, 1]. A delay for attempt n lands in
	// [base·(1−Jitter), base·(1+Jitter)].
	Jitter float64

	// MaxAttempts bounds the attempt count independently of the time
	// budget; whichever limit is reached first ends the operation.
	MaxAttempts int

	// Rand returns a uniform value in [0, 1). Nil means the shared
	// math/rand source; tests pin it to probe the delay bounds.
	Rand func() float64
}

// WithDefaults returns a copy of the policy with zero-valued fields
// replaced by the package defaults.
func (p Policy) WithDefaults() Policy {
	if p.InitialDelay <= 0 {
		p.InitialDelay = DefaultInitialDelay
	}
	if p.Multiplier <= 0 {
		p.Multiplier = DefaultMultiplier
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	if p.Jitter == 0 {
		p.Jitter = DefaultJitter
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.Rand == nil {
		p.Rand = rand.Float64
	}
	return p
}

// Delay returns the jittered delay before retrying after attempt
// (0-based): base·Multiplier^attempt perturbed by ±Jitter·base, never
// negative. Delay(0) is therefore InitialDelay give or take jitter,
// not zero.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	random := p.Rand
	if random == nil {
		random = rand.Float64
	}

	base := float64(p.InitialDelay) * math.Pow(p.Multiplier, float64(attempt))
	offset := (2*random() - 1) * p.Jitter * base
	delay := base + offset
	if delay < 0 {
		return 0
	}
	return time.Duration(delay)
}

// ShouldContinue reports whether another attempt is allowed: false once
// the attempt count reaches MaxAttempts or the elapsed time since
// startedAt reaches budget, whichever comes first.
func (p Policy) ShouldContinue(attempt int, startedAt time.Time, budget time.Duration, now time.Time) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return now.Sub(startedAt) < budget
}
