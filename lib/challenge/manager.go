// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"math"
	"sync"
	"time"

	"github.com/tapproof/tapproof-go/lib/clock"
)

// NoExpiry is returned by TimeRemaining when no credential is held.
const NoExpiry = time.Duration(math.MaxInt64)

// Manager holds at most one live challenge token in memory. Expiry is
// evaluated against the injected clock on every read; there is no
// background timer and nothing is persisted.
//
// The orchestrator is the only writer; the API client reads the token
// to route its calls. Manager is nonetheless safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	clock  clock.Clock
	token  string
	claims *Claims
}

// NewManager returns an empty Manager. A nil clock defaults to the
// real one.
func NewManager(clk clock.Clock) *Manager {
	if clk == nil {
		clk = clock.Real()
	}
	return &Manager{clock: clk}
}

// Set decodes and stores a token, replacing any previous one. A token
// that fails to decode is rejected before anything is stored, so the
// Manager never holds a credential it could not understand.
func (m *Manager) Set(token string) error {
	claims, err := Decode(token)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.claims = claims
	return nil
}

// Current returns the held token, or ok=false when no token is held or
// the held token has expired.
func (m *Manager) Current() (token string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.expiredLocked() {
		return "", false
	}
	return m.token, true
}

// Claims returns the claims of the live token, or ok=false when no
// live token is held. The same expiry rule as Current applies.
func (m *Manager) Claims() (*Claims, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" || m.expiredLocked() {
		return nil, false
	}
	return m.claims, true
}

// TimeRemaining returns the time until the held token expires:
// NoExpiry when no token is held, 0 (never negative) once expired.
func (m *Manager) TimeRemaining() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token == "" {
		return NoExpiry
	}
	if m.expiredLocked() {
		return 0
	}
	return m.claims.Expiry().Sub(m.clock.Now())
}

// Clear drops the held token. Safe to call any number of times,
// including when empty.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.claims = nil
}

// expiredLocked treats a slot with a token but no claims as already
// expired. That state is unreachable through Set; the check keeps a
// corrupted slot from ever being served.
func (m *Manager) expiredLocked() bool {
	if m.claims == nil {
		return true
	}
	return m.claims.ExpiredAt(m.clock.Now())
}
