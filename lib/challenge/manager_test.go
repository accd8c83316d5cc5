// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"errors"
	"testing"
	"time"

	"github.com/tapproof/tapproof-go/lib/clock"
)

func newTestManager(t *testing.T) (*Manager, *clock.FakeClock, string) {
	t.Helper()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	fake := clock.Fake(now)
	manager := NewManager(fake)
	token := Encode(&Claims{
		Region:      "us-east",
		ChallengeID: "chal-9",
		ExpiresAt:   now.Add(5 * time.Minute).Unix(),
	}, "sig")
	return manager, fake, token
}

func TestManagerSetAndCurrent(t *testing.T) {
	manager, _, token := newTestManager(t)

	if _, ok := manager.Current(); ok {
		t.Fatal("empty manager reported a current token")
	}
	if err := manager.Set(token); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok := manager.Current()
	if !ok || got != token {
		t.Fatalf("Current() = %q, %v; want stored token, true", got, ok)
	}
	claims, ok := manager.Claims()
	if !ok || claims.ChallengeID != "chal-9" {
		t.Fatalf("Claims() = %+v, %v", claims, ok)
	}
}

func TestManagerSetRejectsMalformed(t *testing.T) {
	manager, _, _ := newTestManager(t)
	if err := manager.Set("garbage"); !errors.Is(err, ErrMalformed) {
		t.Fatalf("Set error = %v, want ErrMalformed", err)
	}
	if _, ok := manager.Current(); ok {
		t.Fatal("malformed Set left a credential behind")
	}
}

func TestManagerExpiry(t *testing.T) {
	manager, fake, token := newTestManager(t)
	if err := manager.Set(token); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if got := manager.TimeRemaining(); got != 5*time.Minute {
		t.Errorf("TimeRemaining = %v, want 5m", got)
	}

	fake.Advance(5*time.Minute - time.Second)
	if _, ok := manager.Current(); !ok {
		t.Fatal("token expired one second early")
	}
	if got := manager.TimeRemaining(); got != time.Second {
		t.Errorf("TimeRemaining = %v, want 1s", got)
	}

	fake.Advance(2 * time.Second)
	if _, ok := manager.Current(); ok {
		t.Fatal("expired token still current")
	}
	if got := manager.TimeRemaining(); got != 0 {
		t.Errorf("TimeRemaining after expiry = %v, want 0 (never negative)", got)
	}
	if _, ok := manager.Claims(); ok {
		t.Fatal("expired token still serving claims")
	}
}

func TestManagerTimeRemainingEmpty(t *testing.T) {
	manager, _, _ := newTestManager(t)
	if got := manager.TimeRemaining(); got != NoExpiry {
		t.Errorf("TimeRemaining on empty manager = %v, want NoExpiry", got)
	}
}

func TestManagerClearIdempotent(t *testing.T) {
	manager, _, token := newTestManager(t)

	// Clear on an empty manager is a no-op, not a panic.
	manager.Clear()
	manager.Clear()

	if err := manager.Set(token); err != nil {
		t.Fatalf("Set: %v", err)
	}
	manager.Clear()
	manager.Clear()
	if _, ok := manager.Current(); ok {
		t.Fatal("token survived Clear")
	}
	if got := manager.TimeRemaining(); got != NoExpiry {
		t.Errorf("TimeRemaining after Clear = %v, want NoExpiry", got)
	}
}

func TestManagerCorruptedSlot(t *testing.T) {
	// A token without claims cannot be produced through Set. If it
	// ever happens anyway, the slot reads as already expired rather
	// than panicking.
	manager, _, _ := newTestManager(t)
	manager.mu.Lock()
	manager.token = "bypassed.token"
	manager.claims = nil
	manager.mu.Unlock()

	if _, ok := manager.Current(); ok {
		t.Fatal("corrupted slot served a token")
	}
	if got := manager.TimeRemaining(); got != 0 {
		t.Errorf("TimeRemaining on corrupted slot = %v, want 0", got)
	}
}
