// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"

	"github.com/tapproof/tapproof-go/lib/challenge"
)

// Presenter renders the verification flow to the user. The verifier
// drives it through a fixed sequence: Present once, then either
// ShowSuccess followed by Hide(false), or Hide(true) on any
// non-success outcome.
//
// Implementations must make Hide idempotent and safe to call from any
// goroutine, including concurrently with Present or ShowSuccess.
type Presenter interface {
	// Present displays the challenge to the user. It returns once the
	// challenge is visible; it does not block for the verification
	// itself.
	Present(ctx context.Context, token string, claims *challenge.Claims) error

	// ShowSuccess displays the success confirmation. The verifier
	// calls it with a context that survives flow cancellation: a
	// receipt already obtained is shown even while the flow is being
	// torn down.
	ShowSuccess(ctx context.Context) error

	// Hide removes the challenge from view. When immediate is true
	// the presenter skips any exit animation or linger.
	Hide(immediate bool)

	// Closed returns a channel that is closed when the user dismisses
	// the presenter. The verifier treats that as cancellation unless
	// a receipt has already been obtained.
	Closed() <-chan struct{}
}
