// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/tapproof/tapproof-go/lib/challenge"
)

// plainPresenter is the line-oriented presenter for non-TTY runs.
// Cancellation comes from signals rather than a close affordance, so
// its Closed channel never fires.
type plainPresenter struct {
	mu     sync.Mutex
	out    io.Writer
	closed chan struct{}
	hidden bool
}

func newPlainPresenter(out io.Writer) *plainPresenter {
	return &plainPresenter{
		out:    out,
		closed: make(chan struct{}),
	}
}

func (p *plainPresenter) Present(ctx context.Context, token string, claims *challenge.Claims) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "challenge %s", claims.ChallengeID)
	if claims.Domain != "" {
		fmt.Fprintf(p.out, " for %s", claims.Domain)
	}
	fmt.Fprintf(p.out, " (expires %s)\n", claims.Expiry().UTC().Format(time.RFC3339))
	fmt.Fprintln(p.out, "waiting for confirmation on your device...")
	return nil
}

func (p *plainPresenter) ShowSuccess(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "verified")
	return nil
}

func (p *plainPresenter) Hide(immediate bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.hidden {
		return
	}
	p.hidden = true
}

func (p *plainPresenter) Closed() <-chan struct{} {
	return p.closed
}
