// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/tapproof/tapproof-go/api"
	"github.com/tapproof/tapproof-go/lib/challenge"
	"github.com/tapproof/tapproof-go/lib/clock"
)

// Service is the transport surface the verifier drives. *api.Client
// implements it; tests substitute fakes.
type Service interface {
	CreateChallenge(ctx context.Context, request api.CreateRequest) (string, error)
	WaitForReceipt(ctx context.Context, token string) (*api.Receipt, error)
}

// State is the verifier's observable position in the flow.
type State int

const (
	StateIdle State = iota
	StateInitializing
	StatePresenting
	StatePolling
	StateCompleted
	StateCancelled
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInitializing:
		return "initializing"
	case StatePresenting:
		return "presenting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Config holds configuration for creating a Verifier.
//
// Exactly one of Token and Domain must be set. With Token the verifier
// presents a credential minted elsewhere; with Domain it creates a
// fresh challenge through the service first.
type Config struct {
	// Service performs the API calls. Required.
	Service Service

	// Presenter renders the flow. Required.
	Presenter Presenter

	// Domain requests a fresh challenge for this domain.
	Domain string

	// Token supplies a pre-minted challenge credential.
	Token string

	// Clock provides time operations. Defaults to clock.Real().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

// Result is the outcome of a completed verification.
type Result struct {
	// Token is the challenge credential the receipt belongs to.
	Token string

	// Receipt is the opaque proof of completion the embedding
	// application forwards to its backend.
	Receipt string
}

// Verifier orchestrates verification flows. Safe for concurrent use;
// concurrent Start calls coalesce onto a single flow.
type Verifier struct {
	service   Service
	presenter Presenter
	manager   *challenge.Manager
	clock     clock.Clock
	logger    *slog.Logger
	domain    string
	token     string

	group singleflight.Group

	mu        sync.Mutex
	state     State
	cancelRun context.CancelCauseFunc
}

// New creates a Verifier. Returns a CodeConfigInvalid error when the
// configuration is unusable.
func New(config Config) (*Verifier, error) {
	if config.Service == nil {
		return nil, configError("Service is required")
	}
	if config.Presenter == nil {
		return nil, configError("Presenter is required")
	}
	if config.Token == "" && config.Domain == "" {
		return nil, configError("either Token or Domain must be set")
	}
	if config.Token != "" && config.Domain != "" {
		return nil, configError("Token and Domain are mutually exclusive")
	}
	if config.Token != "" {
		if _, err := challenge.Decode(config.Token); err != nil {
			return nil, challengeInvalidError(err)
		}
	}

	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Verifier{
		service:   config.Service,
		presenter: config.Presenter,
		manager:   challenge.NewManager(clk),
		clock:     clk,
		logger:    logger,
		domain:    config.Domain,
		token:     config.Token,
		state:     StateIdle,
	}, nil
}

// Start runs the verification flow to completion and returns the
// receipt. Concurrent calls while a flow is in flight join that flow
// and receive its result; the flow runs under the first caller's
// context.
func (v *Verifier) Start(ctx context.Context) (*Result, error) {
	value, err, _ := v.group.Do("flow", func() (any, error) {
		return v.run(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.(*Result), nil
}

// Cancel aborts the in-flight flow, if any. The flow's Start callers
// receive a CodeCancelled error. Cancelling when no flow is running
// is a no-op.
func (v *Verifier) Cancel() {
	v.mu.Lock()
	cancel := v.cancelRun
	v.mu.Unlock()
	if cancel != nil {
		cancel(api.ErrCancelled)
	}
}

// Cleanup aborts any in-flight flow and removes the presenter from
// view immediately. Idempotent.
func (v *Verifier) Cleanup() {
	v.Cancel()
	v.presenter.Hide(true)
	v.manager.Clear()
}

// State returns the verifier's current state.
func (v *Verifier) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Challenge returns the credential of the current flow, if one is
// held.
func (v *Verifier) Challenge() (string, bool) {
	return v.manager.Current()
}

func (v *Verifier) setState(state State) {
	v.mu.Lock()
	previous := v.state
	v.state = state
	v.mu.Unlock()
	if previous != state {
		v.logger.Debug("verification state changed",
			"from", previous.String(),
			"to", state.String(),
		)
	}
}

func (v *Verifier) run(ctx context.Context) (*Result, error) {
	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	v.mu.Lock()
	v.cancelRun = cancel
	v.state = StateInitializing
	v.mu.Unlock()

	token, claims, err := v.obtainChallenge(runCtx)
	if err != nil {
		return nil, v.fail(err)
	}
	if err := v.manager.Set(token); err != nil {
		return nil, v.fail(challengeInvalidError(err))
	}

	// Refuse to present a credential that is already dead. This is
	// the only expiry the client detects itself; past this point the
	// server owns expiry via 410.
	if claims.ExpiredAt(v.clock.Now()) {
		return nil, v.fail(challengeExpiredError(nil, ExpiryDetectedLocally))
	}

	// The user closing the presenter cancels the flow, unless a
	// receipt has already been obtained: success is committed the
	// moment the receipt arrives, and a racing close must not undo it.
	var succeeded atomic.Bool
	go func() {
		select {
		case <-v.presenter.Closed():
			if !succeeded.Load() {
				cancel(api.ErrCancelled)
			}
		case <-runCtx.Done():
		}
	}()

	v.setState(StatePresenting)
	if err := v.presenter.Present(runCtx, token, claims); err != nil {
		if cancelledCause(runCtx) {
			return nil, v.fail(cancelledError())
		}
		return nil, v.fail(presentError(err))
	}

	v.setState(StatePolling)
	receipt, err := v.service.WaitForReceipt(runCtx, token)
	if err != nil {
		return nil, v.fail(flowError("receipt wait", err))
	}

	succeeded.Store(true)

	// The success confirmation outlives the flow context: teardown
	// must not suppress a result the user already earned.
	if err := v.presenter.ShowSuccess(context.WithoutCancel(runCtx)); err != nil {
		v.logger.Warn("success confirmation failed to display", "error", err)
	}
	v.presenter.Hide(false)
	v.manager.Clear()
	v.setState(StateCompleted)

	return &Result{Token: token, Receipt: receipt.Value}, nil
}

// obtainChallenge resolves the flow's credential: the configured
// token as-is, or a freshly created challenge in domain mode.
func (v *Verifier) obtainChallenge(ctx context.Context) (string, *challenge.Claims, error) {
	token := v.token
	if token == "" {
		created, err := v.service.CreateChallenge(ctx, api.CreateRequest{Domain: v.domain})
		if err != nil {
			return "", nil, flowError("challenge creation", err)
		}
		token = created
	}
	claims, err := challenge.Decode(token)
	if err != nil {
		return "", nil, challengeInvalidError(err)
	}
	return token, claims, nil
}

// fail tears the flow down and records the terminal state.
func (v *Verifier) fail(err error) error {
	v.presenter.Hide(true)
	v.manager.Clear()
	if isCancelled(err) {
		v.setState(StateCancelled)
	} else {
		v.setState(StateFailed)
	}
	return err
}

func cancelledCause(ctx context.Context) bool {
	if ctx.Err() == nil {
		return false
	}
	return errors.Is(context.Cause(ctx), api.ErrCancelled)
}
