// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/tapproof/tapproof-go/api"
	"github.com/tapproof/tapproof-go/lib/challenge"
)

// Text codes carried on every error the verifier returns. Embedders
// switch on these rather than on messages.
const (
	CodeConfigInvalid    = "VERIFY_CONFIG_INVALID"
	CodeChallengeInvalid = "VERIFY_CHALLENGE_INVALID"
	CodeChallengeExpired = "VERIFY_CHALLENGE_EXPIRED"
	CodeNetworkFailure   = "VERIFY_NETWORK_FAILURE"
	CodeAPIError         = "VERIFY_API_ERROR"
	CodeNoReceipt        = "VERIFY_NO_RECEIPT"
	CodeCancelled        = "VERIFY_CANCELLED"
	CodeTimeout          = "VERIFY_TIMEOUT"
)

// Expiry reasons recorded in the metadata of a CodeChallengeExpired
// error.
const (
	ExpiryDetectedLocally  = "detected_locally"
	ExpiryDetectedByServer = "detected_by_server"
)

func configError(message string) error {
	return goerrors.New("verify: "+message, goerrors.CategoryBadInput).
		WithTextCode(CodeConfigInvalid)
}

func challengeInvalidError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryAuth, "verify: challenge credential is not usable").
		WithTextCode(CodeChallengeInvalid)
}

func challengeExpiredError(source error, reason string) error {
	const message = "verify: challenge expired before completion"
	var err *goerrors.Error
	if source != nil {
		err = goerrors.Wrap(source, goerrors.CategoryAuth, message)
	} else {
		err = goerrors.New(message, goerrors.CategoryAuth)
	}
	return err.
		WithTextCode(CodeChallengeExpired).
		WithMetadata(map[string]any{"reason": reason})
}

func presentError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryInternal, "verify: presenting the challenge failed")
}

func cancelledError() error {
	return goerrors.New("verify: cancelled by the user", goerrors.CategoryOperation).
		WithTextCode(CodeCancelled)
}

func timeoutError(source error) error {
	return goerrors.Wrap(source, goerrors.CategoryExternal, "verify: verification did not complete in time").
		WithTextCode(CodeTimeout)
}

// isCancelled reports whether err carries the CodeCancelled text
// code.
func isCancelled(err error) bool {
	var rich *goerrors.Error
	return goerrors.As(err, &rich) && rich.TextCode == CodeCancelled
}

// flowError translates a transport-layer failure into the verifier's
// error vocabulary. The api package's sentinel errors carry the
// semantics; this maps each onto a category and text code.
func flowError(stage string, err error) error {
	switch {
	case errors.Is(err, api.ErrCancelled):
		return cancelledError()
	case errors.Is(err, api.ErrTimedOut):
		return timeoutError(err)
	case errors.Is(err, api.ErrChallengeExpired):
		return challengeExpiredError(err, ExpiryDetectedByServer)
	case errors.Is(err, challenge.ErrMalformed):
		return challengeInvalidError(err)
	case errors.Is(err, api.ErrNoReceipt), errors.Is(err, api.ErrInvalidResponse):
		return goerrors.Wrap(err, goerrors.CategoryOperation,
			fmt.Sprintf("verify: %s completed without a usable receipt", stage)).
			WithTextCode(CodeNoReceipt)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return goerrors.Wrap(err, goerrors.CategoryExternal,
			fmt.Sprintf("verify: %s rejected by the service", stage)).
			WithCode(apiErr.StatusCode).
			WithTextCode(CodeAPIError)
	}

	var netErr *api.NetworkError
	if errors.As(err, &netErr) {
		return goerrors.Wrap(err, goerrors.CategoryExternal,
			fmt.Sprintf("verify: %s failed to reach the service", stage)).
			WithTextCode(CodeNetworkFailure).
			WithMetadata(map[string]any{"temporary": netErr.Temporary})
	}

	return goerrors.Wrap(err, goerrors.CategoryExternal,
		fmt.Sprintf("verify: %s failed", stage)).
		WithTextCode(CodeNetworkFailure)
}
