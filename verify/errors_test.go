// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"fmt"
	"io"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/tapproof/tapproof-go/api"
	"github.com/tapproof/tapproof-go/lib/challenge"
)

func TestFlowErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		source   error
		code     string
		category goerrors.Category
	}{
		{
			"user cancellation",
			api.ErrCancelled,
			CodeCancelled,
			goerrors.CategoryOperation,
		},
		{
			"budget exhausted",
			fmt.Errorf("%w: wait budget exhausted", api.ErrTimedOut),
			CodeTimeout,
			goerrors.CategoryExternal,
		},
		{
			"server expiry",
			fmt.Errorf("%w: gone", api.ErrChallengeExpired),
			CodeChallengeExpired,
			goerrors.CategoryAuth,
		},
		{
			"malformed credential",
			fmt.Errorf("%w: two parts expected", challenge.ErrMalformed),
			CodeChallengeInvalid,
			goerrors.CategoryAuth,
		},
		{
			"empty receipt",
			api.ErrNoReceipt,
			CodeNoReceipt,
			goerrors.CategoryOperation,
		},
		{
			"unparseable response",
			fmt.Errorf("%w: wait response", api.ErrInvalidResponse),
			CodeNoReceipt,
			goerrors.CategoryOperation,
		},
		{
			"service rejection",
			&api.APIError{StatusCode: 403, Message: "bad key"},
			CodeAPIError,
			goerrors.CategoryExternal,
		},
		{
			"transport failure",
			&api.NetworkError{Temporary: true, Err: io.ErrUnexpectedEOF},
			CodeNetworkFailure,
			goerrors.CategoryExternal,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			err := flowError("receipt wait", test.source)
			rich := assertTextCode(t, err, test.code)
			if rich.Category != test.category {
				t.Errorf("category = %v, want %v", rich.Category, test.category)
			}
		})
	}
}

func TestFlowErrorCarriesStatusCode(t *testing.T) {
	err := flowError("receipt wait", &api.APIError{StatusCode: 503, Message: "overloaded"})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("error = %v", err)
	}
	if rich.Code != 503 {
		t.Errorf("code = %d, want 503", rich.Code)
	}
}

func TestFlowErrorRecordsTransience(t *testing.T) {
	err := flowError("receipt wait", &api.NetworkError{Temporary: true, Err: io.ErrUnexpectedEOF})
	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		t.Fatalf("error = %v", err)
	}
	if rich.Metadata["temporary"] != true {
		t.Errorf("temporary = %v, want true", rich.Metadata["temporary"])
	}
}
