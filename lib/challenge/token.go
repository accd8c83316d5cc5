// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package challenge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrMalformed is returned by Decode for any token that does not parse
// into usable claims: wrong part count, bad base64, bad JSON, or
// missing required claims. Callers match it with errors.Is.
var ErrMalformed = errors.New("challenge: malformed token")

// Claims are the fields the client understands inside a challenge
// token. The wire names must match the issuing service exactly.
type Claims struct {
	// Region is the routing shard. The wait call goes to a host with
	// this region prepended as a subdomain.
	Region string `json:"region"`

	// ChallengeID identifies this verification attempt.
	ChallengeID string `json:"challengeId"`

	// ExpiresAt is a Unix timestamp in seconds after which the token
	// is dead. Note the unit: the service speaks seconds, Go time
	// speaks nanoseconds. All conversions go through Expiry().
	ExpiresAt int64 `json:"expiresAt"`

	// IssuedAt is a Unix timestamp in seconds of token creation.
	// Optional.
	IssuedAt int64 `json:"issuedAt,omitempty"`

	// Domain is the embedding application's domain. Optional.
	Domain string `json:"domain,omitempty"`
}

// Expiry returns the expiry instant. This is the single place where
// the claims' seconds-since-epoch unit becomes a time.Time.
func (c *Claims) Expiry() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// ExpiredAt reports whether the token is expired at the given instant.
func (c *Claims) ExpiredAt(now time.Time) bool {
	return !now.Before(c.Expiry())
}

// Decode parses a challenge token into its claims. The token must have
// exactly two non-empty dot-separated parts; the first part must be
// base64url (padded or not) over a JSON claims object carrying region,
// challengeId, and a non-zero expiresAt. The signature part is not
// inspected.
//
// Every failure mode wraps ErrMalformed.
func Decode(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, fmt.Errorf("%w: expected two dot-separated parts, got %d", ErrMalformed, len(parts))
	}

	payload, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[0], "="))
	if err != nil {
		return nil, fmt.Errorf("%w: payload is not base64url: %v", ErrMalformed, err)
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("%w: payload is not a claims object: %v", ErrMalformed, err)
	}

	if claims.Region == "" {
		return nil, fmt.Errorf("%w: missing region claim", ErrMalformed)
	}
	if claims.ChallengeID == "" {
		return nil, fmt.Errorf("%w: missing challengeId claim", ErrMalformed)
	}
	if claims.ExpiresAt == 0 {
		return nil, fmt.Errorf("%w: missing expiresAt claim", ErrMalformed)
	}
	return &claims, nil
}

// Encode builds a token from claims and an opaque signature part. The
// client never mints real tokens; this is the inverse of Decode for
// tests and fake services.
func Encode(claims *Claims, signature string) string {
	payload, _ := json.Marshal(claims)
	return base64.RawURLEncoding.EncodeToString(payload) + "." + signature
}
