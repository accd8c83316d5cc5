// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tapproof/tapproof-go/lib/backoff"
	"github.com/tapproof/tapproof-go/lib/challenge"
	"github.com/tapproof/tapproof-go/lib/clock"
)

// API paths and headers. Field and header names are part of the wire
// contract with the verification service.
const (
	createPath   = "/api/v1/challenge/create"
	waitPathBase = "/api/v1/challenge/wait/"

	headerAPIKey    = "X-API-Key"
	headerAPISecret = "X-API-Secret"
	headerRequestID = "X-Request-Id"
)

// Default timeouts. The wait budget dominates: it covers the whole
// span the user might need to pick up a phone and scan. The attempt
// ceiling sits above the server's long-poll hold so a healthy hold is
// never cut short, while a stalled connection still gets aborted.
const (
	DefaultCreateTimeout  = 30 * time.Second
	DefaultWaitTimeout    = 5 * time.Minute
	DefaultAttemptTimeout = 40 * time.Second
)

// Config holds configuration for creating a Client.
type Config struct {
	// BaseURL is the root URL of the verification service, e.g.
	// "https://api.tapproof.io". Wait calls go to a region-routed
	// variant of this host derived from the challenge token.
	BaseURL string

	// APIKey authenticates every call. Required.
	APIKey string

	// APISecret additionally authenticates challenge creation. May be
	// empty for clients that only wait on externally supplied tokens.
	APISecret string

	// HTTPClient is used for all requests. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// Clock provides time operations. Defaults to clock.Real();
	// tests inject clock.Fake().
	Clock clock.Clock

	// Logger is used for structured logging. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Policy is the retry policy. Zero-valued fields take the
	// backoff package defaults.
	Policy backoff.Policy

	// CreateTimeout bounds the whole CreateChallenge retry loop.
	CreateTimeout time.Duration

	// WaitTimeout bounds the whole WaitForReceipt retry loop.
	WaitTimeout time.Duration

	// AttemptTimeout bounds a single network attempt. The effective
	// per-attempt limit is min(AttemptTimeout, remaining budget).
	AttemptTimeout time.Duration
}

// Client talks to the verification service. Safe for concurrent use,
// though the orchestrator guarantees attempts within one operation are
// strictly sequential.
type Client struct {
	baseURL        string
	apiKey         string
	apiSecret      string
	httpClient     *http.Client
	clock          clock.Clock
	logger         *slog.Logger
	policy         backoff.Policy
	createTimeout  time.Duration
	waitTimeout    time.Duration
	attemptTimeout time.Duration
}

// NewClient creates a verification service client. Returns an error
// for an unusable base URL or a missing API key.
func NewClient(config Config) (*Client, error) {
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("api: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("api: BaseURL %q must be http or https", config.BaseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("api: BaseURL %q has no host", config.BaseURL)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("api: APIKey is required")
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	createTimeout := config.CreateTimeout
	if createTimeout <= 0 {
		createTimeout = DefaultCreateTimeout
	}
	waitTimeout := config.WaitTimeout
	if waitTimeout <= 0 {
		waitTimeout = DefaultWaitTimeout
	}
	attemptTimeout := config.AttemptTimeout
	if attemptTimeout <= 0 {
		attemptTimeout = DefaultAttemptTimeout
	}

	return &Client{
		baseURL:        strings.TrimRight(config.BaseURL, "/"),
		apiKey:         config.APIKey,
		apiSecret:      config.APISecret,
		httpClient:     httpClient,
		clock:          clk,
		logger:         logger,
		policy:         config.Policy.WithDefaults(),
		createTimeout:  createTimeout,
		waitTimeout:    waitTimeout,
		attemptTimeout: attemptTimeout,
	}, nil
}

// CreateRequest is the body of the challenge create call.
type CreateRequest struct {
	// Domain is the embedding application's domain, echoed into the
	// minted token's claims.
	Domain string `json:"domain"`
}

// Receipt is the proof of a completed verification.
type Receipt struct {
	// Value is the opaque receipt string the embedding application
	// forwards to its backend.
	Value string `json:"receipt"`
}

// CreateChallenge mints a new challenge and returns its token. A
// single logical call, retried under the create budget.
func (c *Client) CreateChallenge(ctx context.Context, request CreateRequest) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("api: encoding create request: %w", err)
	}

	header := http.Header{}
	header.Set(headerAPIKey, c.apiKey)
	header.Set(headerAPISecret, c.apiSecret)

	responseBody, err := c.execute(ctx, call{
		name:   "create",
		method: http.MethodPost,
		url:    c.baseURL + createPath,
		header: header,
		body:   body,
		budget: c.createTimeout,
	})
	if err != nil {
		return "", err
	}

	var response struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return "", fmt.Errorf("%w: create response: %v", ErrInvalidResponse, err)
	}
	if response.Token == "" {
		return "", fmt.Errorf("%w: create response carried no token", ErrInvalidResponse)
	}
	return response.Token, nil
}

// WaitForReceipt long-polls the region-routed wait endpoint until the
// user completes verification out-of-band. The token's region claim
// selects the shard; its challengeId selects the wait resource.
func (c *Client) WaitForReceipt(ctx context.Context, token string) (*Receipt, error) {
	claims, err := challenge.Decode(token)
	if err != nil {
		return nil, err
	}
	shardBase, err := c.shardURL(claims.Region)
	if err != nil {
		return nil, err
	}

	header := http.Header{}
	header.Set(headerAPIKey, c.apiKey)

	responseBody, err := c.execute(ctx, call{
		name:     "wait",
		method:   http.MethodGet,
		url:      shardBase + waitPathBase + url.PathEscape(claims.ChallengeID),
		header:   header,
		budget:   c.waitTimeout,
		longPoll: true,
	})
	if err != nil {
		return nil, err
	}

	var receipt Receipt
	if err := json.Unmarshal(responseBody, &receipt); err != nil {
		return nil, fmt.Errorf("%w: wait response: %v", ErrInvalidResponse, err)
	}
	if receipt.Value == "" {
		return nil, ErrNoReceipt
	}
	return &receipt, nil
}

// CloseIdleConnections drops pooled connections. The retry engine
// calls this after transport failures so the next attempt opens a
// fresh socket instead of reusing a poisoned one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// shardURL returns the base URL with the region inserted as a
// subdomain ahead of the existing host. Port, path, and query survive:
// "https://api.example.com:8443/v" with region "eu" becomes
// "https://eu.api.example.com:8443/v".
func (c *Client) shardURL(region string) (string, error) {
	if region == "" || strings.ContainsAny(region, "./:@ ") {
		return "", fmt.Errorf("%w: region %q is not routable", challenge.ErrMalformed, region)
	}
	parsed, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("api: invalid BaseURL %q: %w", c.baseURL, err)
	}
	host := region + "." + parsed.Hostname()
	if port := parsed.Port(); port != "" {
		host += ":" + port
	}
	parsed.Host = host
	return strings.TrimRight(parsed.String(), "/"), nil
}
