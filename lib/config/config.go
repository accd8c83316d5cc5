// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tapproof/tapproof-go/lib/backoff"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for a Tapproof client.
type Config struct {
	// Environment identifies the deployment type (development, staging,
	// production).
	Environment Environment `yaml:"environment"`

	// API configures the connection to the verification service.
	API APIConfig `yaml:"api"`

	// Flow configures the verification flow itself.
	Flow FlowConfig `yaml:"flow"`

	// Retry configures the backoff behavior for failed attempts.
	Retry RetryConfig `yaml:"retry"`

	// Per-environment overrides, applied after the base config is
	// loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	API   *APIConfig   `yaml:"api,omitempty"`
	Flow  *FlowConfig  `yaml:"flow,omitempty"`
	Retry *RetryConfig `yaml:"retry,omitempty"`
}

// APIConfig configures the connection to the verification service.
type APIConfig struct {
	// BaseURL is the root URL of the verification service. Wait calls
	// go to a region-routed variant of this host.
	BaseURL string `yaml:"base_url"`

	// Key authenticates every call.
	Key string `yaml:"key"`

	// Secret additionally authenticates challenge creation. Optional
	// for clients that only wait on externally supplied tokens.
	Secret string `yaml:"secret"`

	// CreateTimeout bounds the whole challenge-create retry loop.
	// Duration string, e.g. "30s".
	CreateTimeout string `yaml:"create_timeout"`

	// WaitTimeout bounds the whole receipt-wait retry loop.
	WaitTimeout string `yaml:"wait_timeout"`

	// AttemptTimeout bounds a single network attempt.
	AttemptTimeout string `yaml:"attempt_timeout"`
}

// FlowConfig configures the verification flow.
type FlowConfig struct {
	// Domain is the embedding application's domain, sent when
	// creating a challenge.
	Domain string `yaml:"domain"`
}

// RetryConfig configures backoff for failed attempts.
type RetryConfig struct {
	// InitialDelay is the base delay before the first retry.
	// Duration string, e.g. "500ms".
	InitialDelay string `yaml:"initial_delay"`

	// Multiplier scales the delay for each subsequent retry.
	Multiplier float64 `yaml:"multiplier"`

	// Jitter is the uniform perturbation as a fraction of the base
	// delay, in [0, 1].
	Jitter float64 `yaml:"jitter"`

	// MaxAttempts bounds the attempt count independently of the time
	// budget.
	MaxAttempts int `yaml:"max_attempts"`
}

// Default returns the default configuration. These defaults are used
// as a base before loading the config file. They exist primarily to
// ensure all fields have sensible zero-values, not as a fallback: the
// config file is required.
func Default() *Config {
	return &Config{
		Environment: Development,
		API: APIConfig{
			BaseURL:        "https://api.tapproof.io",
			CreateTimeout:  "30s",
			WaitTimeout:    "5m",
			AttemptTimeout: "40s",
		},
		Retry: RetryConfig{
			InitialDelay: "500ms",
			Multiplier:   2.0,
			Jitter:       0.2,
			MaxAttempts:  8,
		},
	}
}

// Load loads configuration from the TAPPROOF_CONFIG environment
// variable.
//
// This is the only way to load configuration without an explicit
// path. There are no fallbacks or defaults: if TAPPROOF_CONFIG is not
// set, this fails. This ensures deterministic, auditable configuration
// with no hidden overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("TAPPROOF_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("TAPPROOF_CONFIG environment variable not set; " +
			"set it to the path of your tapproof.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	return cfg, nil
}

// applyEnvironmentOverrides applies the environment-specific override
// section matching Config.Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.API != nil {
		mergeAPI(&c.API, overrides.API)
	}
	if overrides.Flow != nil && overrides.Flow.Domain != "" {
		c.Flow.Domain = overrides.Flow.Domain
	}
	if overrides.Retry != nil {
		mergeRetry(&c.Retry, overrides.Retry)
	}
}

func mergeAPI(base *APIConfig, overrides *APIConfig) {
	if overrides.BaseURL != "" {
		base.BaseURL = overrides.BaseURL
	}
	if overrides.Key != "" {
		base.Key = overrides.Key
	}
	if overrides.Secret != "" {
		base.Secret = overrides.Secret
	}
	if overrides.CreateTimeout != "" {
		base.CreateTimeout = overrides.CreateTimeout
	}
	if overrides.WaitTimeout != "" {
		base.WaitTimeout = overrides.WaitTimeout
	}
	if overrides.AttemptTimeout != "" {
		base.AttemptTimeout = overrides.AttemptTimeout
	}
}

func mergeRetry(base *RetryConfig, overrides *RetryConfig) {
	if overrides.InitialDelay != "" {
		base.InitialDelay = overrides.InitialDelay
	}
	if overrides.Multiplier > 0 {
		base.Multiplier = overrides.Multiplier
	}
	if overrides.Jitter > 0 {
		base.Jitter = overrides.Jitter
	}
	if overrides.MaxAttempts > 0 {
		base.MaxAttempts = overrides.MaxAttempts
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.API.BaseURL == "" {
		errs = append(errs, fmt.Errorf("api.base_url is required"))
	} else if parsed, err := url.Parse(c.API.BaseURL); err != nil {
		errs = append(errs, fmt.Errorf("api.base_url: %w", err))
	} else if parsed.Scheme != "http" && parsed.Scheme != "https" {
		errs = append(errs, fmt.Errorf("api.base_url must be http or https, got %q", c.API.BaseURL))
	}

	if c.API.Key == "" {
		errs = append(errs, fmt.Errorf("api.key is required"))
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"api.create_timeout", c.API.CreateTimeout},
		{"api.wait_timeout", c.API.WaitTimeout},
		{"api.attempt_timeout", c.API.AttemptTimeout},
		{"retry.initial_delay", c.Retry.InitialDelay},
	} {
		if field.value == "" {
			continue
		}
		if _, err := time.ParseDuration(field.value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", field.name, err))
		}
	}

	if c.Retry.Jitter < 0 || c.Retry.Jitter > 1 {
		errs = append(errs, fmt.Errorf("retry.jitter must be in [0, 1], got %v", c.Retry.Jitter))
	}
	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, fmt.Errorf("retry.max_attempts must not be negative, got %d", c.Retry.MaxAttempts))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Duration returns the parsed duration for a config field, or zero
// when the field is empty or unparseable. Validate reports the
// unparseable case; callers after validation can treat zero as
// "use the default".
func Duration(value string) time.Duration {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return parsed
}

// BackoffPolicy returns the retry section as a backoff policy.
// Zero-valued fields fall through to the backoff package defaults.
func (c *Config) BackoffPolicy() backoff.Policy {
	return backoff.Policy{
		InitialDelay: Duration(c.Retry.InitialDelay),
		Multiplier:   c.Retry.Multiplier,
		Jitter:       c.Retry.Jitter,
		MaxAttempts:  c.Retry.MaxAttempts,
	}
}
