// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

// tapproof-verify runs a verification flow from the terminal.
//
// The flow either creates a fresh challenge (--domain, or flow.domain
// in the config file) or presents a pre-minted credential (--token).
// While the service long-polls for the user's out-of-band
// confirmation, an interactive terminal UI shows the challenge and a
// progress spinner; on a non-TTY (CI, scripts) a plain line-oriented
// presenter is used instead. The receipt is printed to stdout on
// success so the output can be piped to the embedding application's
// backend.
//
// Exit codes: 0 on success, 1 on failure or cancellation, 2 on
// configuration errors.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/tapproof/tapproof-go/api"
	"github.com/tapproof/tapproof-go/lib/config"
	"github.com/tapproof/tapproof-go/lib/version"
	"github.com/tapproof/tapproof-go/verify"
)

// exitError signals a specific exit code without an extra error
// message; the command has already written its own output.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

func (e *exitError) ExitCode() int {
	return e.code
}

func main() {
	err := run()
	if err == nil {
		os.Exit(0)
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		os.Exit(coder.ExitCode())
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	var rich *goerrors.Error
	if goerrors.As(err, &rich) && rich.TextCode == verify.CodeConfigInvalid {
		os.Exit(2)
	}
	os.Exit(1)
}

func run() error {
	var configPath string
	var token string
	var domain string
	var baseURL string
	var apiKey string
	var apiSecret string
	var plain bool
	var verbose bool

	flagSet := pflag.NewFlagSet("tapproof-verify", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "path to tapproof.yaml (default: $TAPPROOF_CONFIG)")
	flagSet.StringVar(&token, "token", "", "pre-minted challenge credential to present")
	flagSet.StringVar(&domain, "domain", "", "create a fresh challenge for this domain")
	flagSet.StringVar(&baseURL, "base-url", "", "verification service URL (overrides config)")
	flagSet.StringVar(&apiKey, "key", "", "API key (overrides config)")
	flagSet.StringVar(&apiSecret, "secret", "", "API secret (overrides config)")
	flagSet.BoolVar(&plain, "plain", false, "line-oriented output even on a TTY")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flagSet.BoolP("help", "h", false, "show help")

	// Handle --version before flag parsing to match other Tapproof
	// binaries.
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("tapproof-verify %s\n", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if args := flagSet.Args(); len(args) > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", args[0])
		return &exitError{code: 2}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return &exitError{code: 2}
	}
	applyFlagOverrides(cfg, baseURL, apiKey, apiSecret, domain)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return &exitError{code: 2}
	}

	interactive := !plain && term.IsTerminal(int(os.Stderr.Fd()))
	logger := newLogger(verbose, interactive)

	client, err := api.NewClient(api.Config{
		BaseURL:        cfg.API.BaseURL,
		APIKey:         cfg.API.Key,
		APISecret:      cfg.API.Secret,
		HTTPClient:     &http.Client{},
		Logger:         logger,
		Policy:         cfg.BackoffPolicy(),
		CreateTimeout:  config.Duration(cfg.API.CreateTimeout),
		WaitTimeout:    config.Duration(cfg.API.WaitTimeout),
		AttemptTimeout: config.Duration(cfg.API.AttemptTimeout),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return &exitError{code: 2}
	}
	defer client.CloseIdleConnections()

	var presenter verify.Presenter
	if interactive {
		presenter = newTUIPresenter()
	} else {
		presenter = newPlainPresenter(os.Stderr)
	}

	verifier, err := verify.New(verify.Config{
		Service:   client,
		Presenter: presenter,
		Domain:    cfg.Flow.Domain,
		Token:     token,
		Logger:    logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		return &exitError{code: 2}
	}
	defer verifier.Cleanup()

	// SIGINT and SIGTERM cancel the flow rather than killing the
	// process outright, so the presenter is torn down and the exit
	// reports cancellation.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(signals)
	go func() {
		for range signals {
			verifier.Cancel()
		}
	}()

	result, err := verifier.Start(context.Background())
	if err != nil {
		logger.Debug("verification failed", "error", err, "state", verifier.State().String())
		return err
	}

	fmt.Println(result.Receipt)
	return nil
}

// loadConfig resolves the configuration source: an explicit --config
// path, then TAPPROOF_CONFIG, then built-in defaults for flag-only
// invocations.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	if os.Getenv("TAPPROOF_CONFIG") != "" {
		return config.Load()
	}
	return config.Default(), nil
}

func applyFlagOverrides(cfg *config.Config, baseURL, key, secret, domain string) {
	if baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if key != "" {
		cfg.API.Key = key
	}
	if secret != "" {
		cfg.API.Secret = secret
	}
	if domain != "" {
		cfg.Flow.Domain = domain
	}
}

// newLogger builds the command logger. Interactive runs keep the
// screen clear of log noise unless --verbose is set; non-interactive
// runs emit machine-parseable JSON.
func newLogger(verbose, interactive bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	} else if interactive {
		level = slog.LevelWarn
	}
	options := &slog.HandlerOptions{Level: level}
	if interactive {
		return slog.New(slog.NewTextHandler(os.Stderr, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, options))
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `Tapproof verification: run a verification flow from the terminal.

With --domain (or flow.domain in the config file), a fresh challenge
is created through the verification service. With --token, a
pre-minted credential is presented instead. The receipt is printed to
stdout once the user confirms out-of-band.

Configuration is read from --config, or from the file named by the
TAPPROOF_CONFIG environment variable. Flags override config values.

Usage: tapproof-verify [flags]

Flags:
%s`, flagSet.FlagUsages())
}
