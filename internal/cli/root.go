// Package cli defines the Cobra command of the htmlserve CLI.
// This file contains the root command, its flags, and the version and help output.
package cli

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/colinhebe/htmlserve/internal/config"
	hlog "github.com/colinhebe/htmlserve/internal/log"
	"github.com/colinhebe/htmlserve/internal/session"
)

var version = "dev" // set via ldflags at build time

// errMissingFile is returned when no file argument is given.
var errMissingFile = errors.New("missing HTML file\nUsage: htmlserve <file.html>")

type options struct {
	noOpen           bool
	verbose          bool
	heartbeatTimeout time.Duration
	checkInterval    time.Duration
	maxLifetime      time.Duration

	// sessionOpts are appended to the session options; tests use them to
	// replace the browser and the OS signal source.
	sessionOpts []session.Option
}

// NewRootCommand builds the htmlserve command.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&options{})
}

func newRootCommand(opts *options) *cobra.Command {
	defaults := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "htmlserve <file.html>",
		Short: "Preview a local HTML file in the browser",
		Long: `htmlserve serves a local HTML file and its directory on a loopback port,
opens it in the default browser, and stops by itself when the tab is closed.

Relative links, stylesheets, scripts and images next to the file are served
as they are. Press Ctrl+C to stop at any time.`,
		Example:       "  htmlserve index.html\n  htmlserve --no-open docs/report.htm",
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) == 0:
				return errMissingFile
			case len(args) > 1:
				return fmt.Errorf("expected one HTML file, got %d arguments\nUsage: htmlserve <file.html>", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0])
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	f := cmd.Flags()
	f.BoolVar(&opts.noOpen, "no-open", false, "Print the URL instead of opening a browser")
	f.BoolVar(&opts.verbose, "verbose", false, "Log every request and heartbeat")
	f.DurationVar(&opts.heartbeatTimeout, "heartbeat-timeout", defaults.Lifecycle.HeartbeatTimeout,
		"Stop after this long without a heartbeat from the page")
	f.DurationVar(&opts.checkInterval, "check-interval", defaults.Lifecycle.CheckInterval,
		"How often heartbeat silence is checked")
	f.DurationVar(&opts.maxLifetime, "max-lifetime", defaults.Lifecycle.ForceExitAfter,
		"Stop after this long regardless of the page")
	for _, name := range []string{"heartbeat-timeout", "check-interval", "max-lifetime"} {
		_ = f.MarkHidden(name)
	}
	return cmd
}

func run(cmd *cobra.Command, opts *options, path string) error {
	target, err := session.Resolve(path)
	if err != nil {
		return err
	}

	cfg := config.DefaultConfig()
	cfg.Server.OpenBrowser = !opts.noOpen
	cfg.Lifecycle.HeartbeatTimeout = opts.heartbeatTimeout
	cfg.Lifecycle.CheckInterval = opts.checkInterval
	cfg.Lifecycle.ForceExitAfter = opts.maxLifetime
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := hlog.New(cmd.ErrOrStderr(), opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	sessOpts := append([]session.Option{
		session.WithLogger(logger),
		session.WithStdout(cmd.OutOrStdout()),
	}, opts.sessionOpts...)

	s, err := session.New(cfg, target, sessOpts...)
	if err != nil {
		return err
	}
	_, err = s.Run(cmd.Context())
	return err
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
