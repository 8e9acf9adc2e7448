package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/byte4ever/hfjobs/auth"
	"github.com/byte4ever/hfjobs/config"
	"github.com/byte4ever/hfjobs/display"
	"github.com/byte4ever/hfjobs/follow"
	"github.com/byte4ever/hfjobs/jobs"
)

// app carries the process environment and the persistent flags
// shared by all subcommands.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	getenv  func(string) string
	homeDir string
	version string

	// tuneFollow adjusts the follower settings; tests use it
	// to shorten pauses.
	tuneFollow func(*follow.Config)

	configPath string
	endpoint   string
	token      string
	verbose    bool
}

// session is an authenticated connection to the Hub.
type session struct {
	cfg      config.Config
	identity auth.Identity
	client   *jobs.Client
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "hfjobs",
		Short:         "Run and follow jobs on the Hugging Face Hub",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       a.version,
		PersistentPreRun: func(*cobra.Command, []string) {
			a.setupLogging()
		},
	}

	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(
		&a.configPath, "config", "",
		"config file (default $HFJOBS_CONFIG or ~/.config/hfjobs/config.yaml)",
	)
	pf.StringVar(
		&a.endpoint, "endpoint", "",
		"Hub endpoint (default from config or $HF_ENDPOINT)",
	)
	pf.StringVar(
		&a.token, "token", "",
		"User Access Token (default $HF_TOKEN or the stored token)",
	)
	pf.BoolVarP(
		&a.verbose, "verbose", "v", false,
		"enable debug logging",
	)

	root.AddCommand(newRunCmd(a), newLogsCmd(a))

	return root
}

func (a *app) setupLogging() {
	level := slog.LevelInfo
	if a.verbose {
		level = slog.LevelDebug
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(
		a.stderr, &slog.HandlerOptions{Level: level},
	)))
}

// connect loads the config, resolves the credentials and returns
// a jobs client acting for the resolved user.
func (a *app) connect(ctx context.Context) (*session, error) {
	const errCtx = "connecting to the hub"

	cfg, err := config.Load(config.LoadOptions{
		Path:    a.configPath,
		Getenv:  a.getenv,
		HomeDir: a.homeDir,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if a.endpoint != "" {
		cfg.Endpoint = a.endpoint
	}

	resolver, err := auth.NewResolver(auth.Config{
		Endpoint: cfg.Endpoint,
		Version:  a.version,
		Getenv:   a.getenv,
		HomeDir:  a.homeDir,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	identity, err := resolver.Resolve(ctx, a.token)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	client, err := jobs.NewClient(jobs.Config{
		Endpoint: cfg.Endpoint,
		Headers:  identity.Headers,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"connected",
		"endpoint", cfg.Endpoint,
		"user", identity.Username,
	)

	return &session{
		cfg:      cfg,
		identity: identity,
		client:   client,
	}, nil
}

// followLogs prints the logs of the job id owned by the session
// user until they are complete.
func (a *app) followLogs(
	ctx context.Context,
	s *session,
	id string,
	timestamps bool,
) error {
	const errCtx = "following logs"

	printer, err := display.NewPrinter(
		a.stdout,
		display.FormatFor(timestamps, s.cfg.LogFormat),
	)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	fcfg := follow.Config{
		API:         s.client,
		Out:         printer,
		MaxAttempts: s.cfg.MaxAttempts,
	}

	if a.tuneFollow != nil {
		a.tuneFollow(&fcfg)
	}

	f, err := follow.New(fcfg)
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	state, err := f.Follow(ctx, jobs.Ref{
		Owner: s.identity.Username,
		ID:    id,
	})
	if err != nil {
		return fmt.Errorf("%s: %w", errCtx, err)
	}

	slog.Debug(
		"logs complete",
		"job", id,
		"logging_finished", state.LoggingFinished,
		"job_finished", state.JobFinished,
	)

	return nil
}
