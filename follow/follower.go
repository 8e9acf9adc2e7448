package follow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"k8s.io/apimachinery/pkg/util/wait"

	"github.com/byte4ever/hfjobs/jobs"
)

const (
	// DefaultInitialTimeout is the timeout of the first
	// stream attempt.
	DefaultInitialTimeout = 10 * time.Second
	// DefaultMaxTimeout caps the stream timeout growth.
	DefaultMaxTimeout = 60 * time.Second
	// DefaultPollInterval is the fixed pause between two
	// stream attempts.
	DefaultPollInterval = time.Second

	timeoutFactor = 2
)

// ErrAttemptsExhausted is returned when Config.MaxAttempts
// stream attempts ran without the logs or the job finishing.
var ErrAttemptsExhausted = errors.New(
	"log stream attempts exhausted",
)

// JobAPI is the part of the jobs API the follower needs.
// *jobs.Client implements it.
type JobAPI interface {
	GetJob(ctx context.Context, ref jobs.Ref) (*jobs.Job, error)
	StreamLogs(
		ctx context.Context,
		ref jobs.Ref,
		timeout time.Duration,
		onLine jobs.LineFunc,
	) jobs.StreamOutcome
}

// LineConsumer receives the log events worth showing, in
// arrival order.
type LineConsumer interface {
	Consume(event jobs.LogEvent) error
}

// LineConsumerFunc adapts a plain function to the
// LineConsumer interface.
type LineConsumerFunc func(event jobs.LogEvent) error

// Consume calls f(event).
func (f LineConsumerFunc) Consume(event jobs.LogEvent) error {
	return f(event)
}

// Config holds the settings of a Follower.
type Config struct {
	// API opens log streams and reads job status.
	API JobAPI
	// Out receives every non-marker log event.
	Out LineConsumer
	// InitialTimeout is the timeout of the first stream
	// attempt. Zero means DefaultInitialTimeout.
	InitialTimeout time.Duration
	// MaxTimeout caps the timeout after repeated timeouts.
	// Zero means DefaultMaxTimeout.
	MaxTimeout time.Duration
	// PollInterval is the fixed pause between attempts.
	// Zero means DefaultPollInterval.
	PollInterval time.Duration
	// MaxAttempts bounds the number of stream attempts.
	// Zero means no bound: a job whose stream only ever
	// carries the start marker is then followed until its
	// status turns terminal.
	MaxAttempts int
	// After replaces time.After for the pause between
	// attempts. Nil means time.After.
	After func(d time.Duration) <-chan time.Time
}

// State is what a follow operation has learned so far. Both
// flags only ever go from false to true.
type State struct {
	// LoggingFinished is set once a real log line was
	// seen in any stream attempt.
	LoggingFinished bool
	// JobFinished is set once a status poll reported a
	// terminal stage.
	JobFinished bool
}

// Done reports whether the follow loop may stop.
func (s State) Done() bool {
	return s.LoggingFinished || s.JobFinished
}

// Follower streams the logs of a job to completion over an
// unreliable stream.
type Follower struct {
	api            JobAPI
	out            LineConsumer
	initialTimeout time.Duration
	maxTimeout     time.Duration
	pollInterval   time.Duration
	maxAttempts    int
	after          func(time.Duration) <-chan time.Time
}

// New validates cfg and returns a Follower.
func New(cfg Config) (*Follower, error) {
	const errCtx = "creating follower"

	if cfg.API == nil {
		return nil, fmt.Errorf("%s: api must be set", errCtx)
	}

	if cfg.Out == nil {
		return nil, fmt.Errorf(
			"%s: output must be set", errCtx,
		)
	}

	if cfg.InitialTimeout < 0 ||
		cfg.MaxTimeout < 0 ||
		cfg.PollInterval < 0 ||
		cfg.MaxAttempts < 0 {
		return nil, fmt.Errorf(
			"%s: durations and attempts must not be negative",
			errCtx,
		)
	}

	f := &Follower{
		api:            cfg.API,
		out:            cfg.Out,
		initialTimeout: valueOr(cfg.InitialTimeout, DefaultInitialTimeout),
		maxTimeout:     valueOr(cfg.MaxTimeout, DefaultMaxTimeout),
		pollInterval:   valueOr(cfg.PollInterval, DefaultPollInterval),
		maxAttempts:    cfg.MaxAttempts,
		after:          cfg.After,
	}

	if f.initialTimeout > f.maxTimeout {
		return nil, fmt.Errorf(
			"%s: initial timeout %s exceeds max timeout %s",
			errCtx, f.initialTimeout, f.maxTimeout,
		)
	}

	if f.after == nil {
		f.after = time.After
	}

	return f, nil
}

func valueOr(v, def time.Duration) time.Duration {
	if v == 0 {
		return def
	}

	return v
}

// newBackoff returns the stream timeout schedule. Its Duration
// is the timeout of the next attempt; Step advances it.
func (f *Follower) newBackoff() wait.Backoff {
	return wait.Backoff{
		Duration: f.initialTimeout,
		Factor:   timeoutFactor,
		Cap:      f.maxTimeout,
		Steps:    math.MaxInt32,
	}
}

// Follow streams the logs of ref until a real log line has
// been delivered or the job is seen finished. It returns the
// final state. Any fatal error (non-timeout connection error,
// API error, malformed event, output failure, cancelled ctx)
// ends the loop at once.
func (f *Follower) Follow(
	ctx context.Context,
	ref jobs.Ref,
) (State, error) {
	const errCtx = "following job logs"

	logger := slog.With(
		"job", ref.String(),
		"follow_id", uuid.NewString(),
	)

	var state State

	backoff := f.newBackoff()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return state, fmt.Errorf(
				"%s: %w", errCtx, context.Cause(ctx),
			)
		}

		if f.maxAttempts > 0 && attempt > f.maxAttempts {
			return state, fmt.Errorf(
				"%s: %w after %d attempts",
				errCtx, ErrAttemptsExhausted, f.maxAttempts,
			)
		}

		timeout := backoff.Duration
		sawLog := false

		out := f.api.StreamLogs(
			ctx, ref, timeout,
			func(line string) error {
				shown, err := f.handleLine(line)
				if err != nil {
					logger.Error(
						"cannot handle log line",
						"line", line,
						"error", err,
					)

					return err
				}

				sawLog = sawLog || shown

				return nil
			},
		)

		logger.Debug(
			"log stream ended",
			"attempt", attempt,
			"outcome", out.Kind.String(),
			"timeout", timeout,
			"saw_log", sawLog,
		)

		switch out.Kind {
		case jobs.OutcomeClosed:
		case jobs.OutcomeTruncated:
			logger.Debug(
				"log stream ended prematurely",
				"error", out.Err,
			)
		case jobs.OutcomeTimedOut:
			backoff.Step()
			logger.Debug(
				"log stream timed out, reconnecting",
				"error", out.Err,
				"next_timeout", backoff.Duration,
			)
		default:
			return state, fmt.Errorf(
				"%s: %w", errCtx, out.Err,
			)
		}

		state.LoggingFinished = state.LoggingFinished || sawLog
		if state.Done() {
			return state, nil
		}

		job, err := f.api.GetJob(ctx, ref)
		if err != nil {
			return state, fmt.Errorf(
				"%s: poll status: %w", errCtx, err,
			)
		}

		if job.Finished() {
			logger.Debug(
				"job finished",
				"stage", job.Status.Stage,
			)

			state.JobFinished = true
		}

		select {
		case <-ctx.Done():
			return state, fmt.Errorf(
				"%s: %w", errCtx, context.Cause(ctx),
			)
		case <-f.after(f.pollInterval):
		}
	}
}

// handleLine forwards a raw stream line to the output when it
// holds a real log event, and reports whether it did.
func (f *Follower) handleLine(line string) (bool, error) {
	event, ok, err := jobs.ParseEventLine(line)
	if err != nil {
		return false, err //nolint:wrapcheck // already descriptive
	}

	if !ok || event.IsMarker() {
		return false, nil
	}

	if err := f.out.Consume(event); err != nil {
		return false, fmt.Errorf("write log line: %w", err)
	}

	return true, nil
}
