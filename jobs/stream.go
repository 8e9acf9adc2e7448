package jobs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/http2"
	utilnet "k8s.io/apimachinery/pkg/util/net"
)

// OutcomeKind tags how one log stream attempt ended.
type OutcomeKind int

const (
	// OutcomeClosed means the server ended the stream
	// normally.
	OutcomeClosed OutcomeKind = iota
	// OutcomeTruncated means the stream broke off mid-read
	// (premature end of a chunked body, reset connection).
	OutcomeTruncated
	// OutcomeTimedOut means no response or no data arrived
	// within the attempt's timeout.
	OutcomeTimedOut
	// OutcomeFatal means the attempt failed in a way that
	// must not be retried.
	OutcomeFatal
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeClosed:
		return "closed"
	case OutcomeTruncated:
		return "truncated"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeFatal:
		return "fatal"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", int(k))
	}
}

// StreamOutcome is the result of one StreamLogs attempt. Err is
// nil for OutcomeClosed and holds the cause otherwise.
type StreamOutcome struct {
	Kind OutcomeKind
	Err  error
}

// LineFunc receives each non-empty raw line of the log stream.
// Returning an error aborts the stream with OutcomeFatal.
type LineFunc func(line string) error

var errStreamIdle = errors.New("log stream idle timeout")

// StreamLogs opens the log stream of ref and feeds every
// non-empty line to onLine as it arrives. timeout bounds the
// wait for the response headers and every gap between two
// reads of the body. Time spent in onLine does not count.
//
// The response body is closed before StreamLogs returns on
// every path. Cancelling ctx ends the attempt with
// OutcomeFatal carrying the context error.
func (c *Client) StreamLogs(
	ctx context.Context,
	ref Ref,
	timeout time.Duration,
	onLine LineFunc,
) StreamOutcome {
	const errCtx = "streaming job logs"

	if timeout <= 0 {
		return fatal(fmt.Errorf(
			"%s: timeout must be positive", errCtx,
		))
	}

	streamCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	watchdog := time.AfterFunc(timeout, func() {
		cancel(errStreamIdle)
	})
	defer watchdog.Stop()

	req, err := c.newRequest(
		streamCtx,
		http.MethodGet,
		c.jobURL(ref)+"/logs-stream",
		nil,
	)
	if err != nil {
		return fatal(fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		))
	}

	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return transportOutcome(
			ctx, streamCtx, err, false,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	if !isSuccess(resp.StatusCode) {
		return fatal(fmt.Errorf(
			"%s: %w", errCtx, newAPIError(resp),
		))
	}

	watchdog.Reset(timeout)

	reader := bufio.NewReader(&idleReader{
		r:        resp.Body,
		watchdog: watchdog,
		timeout:  timeout,
	})

	for {
		line, readErr := reader.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			// A partial line before a failed read is
			// dropped: it may be a cut JSON record.
			return transportOutcome(
				ctx, streamCtx, readErr, true,
			)
		}

		line = strings.TrimRight(line, "\r\n")
		if line != "" {
			watchdog.Stop()

			if err := onLine(line); err != nil {
				return fatal(err)
			}

			watchdog.Reset(timeout)
		}

		if readErr != nil {
			return StreamOutcome{Kind: OutcomeClosed}
		}
	}
}

// transportOutcome wraps a transport error into an outcome. A
// cancelled parent context always wins so that callers can
// match it with errors.Is.
func transportOutcome(
	ctx context.Context,
	streamCtx context.Context,
	err error,
	reading bool,
) StreamOutcome {
	const errCtx = "streaming job logs"

	step := "connect"
	if reading {
		step = "read"
	}

	if ctx.Err() != nil {
		return fatal(fmt.Errorf(
			"%s: %s: %w", errCtx, step, context.Cause(ctx),
		))
	}

	return StreamOutcome{
		Kind: classify(ctx, streamCtx, err, reading),
		Err: fmt.Errorf(
			"%s: %s: %w", errCtx, step, err,
		),
	}
}

// classify maps an unwrapped transport error to an outcome
// kind. reading tells whether the error happened while reading
// the body, after the response headers were received.
func classify(
	ctx context.Context,
	streamCtx context.Context,
	err error,
	reading bool,
) OutcomeKind {
	switch {
	case ctx.Err() != nil:
		return OutcomeFatal
	case errors.Is(context.Cause(streamCtx), errStreamIdle),
		utilnet.IsTimeout(err):
		return OutcomeTimedOut
	case reading && isStreamCut(err):
		return OutcomeTruncated
	default:
		return OutcomeFatal
	}
}

// isStreamCut reports whether err ends a body early: a
// premature EOF over HTTP/1.1 or a reset stream over HTTP/2.
func isStreamCut(err error) bool {
	var se http2.StreamError
	if errors.As(err, &se) {
		return true
	}

	// The HTTP/2 transport bundled in net/http has its own
	// unexported StreamError type.
	return utilnet.IsProbableEOF(err) ||
		strings.Contains(err.Error(), "stream error:")
}

func fatal(err error) StreamOutcome {
	return StreamOutcome{Kind: OutcomeFatal, Err: err}
}

// idleReader re-arms the watchdog each time data arrives.
type idleReader struct {
	r        io.Reader
	watchdog *time.Timer
	timeout  time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.watchdog.Reset(ir.timeout)
	}

	return n, err //nolint:wrapcheck // io.Reader contract
}
