// Package jobs is a client for the Hub jobs REST API. It reads
// job status, submits new jobs, and opens the live log stream of
// a job.
//
// StreamLogs never returns a plain error: every attempt ends in
// a tagged StreamOutcome (closed, truncated, timed out, or fatal)
// so that callers can decide whether to reconnect without
// inspecting transport error internals.
package jobs
