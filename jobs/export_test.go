package jobs

// Exported aliases for testing internal functions from
// the jobs_test package.

// ClassifyForTest exposes classify.
var ClassifyForTest = classify

// ErrStreamIdleForTest exposes errStreamIdle.
var ErrStreamIdleForTest = errStreamIdle
