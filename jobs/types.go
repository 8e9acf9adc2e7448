package jobs

import (
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/samber/lo"
)

// Stage is the server-reported lifecycle state of a job.
type Stage string

const (
	// StageRunning means the job is executing.
	StageRunning Stage = "RUNNING"
	// StageUpdating means the job is being (re)provisioned.
	StageUpdating Stage = "UPDATING"
)

//nolint:gochecknoglobals // fixed set of non-terminal stages
var activeStages = []Stage{StageRunning, StageUpdating}

// Active reports whether s is RUNNING or UPDATING. Every other
// stage is terminal.
func (s Stage) Active() bool {
	return lo.Contains(activeStages, s)
}

// Ref identifies a job on the remote service.
type Ref struct {
	Owner string
	ID    string
}

// String returns "owner/id".
func (r Ref) String() string {
	return r.Owner + "/" + r.ID
}

// Status is the status block of a job.
type Status struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message,omitempty"`
}

// Metadata is the metadata block of a job.
type Metadata struct {
	JobID string `json:"jobId"`
}

// Job is the subset of the job resource the client reads.
type Job struct {
	Metadata Metadata `json:"metadata"`
	Status   *Status  `json:"status,omitempty"`
}

// Finished reports whether the job carries a terminal stage. A
// job without a status block, or with an empty stage, is not
// finished.
func (j *Job) Finished() bool {
	if j == nil || j.Status == nil || j.Status.Stage == "" {
		return false
	}

	return !j.Status.Stage.Active()
}

// SubmitRequest is the JSON body of a job submission. Exactly one
// of DockerImage and SpaceID is set.
type SubmitRequest struct {
	Command     []string          `json:"command"`
	Arguments   []string          `json:"arguments"`
	Environment map[string]string `json:"environment"`
	Flavor      string            `json:"flavor"`
	Timeout     int               `json:"timeout,omitempty"`
	DockerImage string            `json:"dockerImage,omitempty"`
	SpaceID     string            `json:"spaceId,omitempty"`
}

// MarkerPrefix starts the synthetic event the server emits when
// a job starts. It is not job output.
const MarkerPrefix = "===== Job started"

const (
	eventLinePrefix = "data: {"
	dataFieldPrefix = "data: "
)

// ErrMalformedEvent is returned by ParseEventLine when a data
// line does not hold a valid log event.
var ErrMalformedEvent = errors.New("malformed log event")

// LogEvent is one record of the log stream.
type LogEvent struct {
	Timestamp string `json:"timestamp"`
	Data      string `json:"data"`
}

// IsMarker reports whether e is the job-started marker.
func (e LogEvent) IsMarker() bool {
	return strings.HasPrefix(e.Data, MarkerPrefix)
}

type wireLogEvent struct {
	Timestamp *string `json:"timestamp"`
	Data      *string `json:"data"`
}

// ParseEventLine decodes one raw line of the log stream. Lines
// that are not "data: {...}" records (heartbeats, blank
// separators, other event fields) return ok == false and no
// error. A data line whose JSON cannot be decoded, or that lacks
// the data field, returns ErrMalformedEvent.
func ParseEventLine(line string) (LogEvent, bool, error) {
	if !strings.HasPrefix(line, eventLinePrefix) {
		return LogEvent{}, false, nil
	}

	var wire wireLogEvent

	err := json.Unmarshal(
		[]byte(line[len(dataFieldPrefix):]), &wire,
	)
	if err != nil {
		return LogEvent{}, false, fmt.Errorf(
			"%w: %w", ErrMalformedEvent, err,
		)
	}

	if wire.Data == nil {
		return LogEvent{}, false, fmt.Errorf(
			"%w: missing data field", ErrMalformedEvent,
		)
	}

	return LogEvent{
		Timestamp: lo.FromPtr(wire.Timestamp),
		Data:      *wire.Data,
	}, true, nil
}
