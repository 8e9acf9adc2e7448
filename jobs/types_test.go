package jobs_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/hfjobs/jobs"
)

func TestStage_Active(t *testing.T) {
	t.Parallel()

	assert.True(t, jobs.StageRunning.Active())
	assert.True(t, jobs.StageUpdating.Active())
	assert.False(t, jobs.Stage("COMPLETED").Active())
	assert.False(t, jobs.Stage("ERROR").Active())
	assert.False(t, jobs.Stage("").Active())
}

func TestJob_Finished(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		job  *jobs.Job
		want bool
	}{
		{
			name: "nil job",
			job:  nil,
			want: false,
		},
		{
			name: "no status",
			job:  &jobs.Job{},
			want: false,
		},
		{
			name: "empty stage",
			job:  &jobs.Job{Status: &jobs.Status{}},
			want: false,
		},
		{
			name: "running",
			job: &jobs.Job{Status: &jobs.Status{
				Stage: jobs.StageRunning,
			}},
			want: false,
		},
		{
			name: "updating",
			job: &jobs.Job{Status: &jobs.Status{
				Stage: jobs.StageUpdating,
			}},
			want: false,
		},
		{
			name: "completed",
			job: &jobs.Job{Status: &jobs.Status{
				Stage: "COMPLETED",
			}},
			want: true,
		},
		{
			name: "error",
			job: &jobs.Job{Status: &jobs.Status{
				Stage: "ERROR",
			}},
			want: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, tc.job.Finished())
		})
	}
}

func TestParseEventLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		want    jobs.LogEvent
		wantOK  bool
		wantErr bool
	}{
		{
			name: "log line",
			line: `data: {"timestamp":"t2","data":"hello"}`,
			want: jobs.LogEvent{
				Timestamp: "t2", Data: "hello",
			},
			wantOK: true,
		},
		{
			name: "marker line",
			line: `data: {"timestamp":"t1",` +
				`"data":"===== Job started at 12:00"}`,
			want: jobs.LogEvent{
				Timestamp: "t1",
				Data:      "===== Job started at 12:00",
			},
			wantOK: true,
		},
		{
			name:   "missing timestamp is tolerated",
			line:   `data: {"data":"x"}`,
			want:   jobs.LogEvent{Data: "x"},
			wantOK: true,
		},
		{
			name: "heartbeat comment",
			line: ": keep-alive",
		},
		{
			name: "event field",
			line: "event: message",
		},
		{
			name: "data without object",
			line: "data: hello",
		},
		{
			name:    "broken json",
			line:    `data: {"timestamp":"t1","da`,
			wantErr: true,
		},
		{
			name:    "missing data field",
			line:    `data: {"timestamp":"t1"}`,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, ok, err := jobs.ParseEventLine(tc.line)
			if tc.wantErr {
				require.ErrorIs(t, err, jobs.ErrMalformedEvent)
				assert.False(t, ok)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestLogEvent_IsMarker(t *testing.T) {
	t.Parallel()

	assert.True(t, jobs.LogEvent{
		Data: "===== Job started",
	}.IsMarker())
	assert.False(t, jobs.LogEvent{
		Data: "job output ===== Job started",
	}.IsMarker())
	assert.False(t, jobs.LogEvent{}.IsMarker())
}
