package submit_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/hfjobs/jobs"
	"github.com/byte4ever/hfjobs/submit"
)

func TestParseTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{value: "", want: 0},
		{value: "90", want: 90},
		{value: "90s", want: 90},
		{value: "1.5m", want: 90},
		{value: "2h", want: 7200},
		{value: "1d", want: 86400},
		{value: "0.5s", want: 0},
		{value: "1.5", wantErr: true},
		{value: "abc", wantErr: true},
		{value: "xm", wantErr: true},
		{value: "-5", wantErr: true},
		{value: "-1h", wantErr: true},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.value, func(t *testing.T) {
			t.Parallel()

			got, err := submit.ParseTimeout(tc.value)
			if tc.wantErr {
				assert.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseEnv(t *testing.T) {
	t.Parallel()

	got, err := submit.ParseEnv(
		[]string{"A=1", "B=hello world", `C="quoted"`, "A=2", "E="},
		"",
	)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"A": "2",
		"B": "hello world",
		"C": "quoted",
		"E": "",
	}, got)
}

func TestParseEnv_file_overrides_flags(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "job.env")
	require.NoError(t, os.WriteFile(
		path,
		[]byte("# job settings\nA=from-file\nD=4\n"),
		0o600,
	))

	got, err := submit.ParseEnv([]string{"A=1", "B=2"}, path)

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"A": "from-file",
		"B": "2",
		"D": "4",
	}, got)
}

func TestParseEnv_errors(t *testing.T) {
	t.Parallel()

	_, err := submit.ParseEnv([]string{""}, "")
	assert.ErrorContains(t, err, "not KEY=VALUE")

	_, err = submit.ParseEnv([]string{"A=1", "DEBUG"}, "")
	assert.ErrorContains(t, err, `"DEBUG" is not KEY=VALUE`)

	_, err = submit.ParseEnv(
		nil, filepath.Join(t.TempDir(), "missing.env"),
	)
	assert.ErrorContains(t, err, "missing.env")
}

func TestBuildRequest_docker_image(t *testing.T) {
	t.Parallel()

	got, err := submit.BuildRequest(submit.Options{
		Image:   "python:3.12",
		Command: []string{"python", "-c", "print(1)"},
		Timeout: 300,
	})

	require.NoError(t, err)
	assert.Equal(t, jobs.SubmitRequest{
		Command:     []string{"python", "-c", "print(1)"},
		Arguments:   []string{},
		Environment: map[string]string{},
		Flavor:      submit.DefaultFlavor,
		Timeout:     300,
		DockerImage: "python:3.12",
	}, got)
}

func TestBuildRequest_space_prefixes(t *testing.T) {
	t.Parallel()

	for _, image := range []string{
		"https://huggingface.co/spaces/alice/app",
		"https://hf.co/spaces/alice/app",
		"huggingface.co/spaces/alice/app",
		"hf.co/spaces/alice/app",
	} {
		image := image
		t.Run(image, func(t *testing.T) {
			t.Parallel()

			got, err := submit.BuildRequest(submit.Options{
				Image:   image,
				Command: []string{"ls"},
				Flavor:  "t4-small",
			})

			require.NoError(t, err)
			assert.Equal(t, "alice/app", got.SpaceID)
			assert.Empty(t, got.DockerImage)
			assert.Equal(t, "t4-small", got.Flavor)
		})
	}
}

func TestBuildRequest_missing_image(t *testing.T) {
	t.Parallel()

	_, err := submit.BuildRequest(submit.Options{})

	assert.ErrorContains(t, err, "image must be set")
}

func TestBuildRequest_empty_command(t *testing.T) {
	t.Parallel()

	got, err := submit.BuildRequest(submit.Options{Image: "ubuntu"})

	require.NoError(t, err)
	assert.NotNil(t, got.Command)
	assert.Empty(t, got.Command)
}
