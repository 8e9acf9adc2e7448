package auth_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/hfjobs/auth"
	"github.com/byte4ever/hfjobs/jobs"
)

// envMap returns a Getenv reading from env.
func envMap(env map[string]string) func(string) string {
	return func(key string) string {
		return env[key]
	}
}

func writeToken(tb testing.TB, path, content string) {
	tb.Helper()

	require.NoError(tb, os.MkdirAll(filepath.Dir(path), 0o700))
	require.NoError(
		tb, os.WriteFile(path, []byte(content), 0o600),
	)
}

func newResolver(
	t *testing.T,
	endpoint string,
	env map[string]string,
	home string,
) *auth.Resolver {
	t.Helper()

	r, err := auth.NewResolver(auth.Config{
		Endpoint: endpoint,
		Version:  "1.2.3",
		Getenv:   envMap(env),
		HomeDir:  home,
	})
	require.NoError(t, err)

	return r
}

func TestNewResolver_missing_endpoint(t *testing.T) {
	t.Parallel()

	r, err := auth.NewResolver(auth.Config{})

	assert.Nil(t, r)
	assert.ErrorContains(t, err, "endpoint must be set")
}

func TestResolver_TokenPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{
			name: "default",
			want: filepath.Join(
				"/home/alice", ".cache", "huggingface", "token",
			),
		},
		{
			name: "hf home",
			env:  map[string]string{"HF_HOME": "/data/hf"},
			want: filepath.Join("/data/hf", "token"),
		},
		{
			name: "explicit path wins",
			env: map[string]string{
				"HF_HOME":       "/data/hf",
				"HF_TOKEN_PATH": "/run/secrets/hf",
			},
			want: "/run/secrets/hf",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := newResolver(
				t, "https://hub.test", tc.env, "/home/alice",
			)

			assert.Equal(t, tc.want, r.TokenPath())
		})
	}
}

func TestResolver_Token_precedence(t *testing.T) {
	t.Parallel()

	home := t.TempDir()
	writeToken(
		t,
		filepath.Join(home, ".cache", "huggingface", "token"),
		"file-token\n",
	)

	withEnv := newResolver(
		t,
		"https://hub.test",
		map[string]string{"HF_TOKEN": "env-token"},
		home,
	)
	fileOnly := newResolver(t, "https://hub.test", nil, home)

	tok, err := withEnv.Token("flag-token")
	require.NoError(t, err)
	assert.Equal(t, "flag-token", tok)

	tok, err = withEnv.Token("")
	require.NoError(t, err)
	assert.Equal(t, "env-token", tok)

	tok, err = fileOnly.Token("")
	require.NoError(t, err)
	assert.Equal(t, "file-token", tok)
}

func TestResolver_Token_missing(t *testing.T) {
	t.Parallel()

	home := t.TempDir()

	r := newResolver(t, "https://hub.test", nil, home)

	_, err := r.Token("")
	require.ErrorIs(t, err, auth.ErrNoToken)

	// A blank token file counts as no token.
	writeToken(
		t,
		filepath.Join(home, ".cache", "huggingface", "token"),
		"  \n",
	)

	_, err = r.Token("")
	require.ErrorIs(t, err, auth.ErrNoToken)
}

func TestResolver_Resolve(t *testing.T) {
	t.Parallel()

	var gotAuth, gotUA string

	ts := httptest.NewServer(http.HandlerFunc(func(
		w http.ResponseWriter,
		r *http.Request,
	) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")

		_, _ = io.WriteString(w, `{"name":"alice"}`)
	}))
	t.Cleanup(ts.Close)

	r := newResolver(
		t, ts.URL, map[string]string{"HF_TOKEN": "hf_abc"}, "",
	)

	id, err := r.Resolve(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "alice", id.Username)
	assert.Equal(t, "Bearer hf_abc", gotAuth)
	assert.True(t, strings.HasPrefix(gotUA, "hfjobs/1.2.3; go/"))
	assert.Equal(t, "Bearer hf_abc", id.Headers.Get("Authorization"))
	assert.Equal(t, gotUA, id.Headers.Get("User-Agent"))
}

func TestResolver_Resolve_rejected_token(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(
		w http.ResponseWriter,
		_ *http.Request,
	) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	t.Cleanup(ts.Close)

	r := newResolver(t, ts.URL, nil, t.TempDir())

	_, err := r.Resolve(context.Background(), "hf_bad")

	var apiErr *jobs.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestUserAgent(t *testing.T) {
	t.Parallel()

	assert.True(t, strings.HasPrefix(
		auth.UserAgent(""), "hfjobs/dev; go/",
	))
}
