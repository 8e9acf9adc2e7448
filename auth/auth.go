package auth

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"k8s.io/client-go/util/homedir"

	"github.com/byte4ever/hfjobs/jobs"
)

const (
	envToken     = "HF_TOKEN"
	envTokenPath = "HF_TOKEN_PATH"
	envHome      = "HF_HOME"
)

// ErrNoToken is returned when no token source yields a token.
var ErrNoToken = errors.New(
	"no access token: pass --token, set " + envToken +
		" or log in to the Hub",
)

// Config holds the settings of a Resolver.
type Config struct {
	// Endpoint is the base URL of the Hub.
	Endpoint string
	// Version is reported in the User-Agent header.
	Version string
	// HTTPClient is used for the identity lookup. Nil means
	// the jobs client default.
	HTTPClient *http.Client
	// Getenv reads environment variables. Nil means
	// os.Getenv.
	Getenv func(key string) string
	// HomeDir is the user home directory. Empty means the
	// directory reported by the OS.
	HomeDir string
}

// Identity is a resolved user together with the headers that
// authenticate requests on their behalf.
type Identity struct {
	Username string
	Headers  http.Header
}

// Resolver turns the available credentials into an Identity.
type Resolver struct {
	endpoint   string
	userAgent  string
	httpClient *http.Client
	getenv     func(string) string
	homeDir    string
}

// NewResolver validates cfg and returns a Resolver.
func NewResolver(cfg Config) (*Resolver, error) {
	const errCtx = "creating auth resolver"

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf(
			"%s: endpoint must be set", errCtx,
		)
	}

	r := &Resolver{
		endpoint:   cfg.Endpoint,
		userAgent:  UserAgent(cfg.Version),
		httpClient: cfg.HTTPClient,
		getenv:     cfg.Getenv,
		homeDir:    cfg.HomeDir,
	}

	if r.getenv == nil {
		r.getenv = os.Getenv
	}

	if r.homeDir == "" {
		r.homeDir = homedir.HomeDir()
	}

	return r, nil
}

// UserAgent returns the User-Agent header value sent with every
// request.
func UserAgent(version string) string {
	if version == "" {
		version = "dev"
	}

	return fmt.Sprintf(
		"hfjobs/%s; go/%s",
		version,
		strings.TrimPrefix(runtime.Version(), "go"),
	)
}

// TokenPath returns the location of the stored token file.
func (r *Resolver) TokenPath() string {
	if p := r.getenv(envTokenPath); p != "" {
		return p
	}

	home := r.getenv(envHome)
	if home == "" {
		home = filepath.Join(r.homeDir, ".cache", "huggingface")
	}

	return filepath.Join(home, "token")
}

// Token returns the first non-empty token among explicit, the
// HF_TOKEN variable and the token file.
func (r *Resolver) Token(explicit string) (string, error) {
	const errCtx = "finding token"

	if tok := strings.TrimSpace(explicit); tok != "" {
		return tok, nil
	}

	if tok := strings.TrimSpace(r.getenv(envToken)); tok != "" {
		return tok, nil
	}

	path := r.TokenPath()

	content, err := os.ReadFile(path) //nolint:gosec // user token file
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNoToken
	}

	if err != nil {
		return "", fmt.Errorf(
			"%s: read %s: %w", errCtx, path, err,
		)
	}

	tok := strings.TrimSpace(string(content))
	if tok == "" {
		return "", ErrNoToken
	}

	return tok, nil
}

// Headers returns the headers authenticating requests with
// token.
func (r *Resolver) Headers(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("User-Agent", r.userAgent)

	return h
}

// Resolve finds the token and asks the Hub who it belongs to.
func (r *Resolver) Resolve(
	ctx context.Context,
	explicit string,
) (Identity, error) {
	const errCtx = "resolving credentials"

	token, err := r.Token(explicit)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	headers := r.Headers(token)

	client, err := jobs.NewClient(jobs.Config{
		Endpoint:   r.endpoint,
		Headers:    headers,
		HTTPClient: r.httpClient,
	})
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	name, err := client.WhoAmI(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("%s: %w", errCtx, err)
	}

	return Identity{Username: name, Headers: headers}, nil
}
