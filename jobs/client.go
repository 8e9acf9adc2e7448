package jobs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/go-cleanhttp"
)

// Config holds the settings needed to create a jobs API
// client.
type Config struct {
	// Endpoint is the base URL of the Hub
	// (e.g. "https://huggingface.co").
	Endpoint string
	// Headers are sent with every request, usually the
	// authorization and user agent headers resolved by
	// the auth package.
	Headers http.Header
	// HTTPClient is used for all requests. Leave nil for
	// a pooled client without an overall request timeout;
	// an overall timeout would cut long log streams.
	HTTPClient *http.Client
}

// Client talks to the jobs REST API.
type Client struct {
	endpoint string
	headers  http.Header
	http     *http.Client
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	const errCtx = "creating jobs client"

	if cfg.Endpoint == "" {
		return nil, fmt.Errorf(
			"%s: endpoint must be set", errCtx,
		)
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: parse endpoint: %w", errCtx, err,
		)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf(
			"%s: endpoint %q must be an absolute url",
			errCtx, cfg.Endpoint,
		)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = cleanhttp.DefaultPooledClient()
	}

	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		headers:  cfg.Headers.Clone(),
		http:     httpClient,
	}, nil
}

func (c *Client) ownerURL(owner string) string {
	return c.endpoint + "/api/jobs/" + url.PathEscape(owner)
}

func (c *Client) jobURL(ref Ref) string {
	return c.ownerURL(ref.Owner) + "/" + url.PathEscape(ref.ID)
}

func (c *Client) newRequest(
	ctx context.Context,
	method string,
	target string,
	body io.Reader,
) (*http.Request, error) {
	req, err := http.NewRequestWithContext(
		ctx, method, target, body,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by callers
	}

	for key, values := range c.headers {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	if body != nil {
		req.Header.Set(
			"Content-Type",
			"application/json; charset=utf-8",
		)
	}

	return req, nil
}

// GetJob fetches the job identified by ref. A non-2xx answer
// is returned as an *APIError.
func (c *Client) GetJob(
	ctx context.Context,
	ref Ref,
) (*Job, error) {
	const errCtx = "getting job"

	req, err := c.newRequest(
		ctx, http.MethodGet, c.jobURL(ref), nil,
	)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: send request: %w", errCtx, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	if !isSuccess(resp.StatusCode) {
		return nil, fmt.Errorf(
			"%s: %w", errCtx, newAPIError(resp),
		)
	}

	var job Job
	if err := json.NewDecoder(resp.Body).Decode(&job); err != nil {
		return nil, fmt.Errorf(
			"%s: decode response: %w", errCtx, err,
		)
	}

	slog.Debug(
		"job status",
		"job", ref.String(),
		"stage", stageOf(&job),
	)

	return &job, nil
}

// SubmitJob creates a job owned by owner and returns its ID.
func (c *Client) SubmitJob(
	ctx context.Context,
	owner string,
	sr SubmitRequest,
) (string, error) {
	const errCtx = "submitting job"

	payload, err := json.Marshal(&sr)
	if err != nil {
		return "", fmt.Errorf(
			"%s: marshal request: %w", errCtx, err,
		)
	}

	req, err := c.newRequest(
		ctx,
		http.MethodPost,
		c.ownerURL(owner),
		bytes.NewReader(payload),
	)
	if err != nil {
		return "", fmt.Errorf(
			"%s: build request: %w", errCtx, err,
		)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf(
			"%s: send request: %w", errCtx, err,
		)
	}

	defer resp.Body.Close() //nolint:errcheck

	if !isSuccess(resp.StatusCode) {
		return "", fmt.Errorf(
			"%s: %w", errCtx, newAPIError(resp),
		)
	}

	var created Job
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf(
			"%s: decode response: %w", errCtx, err,
		)
	}

	if created.Metadata.JobID == "" {
		return "", fmt.Errorf(
			"%s: response has no metadata.jobId", errCtx,
		)
	}

	slog.Info(
		"job submitted",
		"owner", owner,
		"job", created.Metadata.JobID,
	)

	return created.Metadata.JobID, nil
}

func stageOf(job *Job) Stage {
	if job.Status == nil {
		return ""
	}

	return job.Status.Stage
}
