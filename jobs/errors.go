package jobs

import (
	"fmt"
	"io"
	"net/http"
	"strings"
)

// maxErrorBody bounds how much of an error response body is kept
// in an APIError.
const maxErrorBody = 4096

// APIError is returned when the jobs API answers with a non-2xx
// status.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf(
		"%s %s: unexpected status %s",
		e.Method, e.URL, e.Status,
	)

	if e.Body != "" {
		msg += ": " + e.Body
	}

	return msg
}

func isSuccess(code int) bool {
	return code >= http.StatusOK &&
		code < http.StatusMultipleChoices
}

// newAPIError builds an APIError from resp. The caller still
// owns resp.Body.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
	}

	if resp.Request != nil {
		apiErr.Method = resp.Request.Method
		apiErr.URL = resp.Request.URL.Redacted()
	}

	rb, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err == nil {
		apiErr.Body = strings.TrimSpace(string(rb))
	}

	return apiErr
}
