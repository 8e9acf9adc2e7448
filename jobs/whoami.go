package jobs

import (
	"context"
	"fmt"
	"net/http"

	json "github.com/goccy/go-json"
)

// whoAmI is the subset of the whoami-v2 answer the client reads.
type whoAmI struct {
	Name string `json:"name"`
}

// WhoAmI returns the user name the client's credentials belong
// to. Job owners are user names, so this is the default owner of
// submitted and followed jobs.
func (c *Client) WhoAmI(ctx context.Context) (string, error) {
	const errCtx = "resolving identity"

	req, err := c.newRequest(
		ctx,
		http.MethodGet,
		c.endpoint+"/api/whoami-v2",
		nil,
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

	var who whoAmI
	if err := json.NewDecoder(resp.Body).Decode(&who); err != nil {
		return "", fmt.Errorf(
			"%s: decode response: %w", errCtx, err,
		)
	}

	if who.Name == "" {
		return "", fmt.Errorf("%s: response has no name", errCtx)
	}

	return who.Name, nil
}
