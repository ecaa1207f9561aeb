package httpclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
)

// DoPUT creates or updates a file through PUT /repos/{owner}/{repo}/contents/{path}.
// When r.SHA is set GitHub only accepts the write if it still names the current blob.
func (c *httpClientWrapper) DoPUT(ctx context.Context, r PutRequest) (*PutResult, error) {
	c.logger.Debug("starting PUT request",
		"path", r.Path,
		"sha", r.SHA,
		"branch", r.Branch,
		"data_length", len(r.Content))

	resolvedURL, err := c.contentsURL(r.Path, nil)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "path", r.Path, "error", err)
		return nil, err
	}

	payload, err := json.Marshal(putBody{
		Message: r.Message,
		Content: base64.StdEncoding.EncodeToString(r.Content),
		SHA:     r.SHA,
		Branch:  r.Branch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode PUT body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, resolvedURL.String(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create PUT request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send PUT request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		statusErr := readStatusError(resp, http.MethodPut, r.Path)
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"message", statusErr.Message)
		return nil, statusErr
	}

	var body putResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode PUT response for %q: %w", r.Path, err)
	}
	if body.Content.SHA == "" {
		return nil, fmt.Errorf("PUT response for %q carries no content sha", r.Path)
	}

	c.logger.Debug("PUT request complete",
		"status", resp.Status,
		"new_sha", body.Content.SHA,
		"commit", body.Commit.SHA)
	return &PutResult{SHA: body.Content.SHA, CommitSHA: body.Commit.SHA}, nil
}
