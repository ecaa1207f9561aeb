package httpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// DoGET fetches a file through GET /repos/{owner}/{repo}/contents/{path}
func (c *httpClientWrapper) DoGET(ctx context.Context, path, ref string) (*FileContent, error) {
	c.logger.Debug("starting GET request",
		"path", path,
		"ref", ref)

	query := url.Values{}
	if ref != "" {
		query.Set("ref", ref)
	}
	resolvedURL, err := c.contentsURL(path, query)
	if err != nil {
		c.logger.Debug("failed to resolve URL", "path", path, "error", err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolvedURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GET request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Debug("request failed", "error", err)
		return nil, fmt.Errorf("failed to send GET request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("received response", "status", resp.Status)

	if resp.StatusCode != http.StatusOK {
		statusErr := readStatusError(resp, http.MethodGet, path)
		c.logger.Debug("unexpected status code",
			"status_code", resp.StatusCode,
			"message", statusErr.Message)
		return nil, statusErr
	}

	var body contentsBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode contents response for %q: %w", path, err)
	}
	if body.Type != "" && body.Type != "file" {
		return nil, fmt.Errorf("%q is a %s, not a file", path, body.Type)
	}
	if body.Encoding != "base64" {
		// files above 1 MB come back with encoding "none" and no content
		return nil, fmt.Errorf("unsupported content encoding %q for %q", body.Encoding, path)
	}

	// the API wraps base64 content at 60 columns
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(body.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("failed to decode content of %q: %w", path, err)
	}

	c.logger.Debug("GET request complete",
		"path", body.Path,
		"sha", body.SHA,
		"size", len(content))
	return &FileContent{Path: body.Path, SHA: body.SHA, Content: content}, nil
}

func readStatusError(resp *http.Response, method, path string) *StatusError {
	statusErr := &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode}
	var body errorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		statusErr.Message = body.Message
	}
	return statusErr
}
