package httpclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	mediaTypeGitHubJSON = "application/vnd.github.v3+json"
	apiVersion          = "2022-11-28"
	defaultUserAgent    = "libgitdoc"
)

// HttpClientWrapper wraps http.Client with the repository contents API calls
// the blob store needs.
type HttpClientWrapper interface {
	// DoGET fetches one file at ref (empty for the default branch). A 404 is
	// reported as a *StatusError, like any other non-2xx answer.
	DoGET(ctx context.Context, path, ref string) (*FileContent, error)
	// DoPUT creates or replaces one file and returns the new blob sha.
	DoPUT(ctx context.Context, req PutRequest) (*PutResult, error)
}

type httpClientWrapper struct {
	client    *http.Client
	baseURL   url.URL
	owner     string
	repo      string
	userAgent string
	logger    *slog.Logger
}

// Options configures the repository a wrapper talks to.
type Options struct {
	Owner     string
	Repo      string
	UserAgent string
}

// contentsURL builds /repos/{owner}/{repo}/contents/{path} against the base URL
func (c *httpClientWrapper) contentsURL(path string, query url.Values) (*url.URL, error) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("invalid contents path %q", path)
		}
		segments[i] = url.PathEscape(seg)
	}
	ref, err := url.Parse("repos/" + url.PathEscape(c.owner) + "/" + url.PathEscape(c.repo) + "/contents/" + strings.Join(segments, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse contents URL for %q: %w", path, err)
	}
	resolved := c.baseURL.ResolveReference(ref)
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved, nil
}

func (c *httpClientWrapper) setHeaders(req *http.Request) {
	req.Header.Set("Accept", mediaTypeGitHubJSON)
	req.Header.Set("X-GitHub-Api-Version", apiVersion)
	req.Header.Set("User-Agent", c.userAgent)
}

// NewHttpClientWrapper creates a new client wrapper with logging. The base URL
// must end with a slash (e.g. https://api.github.com/).
func NewHttpClientWrapper(client *http.Client, baseURL url.URL, opts Options, logger *slog.Logger) (HttpClientWrapper, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if client == nil {
		return nil, fmt.Errorf("http client is required")
	}
	if opts.Owner == "" || opts.Repo == "" {
		return nil, fmt.Errorf("repository owner and name are required")
	}
	if !strings.HasSuffix(baseURL.Path, "/") {
		baseURL.Path += "/"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	return &httpClientWrapper{
		client:    client,
		baseURL:   baseURL,
		owner:     opts.Owner,
		repo:      opts.Repo,
		userAgent: opts.UserAgent,
		logger:    logger,
	}, nil
}
