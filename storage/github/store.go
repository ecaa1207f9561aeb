// Package github stores documents as files of a GitHub repository through the
// REST contents API. The blob sha GitHub reports for a file is used as the
// document version, and every write becomes a commit.
package github

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cyp0633/libgitdoc/internal/httpclient"
	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com/"

// Config holds everything needed to reach one repository.
type Config struct {
	Token  string
	Owner  string
	Repo   string
	Branch string
	// BaseURL overrides DefaultBaseURL, e.g. for GitHub Enterprise.
	BaseURL   string
	UserAgent string
	// Timeout bounds a single HTTP round trip. Zero means no timeout.
	Timeout time.Duration
	// Transport is the underlying round tripper, http.DefaultTransport if nil.
	Transport http.RoundTripper
}

// Store implements storage.Store on top of the contents API.
type Store struct {
	client httpclient.HttpClientWrapper
	branch string
	logger *slog.Logger
}

// New creates a Store for the repository described by cfg.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("github token not configured")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid github base url %q: %w", base, err)
	}

	httpClient := &http.Client{
		Transport: httpclient.NewTokenAuthTransport(cfg.Token, cfg.Transport, logger),
		Timeout:   cfg.Timeout,
	}
	wrapper, err := httpclient.NewHttpClientWrapper(httpClient, *baseURL, httpclient.Options{
		Owner:     cfg.Owner,
		Repo:      cfg.Repo,
		UserAgent: cfg.UserAgent,
	}, logger)
	if err != nil {
		return nil, err
	}
	return NewWithClient(wrapper, cfg.Branch, logger), nil
}

// NewWithClient creates a Store around an existing client wrapper.
func NewWithClient(client httpclient.HttpClientWrapper, branch string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{client: client, branch: branch, logger: logger}
}

func (s *Store) Fetch(ctx context.Context, path string) (mo.Option[storage.Document], error) {
	path, err := storage.CleanPath(path)
	if err != nil {
		return mo.None[storage.Document](), err
	}

	file, err := s.client.DoGET(ctx, path, s.branch)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			s.logger.Debug("document not found", "path", path)
			return mo.None[storage.Document](), nil
		}
		return mo.None[storage.Document](), toStoreError(err)
	}

	return mo.Some(storage.Document{
		Path:    path,
		Content: file.Content,
		Version: file.SHA,
	}), nil
}

func (s *Store) Write(ctx context.Context, req storage.WriteRequest) (string, error) {
	path, err := storage.CleanPath(req.Path)
	if err != nil {
		return "", err
	}

	expected, conditional := req.ExpectedVersion.Get()
	result, err := s.client.DoPUT(ctx, httpclient.PutRequest{
		Path:    path,
		Message: req.Message,
		Content: req.Content,
		SHA:     expected,
		Branch:  s.branch,
	})
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) {
			switch {
			case statusErr.StatusCode == http.StatusConflict:
				return "", &storage.ConflictError{Path: path, Expected: expected}
			case statusErr.StatusCode == http.StatusUnprocessableEntity && !conditional:
				// the file exists; GitHub refuses to overwrite it without its sha
				s.logger.Warn("unconditional write rejected, document exists",
					"path", path,
					"message", statusErr.Message)
				return "", &storage.ConflictError{Path: path}
			}
		}
		return "", toStoreError(err)
	}

	s.logger.Debug("document written",
		"path", path,
		"version", result.SHA,
		"commit", result.CommitSHA)
	return result.SHA, nil
}

func toStoreError(err error) error {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return storage.NewStoreError(statusErr.StatusCode, "github api", err)
	}
	return storage.NewStoreError(0, "github api unreachable", err)
}
