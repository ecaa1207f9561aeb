package httpclient

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
)

// TokenAuthTransport implements http.RoundTripper and adds a bearer token
// to outgoing requests.
type TokenAuthTransport struct {
	Token     string
	Transport http.RoundTripper
	Logger    *slog.Logger
}

// NewTokenAuthTransport creates a new TokenAuthTransport with the given
// token and optional underlying transport. If transport is nil,
// http.DefaultTransport will be used.
func NewTokenAuthTransport(token string, transport http.RoundTripper, logger *slog.Logger) *TokenAuthTransport {
	if transport == nil {
		transport = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &TokenAuthTransport{
		Token:     token,
		Transport: transport,
		Logger:    logger,
	}
}

// RoundTrip implements the http.RoundTripper interface. It adds the
// Authorization header and delegates to the underlying transport.
func (t *TokenAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Token == "" {
		return nil, errors.New("auth token cannot be empty")
	}
	if t.Transport == nil {
		return nil, errors.New("transport cannot be nil")
	}

	// RoundTrippers must not modify the caller's request
	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+t.Token)

	t.Logger.Debug("outgoing request",
		"method", req.Method,
		"url", req.URL.String(),
		"content_length", req.ContentLength)

	resp, err := t.Transport.RoundTrip(authed)

	if err == nil && resp != nil {
		// Log response details
		respBody := ""
		if resp.Body != nil && resp.StatusCode >= http.StatusBadRequest {
			bodyBytes, err := io.ReadAll(resp.Body)
			if err == nil {
				respBody = string(bodyBytes)
				resp.Body = io.NopCloser(bytes.NewBuffer(bodyBytes)) // Reset the body
			}
		}

		t.Logger.Debug("incoming response",
			"status", resp.Status,
			"rate_limit_remaining", resp.Header.Get("X-RateLimit-Remaining"),
			"body", respBody)
	}

	return resp, err
}
