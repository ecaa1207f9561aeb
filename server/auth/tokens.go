package auth

import (
	"context"
	"crypto/subtle"
	"io"
	"log/slog"
	"sort"
)

// StaticTokens authenticates against a fixed set of API tokens, keyed by
// client name.
type StaticTokens struct {
	clients []client
	logger  *slog.Logger
}

type client struct {
	name  string
	token []byte
}

// Option represents a configuration option for StaticTokens
type Option func(*StaticTokens)

// WithLogger sets the logger for the authenticator
func WithLogger(logger *slog.Logger) Option {
	return func(s *StaticTokens) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStaticTokens creates an authenticator from client name to token pairs.
// Empty tokens are skipped.
func NewStaticTokens(tokens map[string]string, opts ...Option) *StaticTokens {
	s := &StaticTokens{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	names := make([]string, 0, len(tokens))
	for name := range tokens {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if tokens[name] == "" {
			s.logger.Warn("ignoring client with empty token", "client", name)
			continue
		}
		s.clients = append(s.clients, client{name: name, token: []byte(tokens[name])})
	}
	return s
}

// Len reports how many tokens are accepted.
func (s *StaticTokens) Len() int { return len(s.clients) }

// Authenticate implements Authenticator
func (s *StaticTokens) Authenticate(_ context.Context, token string) (*Principal, error) {
	given := []byte(token)
	for _, c := range s.clients {
		if subtle.ConstantTimeCompare(c.token, given) == 1 {
			s.logger.Debug("client authenticated", "client", c.name)
			return &Principal{ID: c.name}, nil
		}
	}
	return nil, &Error{Type: ErrInvalidCredentials, Message: "unknown token"}
}
