package main

import (
	"fmt"
	"log/slog"

	"github.com/cyp0633/libgitdoc/calendar"
	"github.com/cyp0633/libgitdoc/config"
	"github.com/cyp0633/libgitdoc/docstore"
	"github.com/cyp0633/libgitdoc/requests"
	"github.com/cyp0633/libgitdoc/server"
	"github.com/cyp0633/libgitdoc/server/auth"
	"github.com/cyp0633/libgitdoc/storage"
	"github.com/cyp0633/libgitdoc/storage/bolt"
	"github.com/cyp0633/libgitdoc/storage/github"
	"github.com/cyp0633/libgitdoc/storage/gitrepo"
	"github.com/cyp0633/libgitdoc/storage/memory"
)

// app is the wired object graph: store, coordinator, policies.
type app struct {
	store     storage.Store
	calendars *calendar.Service
	requests  *requests.Service
	close     func() error
}

func openStore(c config.StoreConfig, logger *slog.Logger) (storage.Store, func() error, error) {
	noop := func() error { return nil }

	switch c.Backend {
	case config.BackendGitHub:
		s, err := github.New(github.Config{
			Token:     c.GitHub.Token,
			Owner:     c.GitHub.Owner,
			Repo:      c.GitHub.Repo,
			Branch:    c.GitHub.Branch,
			BaseURL:   c.GitHub.BaseURL,
			UserAgent: c.GitHub.UserAgent,
			Timeout:   c.GitHub.Timeout,
		}, logger)
		return s, noop, err
	case config.BackendGit:
		s, err := gitrepo.Open(gitrepo.Options{
			Path:        c.Git.Path,
			AuthorName:  c.Git.AuthorName,
			AuthorEmail: c.Git.AuthorEmail,
			Logger:      logger,
		})
		return s, noop, err
	case config.BackendBolt:
		s, err := bolt.Open(c.Bolt.Path, bolt.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		return s, s.Close, nil
	case config.BackendMemory:
		return memory.New(), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown store backend %q", c.Backend)
}

func newApp(c config.Config, logger *slog.Logger) (*app, error) {
	store, closeStore, err := openStore(c.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", c.Store.Backend, err)
	}

	docs, err := docstore.New(store, docstore.WithLogger(logger))
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	reqs, err := requests.NewService(docs, c.Requests.Path, requests.WithLogger(logger))
	if err != nil {
		_ = closeStore()
		return nil, err
	}
	cals := calendar.NewService(docs, calendar.Config{
		Dir:           c.Calendar.Dir,
		DefaultName:   c.Calendar.DefaultName,
		ProductID:     c.Calendar.ProductID,
		DisplayPrefix: c.Calendar.DisplayPrefix,
		Strict:        c.Calendar.Validate,
	}, logger)

	logger.Info("store ready", "backend", c.Store.Backend, "requests", reqs.Path())
	return &app{store: store, calendars: cals, requests: reqs, close: closeStore}, nil
}

func (a *app) handler(c config.Config, logger *slog.Logger) (*server.Server, error) {
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithAllowedOrigin(c.AllowedOrigin),
	}
	if len(c.Auth.Tokens) > 0 {
		tokens := auth.NewStaticTokens(c.Auth.Tokens, auth.WithLogger(logger))
		opts = append(opts, server.WithAuthenticator(tokens))
		logger.Info("bearer authentication enabled", "clients", tokens.Len())
	}
	return server.New(a.calendars, a.requests, opts...)
}
