// Package docstore performs read-modify-write cycles against a storage.Store
// using version tokens as optimistic locks. It holds no state between calls:
// every operation is one read and at most one write.
package docstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
)

// Snapshot is the content of a document together with the version it was read
// or written at.
type Snapshot struct {
	Path    string
	Content []byte
	Version string
}

// Initializer synthesizes the content of a document that does not exist yet.
type Initializer func() ([]byte, error)

// Coordinator issues every versioned write of the module.
type Coordinator struct {
	store  storage.Store
	logger *slog.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the logger for the coordinator
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

// New creates a Coordinator over store.
func New(store storage.Store, opts ...Option) (*Coordinator, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	c := &Coordinator{store: store}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c, nil
}

// Discover fetches the document at path, reporting None when it is absent.
func (c *Coordinator) Discover(ctx context.Context, path string) (mo.Option[Snapshot], error) {
	doc, err := c.store.Fetch(ctx, path)
	if err != nil {
		c.logger.Error("fetch failed", "path", path, "error", err)
		return mo.None[Snapshot](), fmt.Errorf("fetch %s: %w", path, err)
	}
	found, ok := doc.Get()
	if !ok {
		c.logger.Debug("document absent", "path", path)
		return mo.None[Snapshot](), nil
	}
	c.logger.Debug("document fetched", "path", found.Path, "version", found.Version)
	return mo.Some(Snapshot{Path: found.Path, Content: found.Content, Version: found.Version}), nil
}

// ReadOrInit returns the document at path, creating it from init when absent.
//
// Creation is an unconditional write: two callers provisioning the same path
// at once may both succeed on stores that allow blind overwrites, the later one
// winning.
func (c *Coordinator) ReadOrInit(ctx context.Context, path string, init Initializer, message string) (Snapshot, error) {
	current, err := c.Discover(ctx, path)
	if err != nil {
		return Snapshot{}, err
	}
	if snap, ok := current.Get(); ok {
		return snap, nil
	}

	content, err := init()
	if err != nil {
		return Snapshot{}, fmt.Errorf("initialize %s: %w", path, err)
	}
	version, err := c.write(ctx, path, mo.None[string](), content, message)
	if err != nil {
		return Snapshot{}, err
	}
	c.logger.Info("document provisioned", "path", path, "version", version)
	return Snapshot{Path: path, Content: content, Version: version}, nil
}

// UpdateExisting writes content if the stored version still equals version.
// A lost race surfaces as an error matching storage.ErrConflict; it is never
// retried or merged here.
func (c *Coordinator) UpdateExisting(ctx context.Context, path, version string, content []byte, message string) (string, error) {
	if version == "" {
		return "", storage.NewValidationError("version is required to update %s", path)
	}
	return c.write(ctx, path, mo.Some(version), content, message)
}

// Commit writes content conditionally when version is present and
// unconditionally otherwise, which is only meant for documents found absent.
func (c *Coordinator) Commit(ctx context.Context, path string, version mo.Option[string], content []byte, message string) (string, error) {
	if v, ok := version.Get(); ok {
		return c.UpdateExisting(ctx, path, v, content, message)
	}
	return c.write(ctx, path, mo.None[string](), content, message)
}

func (c *Coordinator) write(ctx context.Context, path string, expected mo.Option[string], content []byte, message string) (string, error) {
	version, err := c.store.Write(ctx, storage.WriteRequest{
		Path:            path,
		Content:         content,
		ExpectedVersion: expected,
		Message:         message,
	})
	if err != nil {
		level := slog.LevelError
		if storage.KindOf(err) == storage.ErrTypeConflict {
			level = slog.LevelWarn
		}
		c.logger.Log(ctx, level, "write failed",
			"path", path,
			"expected", expected.OrEmpty(),
			"error", err)
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	c.logger.Debug("document written",
		"path", path,
		"expected", expected.OrEmpty(),
		"version", version,
		"message", message)
	return version, nil
}
