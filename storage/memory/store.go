// memory based implementation for testing purposes
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
)

// Commit is one recorded write, kept so tests can inspect change messages.
type Commit struct {
	Path    string
	Version string
	Message string
	At      time.Time
}

type entry struct {
	content []byte
	version string
}

// Store implements storage.Store interface using in-memory maps
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*entry
	history  []Commit
	revision uint64
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		docs: make(map[string]*entry),
	}
}

func (s *Store) Fetch(_ context.Context, path string) (mo.Option[storage.Document], error) {
	path, err := storage.CleanPath(path)
	if err != nil {
		return mo.None[storage.Document](), err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.docs[path]
	if !ok {
		return mo.None[storage.Document](), nil
	}

	return mo.Some(storage.Document{
		Path:    path,
		Content: append([]byte(nil), e.content...),
		Version: e.version,
	}), nil
}

func (s *Store) Write(_ context.Context, req storage.WriteRequest) (string, error) {
	path, err := storage.CleanPath(req.Path)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, exists := s.docs[path]
	if expected, ok := req.ExpectedVersion.Get(); ok {
		if !exists {
			return "", &storage.ConflictError{Path: path, Expected: expected}
		}
		if current.version != expected {
			return "", &storage.ConflictError{Path: path, Expected: expected, Current: current.version}
		}
	}

	s.revision++
	version := storage.HashVersion(s.revision, req.Content)
	s.docs[path] = &entry{
		content: append([]byte(nil), req.Content...),
		version: version,
	}
	s.history = append(s.history, Commit{
		Path:    path,
		Version: version,
		Message: req.Message,
		At:      time.Now(),
	})

	return version, nil
}

// History returns the writes recorded so far, oldest first.
func (s *Store) History() []Commit {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Commit, len(s.history))
	copy(out, s.history)
	return out
}
