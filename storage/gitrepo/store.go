// Package gitrepo keeps documents in a local git repository. Reads come from
// the tree of HEAD, writes are committed with the change message, and the
// blob hash of a file serves as its version, as with the GitHub contents API.
package gitrepo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/cyp0633/libgitdoc/storage"
	"github.com/go-git/go-billy/v5/memfs"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
	"github.com/samber/mo"
)

const (
	defaultAuthorName  = "libgitdoc"
	defaultAuthorEmail = "libgitdoc@localhost"
)

// Options configures the repository backing a Store.
type Options struct {
	// Path is the worktree directory. Empty keeps the repository in memory.
	Path        string
	AuthorName  string
	AuthorEmail string
	Logger      *slog.Logger
}

// Store implements storage.Store over a go-git repository.
type Store struct {
	// mu serializes compare-and-commit so a version check and the commit it
	// guards happen atomically with respect to other writers of this process
	mu     sync.RWMutex
	repo   *gogit.Repository
	author object.Signature
	logger *slog.Logger
	now    func() time.Time
}

// Open opens the repository at opts.Path, initializing it if needed.
func Open(opts Options) (*Store, error) {
	var (
		repo *gogit.Repository
		err  error
	)
	if opts.Path == "" {
		repo, err = gogit.Init(memory.NewStorage(), memfs.New())
	} else {
		repo, err = gogit.PlainOpen(opts.Path)
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			repo, err = gogit.PlainInit(opts.Path, false)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open git repository %q: %w", opts.Path, err)
	}
	return newStore(repo, opts), nil
}

func newStore(repo *gogit.Repository, opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	name, email := opts.AuthorName, opts.AuthorEmail
	if name == "" {
		name = defaultAuthorName
	}
	if email == "" {
		email = defaultAuthorEmail
	}
	return &Store{
		repo:   repo,
		author: object.Signature{Name: name, Email: email},
		logger: logger,
		now:    time.Now,
	}
}

func (s *Store) Fetch(ctx context.Context, p string) (mo.Option[storage.Document], error) {
	p, err := storage.CleanPath(p)
	if err != nil {
		return mo.None[storage.Document](), err
	}
	if err := ctx.Err(); err != nil {
		return mo.None[storage.Document](), storage.NewStoreError(0, "fetch cancelled", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.headFile(p)
	if err != nil {
		return mo.None[storage.Document](), storage.NewStoreError(0, "read git tree", err)
	}
	if file == nil {
		return mo.None[storage.Document](), nil
	}
	content, err := file.Contents()
	if err != nil {
		return mo.None[storage.Document](), storage.NewStoreError(0, "read git blob", err)
	}

	return mo.Some(storage.Document{
		Path:    p,
		Content: []byte(content),
		Version: file.Hash.String(),
	}), nil
}

func (s *Store) Write(ctx context.Context, req storage.WriteRequest) (string, error) {
	p, err := storage.CleanPath(req.Path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", storage.NewStoreError(0, "write cancelled", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.headFile(p)
	if err != nil {
		return "", storage.NewStoreError(0, "read git tree", err)
	}
	if expected, ok := req.ExpectedVersion.Get(); ok {
		if current == nil {
			return "", &storage.ConflictError{Path: p, Expected: expected}
		}
		if current.Hash.String() != expected {
			return "", &storage.ConflictError{Path: p, Expected: expected, Current: current.Hash.String()}
		}
	}

	blobHash, commitHash, err := s.commitFile(p, req.Content, req.Message)
	if err != nil {
		return "", storage.NewStoreError(0, "commit document", err)
	}

	s.logger.Debug("document committed",
		"path", p,
		"version", blobHash.String(),
		"commit", commitHash.String())
	return blobHash.String(), nil
}

// headFile returns the file at p in HEAD's tree, or nil if HEAD or the file
// does not exist.
func (s *Store) headFile(p string) (*object.File, error) {
	head, err := s.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// empty repository, nothing committed yet
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	commit, err := s.repo.CommitObject(head.Hash())
	if err != nil {
		return nil, err
	}
	file, err := commit.File(p)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, nil
	}
	return file, err
}

func (s *Store) commitFile(p string, content []byte, message string) (plumbing.Hash, plumbing.Hash, error) {
	wt, err := s.repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}

	if dir := path.Dir(p); dir != "." {
		if err := wt.Filesystem.MkdirAll(dir, 0o755); err != nil {
			return plumbing.ZeroHash, plumbing.ZeroHash, err
		}
	}
	f, err := wt.Filesystem.Create(p)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	if _, err := f.Write(content); err != nil {
		f.Close()
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	if err := f.Close(); err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}

	blobHash, err := wt.Add(p)
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}

	if message == "" {
		message = "Update " + p
	}
	author := s.author
	author.When = s.now()
	commitHash, err := wt.Commit(message, &gogit.CommitOptions{Author: &author})
	if err != nil {
		return plumbing.ZeroHash, plumbing.ZeroHash, err
	}
	return blobHash, commitHash, nil
}

// Log returns the commit messages touching p, newest first.
func (s *Store) Log(p string) ([]string, error) {
	p, err := storage.CleanPath(p)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	iter, err := s.repo.Log(&gogit.LogOptions{FileName: &p})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var messages []string
	err = iter.ForEach(func(c *object.Commit) error {
		messages = append(messages, c.Message)
		return nil
	})
	return messages, err
}
