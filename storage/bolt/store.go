// Package bolt keeps documents in a single bbolt database file. Each write
// runs its version check and update inside one read-write transaction, so
// conditional writes are atomic across goroutines.
package bolt

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
	"go.etcd.io/bbolt"
)

var (
	bucketDocuments = []byte("documents")
	bucketHistory   = []byte("history")
)

// record is the stored form of a document.
type record struct {
	Content   []byte    `json:"content"`
	Version   string    `json:"version"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store implements storage.Store on bbolt.
type Store struct {
	db     *bbolt.DB
	logger *slog.Logger
	now    func() time.Time
	noSync bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithNow sets the time function for testing.
func WithNow(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithNoSync disables fsync per transaction. Only for tests.
func WithNoSync(noSync bool) Option {
	return func(s *Store) {
		s.noSync = noSync
	}
}

// Open opens or creates the database at path.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout: 1 * time.Second,
		NoSync:  s.noSync,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s.db = db

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketDocuments, bucketHistory} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	s.logger.Debug("opened document database", "path", path)
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) Fetch(_ context.Context, path string) (mo.Option[storage.Document], error) {
	path, err := storage.CleanPath(path)
	if err != nil {
		return mo.None[storage.Document](), err
	}

	var rec *record
	err = s.db.View(func(tx *bbolt.Tx) error {
		var err error
		rec, err = getRecord(tx.Bucket(bucketDocuments), path)
		return err
	})
	if err != nil {
		return mo.None[storage.Document](), storage.NewStoreError(0, "read document", err)
	}
	if rec == nil {
		return mo.None[storage.Document](), nil
	}
	return mo.Some(storage.Document{Path: path, Content: rec.Content, Version: rec.Version}), nil
}

func (s *Store) Write(_ context.Context, req storage.WriteRequest) (string, error) {
	path, err := storage.CleanPath(req.Path)
	if err != nil {
		return "", err
	}

	var version string
	err = s.db.Update(func(tx *bbolt.Tx) error {
		docs := tx.Bucket(bucketDocuments)
		current, err := getRecord(docs, path)
		if err != nil {
			return err
		}

		if expected, ok := req.ExpectedVersion.Get(); ok {
			if current == nil {
				return &storage.ConflictError{Path: path, Expected: expected}
			}
			if current.Version != expected {
				return &storage.ConflictError{Path: path, Expected: expected, Current: current.Version}
			}
		}

		seq, err := docs.NextSequence()
		if err != nil {
			return err
		}
		rec := record{
			Content:   req.Content,
			Version:   storage.HashVersion(seq, req.Content),
			Message:   req.Message,
			UpdatedAt: s.now().UTC(),
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		if err := docs.Put([]byte(path), data); err != nil {
			return fmt.Errorf("putting document: %w", err)
		}

		// history is keyed by the global write sequence
		entry, err := json.Marshal(HistoryEntry{Path: path, Version: rec.Version, Message: rec.Message, At: rec.UpdatedAt})
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketHistory).Put(encodeSeq(seq), entry); err != nil {
			return fmt.Errorf("putting history: %w", err)
		}

		version = rec.Version
		return nil
	})
	if err != nil {
		var conflict *storage.ConflictError
		if errors.As(err, &conflict) {
			s.logger.Debug("conditional write rejected", "path", path, "error", err)
			return "", err
		}
		return "", storage.NewStoreError(0, "write document", err)
	}

	s.logger.Debug("document written", "path", path, "version", version)
	return version, nil
}

// HistoryEntry describes one accepted write.
type HistoryEntry struct {
	Path    string    `json:"path"`
	Version string    `json:"version"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// History returns every accepted write in order.
func (s *Store) History() ([]HistoryEntry, error) {
	var entries []HistoryEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(_, v []byte) error {
			var entry HistoryEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}
			entries = append(entries, entry)
			return nil
		})
	})
	return entries, err
}

func getRecord(bucket *bbolt.Bucket, path string) (*record, error) {
	if bucket == nil {
		return nil, fmt.Errorf("documents bucket not found")
	}
	val := bucket.Get([]byte(path))
	if val == nil {
		return nil, nil
	}
	// json.Unmarshal copies, so the record outlives the transaction
	var rec record
	if err := json.Unmarshal(val, &rec); err != nil {
		return nil, fmt.Errorf("decoding document %q: %w", path, err)
	}
	return &rec, nil
}

func encodeSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
