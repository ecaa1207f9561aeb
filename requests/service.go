// Package requests keeps an ordered list of request records in one JSON
// document and edits it through versioned read-modify-write cycles.
package requests

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cyp0633/libgitdoc/docstore"
	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
)

// DefaultPath is the document the list lives in unless configured otherwise.
const DefaultPath = "requests.json"

// timestampLayout is RFC 3339 in UTC with milliseconds.
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Service implements list, append, patch, remove and bulk replace on the
// request list.
type Service struct {
	docs   *docstore.Coordinator
	path   string
	now    func() time.Time
	newID  func(time.Time) string
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock sets the time source for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithIDGenerator replaces NewID.
func WithIDGenerator(gen func(time.Time) string) Option {
	return func(s *Service) {
		s.newID = gen
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service for the list stored at path, DefaultPath if
// empty.
func NewService(docs *docstore.Coordinator, path string, opts ...Option) (*Service, error) {
	if docs == nil {
		return nil, fmt.Errorf("coordinator is required")
	}
	if path == "" {
		path = DefaultPath
	}
	path, err := storage.CleanPath(path)
	if err != nil {
		return nil, err
	}

	s := &Service{
		docs:  docs,
		path:  path,
		now:   time.Now,
		newID: NewID,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// Path returns the document path of the list.
func (s *Service) Path() string { return s.path }

func (s *Service) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// List returns the records and the list version. A list that was never
// written is empty with no version.
func (s *Service) List(ctx context.Context) ([]Record, mo.Option[string], error) {
	current, err := s.docs.Discover(ctx, s.path)
	if err != nil {
		return nil, mo.None[string](), err
	}
	snap, ok := current.Get()
	if !ok {
		return []Record{}, mo.None[string](), nil
	}
	records, err := s.decode(snap)
	if err != nil {
		return nil, mo.None[string](), err
	}
	return records, mo.Some(snap.Version), nil
}

// Append adds a record built from fields at the end of the list, creating the
// list if needed. Missing id, createdAt and status are filled in; the id is
// not checked for uniqueness against the existing records.
func (s *Service) Append(ctx context.Context, fields Record) (Record, string, error) {
	if len(fields) == 0 {
		return nil, "", storage.NewValidationError("missing request data")
	}
	rec, err := ParseRecord(fields)
	if err != nil {
		return nil, "", storage.NewValidationError("invalid request data: %v", err)
	}

	snap, err := s.docs.ReadOrInit(ctx, s.path, func() ([]byte, error) {
		return EncodeList(nil)
	}, "Create request list: "+s.path)
	if err != nil {
		return nil, "", err
	}
	records, err := s.decode(snap)
	if err != nil {
		return nil, "", err
	}

	now := s.now()
	if !rec.hasValue(FieldID) {
		if rec, err = rec.Set(FieldID, s.newID(now)); err != nil {
			return nil, "", err
		}
	}
	if !rec.hasValue(FieldCreatedAt) {
		if rec, err = rec.Set(FieldCreatedAt, now.UTC().Format(timestampLayout)); err != nil {
			return nil, "", err
		}
	}
	if !rec.hasValue(FieldStatus) {
		if rec, err = rec.Set(FieldStatus, StatusPending); err != nil {
			return nil, "", err
		}
	}

	records = append(records, rec)
	id := rec.Get(FieldID).String()
	version, err := s.write(ctx, snap.Version, records, "Add request: "+id)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("request added", "id", id, "version", version)
	return rec, version, nil
}

// Patch merges updates over the first record with the given id and stamps
// updatedAt. An id in updates is ignored. The write is conditional on version
// when given, else on the version just read.
func (s *Service) Patch(ctx context.Context, id string, updates Record, version mo.Option[string]) (Record, string, error) {
	if id == "" {
		return nil, "", storage.NewValidationError("requestId is required")
	}
	if len(updates) == 0 {
		return nil, "", storage.NewValidationError("updates are required")
	}
	if _, err := ParseRecord(updates); err != nil {
		return nil, "", storage.NewValidationError("invalid updates: %v", err)
	}

	snap, records, err := s.load(ctx)
	if err != nil {
		return nil, "", err
	}

	idx := -1
	for i, rec := range records {
		if rec.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, "", storage.NewNotFoundError(id, "request not found")
	}

	updated, err := records[idx].Merge(updates)
	if err != nil {
		return nil, "", err
	}
	if updated, err = updated.Set(FieldUpdatedAt, s.timestamp()); err != nil {
		return nil, "", err
	}
	records[idx] = updated

	change := "modified"
	if updates.hasValue(FieldStatus) {
		change = updates.Status()
	}
	newVersion, err := s.write(ctx, precondition(version, snap.Version), records,
		fmt.Sprintf("Update request: %s - %s", id, change))
	if err != nil {
		return nil, "", err
	}
	return updated, newVersion, nil
}

// Remove deletes every record with the given id. It fails with a not-found
// error, writing nothing, when no record matches.
func (s *Service) Remove(ctx context.Context, id string, version mo.Option[string]) (string, error) {
	if id == "" {
		return "", storage.NewValidationError("requestId is required")
	}

	snap, records, err := s.load(ctx)
	if err != nil {
		return "", err
	}

	kept := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.ID() != id {
			kept = append(kept, rec)
		}
	}
	if len(kept) == len(records) {
		return "", storage.NewNotFoundError(id, "request not found")
	}

	return s.write(ctx, precondition(version, snap.Version), kept, "Delete request: "+id)
}

// ReplaceAll overwrites the list with records, in the given order and without
// filling in any field. It returns the number of records written.
func (s *Service) ReplaceAll(ctx context.Context, records []Record) (int, string, error) {
	if records == nil {
		return 0, "", storage.NewValidationError("invalid requests array")
	}
	for i, rec := range records {
		if _, err := ParseRecord(rec); err != nil {
			return 0, "", storage.NewValidationError("invalid request at index %d: %v", i, err)
		}
	}

	current, err := s.docs.Discover(ctx, s.path)
	if err != nil {
		return 0, "", err
	}
	version := mo.None[string]()
	if snap, ok := current.Get(); ok {
		version = mo.Some(snap.Version)
	}

	content, err := EncodeList(records)
	if err != nil {
		return 0, "", storage.NewValidationError("encode requests: %v", err)
	}
	newVersion, err := s.docs.Commit(ctx, s.path, version, content,
		fmt.Sprintf("Bulk update: %d requests", len(records)))
	if err != nil {
		return 0, "", err
	}
	return len(records), newVersion, nil
}

// load reads a list that must already exist.
func (s *Service) load(ctx context.Context) (docstore.Snapshot, []Record, error) {
	current, err := s.docs.Discover(ctx, s.path)
	if err != nil {
		return docstore.Snapshot{}, nil, err
	}
	snap, ok := current.Get()
	if !ok {
		return docstore.Snapshot{}, nil, storage.NewNotFoundError(s.path, "request list does not exist")
	}
	records, err := s.decode(snap)
	return snap, records, err
}

func (s *Service) decode(snap docstore.Snapshot) ([]Record, error) {
	records, err := DecodeList(snap.Content)
	if err != nil {
		return nil, storage.NewStoreError(0, "stored request list is malformed", fmt.Errorf("%s: %w", snap.Path, err))
	}
	return records, nil
}

func (s *Service) write(ctx context.Context, version string, records []Record, message string) (string, error) {
	content, err := EncodeList(records)
	if err != nil {
		return "", err
	}
	return s.docs.UpdateExisting(ctx, s.path, version, content, message)
}

func precondition(version mo.Option[string], fetched string) string {
	if v, ok := version.Get(); ok && v != "" {
		return v
	}
	return fetched
}
