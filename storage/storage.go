// Package storage defines the contract between the document policies and the
// version-controlled blob store that holds their files.
//
// A Store hands out whole-file snapshots together with an opaque version
// token. Writers pass the token back as a precondition; a store must reject a
// write whose precondition no longer matches the server-side version.
package storage

import (
	"context"

	"github.com/samber/mo"
)

// Store connects the document policies with a blob store backend (GitHub
// contents API, a local git repository, a bbolt file). Please use the error
// types provided in this package.
type Store interface {
	// Fetch retrieves the document stored at path. mo.None is returned when
	// the document does not exist; absence is not an error.
	// Any other failure is reported as a store error. Fetch never retries.
	Fetch(ctx context.Context, path string) (mo.Option[Document], error)

	// Write replaces the document at path and returns its new version.
	// If req.ExpectedVersion is present and differs from the current version,
	// the write is rejected with a *ConflictError and the document is left
	// unchanged. Without an expected version the write is unconditional.
	Write(ctx context.Context, req WriteRequest) (version string, err error)
}

// Document is a whole-file snapshot of a stored resource.
type Document struct {
	// Path is the stable identifier of the document inside the store,
	// e.g. "calendars/alice.ics".
	Path string

	// Content holds the raw file bytes.
	Content []byte

	// Version is the opaque token of this snapshot. It changes on every
	// successful write and is used as the optimistic lock of the next one.
	Version string
}

// WriteRequest describes a single write to the store.
type WriteRequest struct {
	Path    string
	Content []byte

	// ExpectedVersion is the precondition of the write. mo.None means the
	// write is unconditional, which callers only use when creating a path
	// they observed to be absent.
	ExpectedVersion mo.Option[string]

	// Message is the human-readable change description (commit message).
	Message string
}
