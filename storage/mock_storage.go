package storage

import (
	"context"

	"github.com/samber/mo"
	"github.com/stretchr/testify/mock"
)

// MockStore implements the Store interface for testing
type MockStore struct {
	mock.Mock
}

// Fetch implements the Store interface
func (m *MockStore) Fetch(ctx context.Context, path string) (mo.Option[Document], error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return mo.None[Document](), args.Error(1)
	}
	return args.Get(0).(mo.Option[Document]), args.Error(1)
}

// Write implements the Store interface
func (m *MockStore) Write(ctx context.Context, req WriteRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// --- Helper methods for creating test data ---

// Found wraps a document snapshot the way a Store reports an existing file.
func Found(path, content, version string) mo.Option[Document] {
	return mo.Some(Document{Path: path, Content: []byte(content), Version: version})
}

// Absent is what a Store reports for a missing file.
func Absent() mo.Option[Document] {
	return mo.None[Document]()
}
