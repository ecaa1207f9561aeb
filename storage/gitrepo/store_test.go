package gitrepo

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/cyp0633/libgitdoc/storage"
	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemoryStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(Options{AuthorName: "tester", AuthorEmail: "tester@example.com"})
	require.NoError(t, err)
	return store
}

func TestStore_FetchEmptyRepository(t *testing.T) {
	store := newMemoryStore(t)

	doc, err := store.Fetch(context.Background(), "requests.json")
	require.NoError(t, err)
	assert.True(t, doc.IsAbsent())
}

func TestStore_WriteAndFetch(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	v1, err := store.Write(ctx, storage.WriteRequest{
		Path:    "calendars/alice.ics",
		Content: []byte("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"),
		Message: "Create calendar for user: alice.ics",
	})
	require.NoError(t, err)
	assert.Len(t, v1, 40)

	got, err := store.Fetch(ctx, "/calendars/alice.ics")
	require.NoError(t, err)
	doc, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, "calendars/alice.ics", doc.Path)
	assert.Equal(t, "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", string(doc.Content))
	assert.Equal(t, v1, doc.Version)

	other, err := store.Fetch(ctx, "calendars/bob.ics")
	require.NoError(t, err)
	assert.True(t, other.IsAbsent())

	v2, err := store.Write(ctx, storage.WriteRequest{
		Path:            "calendars/alice.ics",
		Content:         []byte("changed"),
		ExpectedVersion: mo.Some(v1),
		Message:         "Update calendar: alice.ics",
	})
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	messages, err := store.Log("calendars/alice.ics")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Update calendar: alice.ics", strings.TrimSpace(messages[0]))
	assert.Equal(t, "Create calendar for user: alice.ics", strings.TrimSpace(messages[1]))
}

func TestStore_WriteConflicts(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	_, err := store.Write(ctx, storage.WriteRequest{
		Path:            "requests.json",
		Content:         []byte("[]"),
		ExpectedVersion: mo.Some("deadbeef"),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrConflict))

	v1, err := store.Write(ctx, storage.WriteRequest{Path: "requests.json", Content: []byte("[]")})
	require.NoError(t, err)

	_, err = store.Write(ctx, storage.WriteRequest{
		Path:            "requests.json",
		Content:         []byte("[1]"),
		ExpectedVersion: mo.Some("deadbeef"),
	})
	var conflict *storage.ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, v1, conflict.Current)

	got, err := store.Fetch(ctx, "requests.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got.MustGet().Content))
}

func TestStore_ConcurrentConditionalWrites(t *testing.T) {
	store := newMemoryStore(t)
	ctx := context.Background()

	v1, err := store.Write(ctx, storage.WriteRequest{Path: "requests.json", Content: []byte("[]")})
	require.NoError(t, err)

	const writers = 4
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := store.Write(ctx, storage.WriteRequest{
				Path:            "requests.json",
				Content:         []byte{'[', byte('0' + i), ']'},
				ExpectedVersion: mo.Some(v1),
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, storage.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, writers-1, conflicts)
}

func TestStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := Open(Options{Path: dir})
	require.NoError(t, err)
	v1, err := store.Write(ctx, storage.WriteRequest{
		Path:    "data/requests.json",
		Content: []byte("[]"),
		Message: "Bulk update: 0 requests",
	})
	require.NoError(t, err)

	reopened, err := Open(Options{Path: dir})
	require.NoError(t, err)
	got, err := reopened.Fetch(ctx, "data/requests.json")
	require.NoError(t, err)
	doc, ok := got.Get()
	require.True(t, ok)
	assert.Equal(t, v1, doc.Version)
	assert.Equal(t, "[]", string(doc.Content))
}

func TestStore_InvalidPath(t *testing.T) {
	store := newMemoryStore(t)

	_, err := store.Fetch(context.Background(), "../escape")
	assert.ErrorIs(t, err, storage.ErrValidation)
}
