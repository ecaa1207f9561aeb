package server

import (
	"net/http"
	"strings"
	"testing"

	"github.com/cyp0633/libgitdoc/storage/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendar_GetProvisions(t *testing.T) {
	store := memory.New()
	srv := setupServer(t, store)

	w, body := do(t, srv, http.MethodGet, CalendarPath+"?file=alice.ics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.True(t, strings.HasPrefix(body["content"].(string), "BEGIN:VCALENDAR"))
	assert.Contains(t, body["content"], "X-WR-CALNAME:Calendar - alice")
	assert.NotEmpty(t, body["sha"])

	_, again := do(t, srv, http.MethodGet, CalendarPath+"?file=alice", nil)
	assert.Equal(t, body, again)
	assert.Len(t, store.History(), 1)
}

func TestCalendar_DefaultName(t *testing.T) {
	store := memory.New()
	srv := setupServer(t, store)

	w, _ := do(t, srv, http.MethodGet, CalendarPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "kalendarz.ics", store.History()[0].Path)
}

func TestCalendar_InvalidName(t *testing.T) {
	srv := setupServer(t, memory.New())

	w, body := do(t, srv, http.MethodGet, CalendarPath+"?file=../secrets", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", body["kind"])
}

func TestCalendar_Save(t *testing.T) {
	const text = "BEGIN:VCALENDAR\nVERSION:2.0\nEND:VCALENDAR"
	store := memory.New()
	srv := setupServer(t, store)

	_, got := do(t, srv, http.MethodGet, CalendarPath+"?file=alice", nil)
	sha := got["sha"].(string)

	w, body := do(t, srv, http.MethodPost, CalendarPath, map[string]any{
		"file":    "alice.ics",
		"content": text,
		"sha":     sha,
		"message": "Add night shift",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Calendar saved successfully", body["message"])
	assert.NotEqual(t, sha, body["sha"])
	assert.Equal(t, "Add night shift", store.History()[1].Message)

	// replaying the old sha loses
	w, body = do(t, srv, http.MethodPost, CalendarPath, map[string]any{
		"file":    "alice.ics",
		"content": text + "\n",
		"sha":     sha,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "conflict", body["kind"])

	// without a sha the current version is discovered
	w, _ = do(t, srv, http.MethodPost, CalendarPath+"?file=alice", map[string]any{"content": text + "\n"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Update calendar: alice.ics", store.History()[2].Message)
}

func TestCalendar_SaveValidation(t *testing.T) {
	srv := setupServer(t, memory.New())

	tests := []struct {
		name string
		body string
	}{
		{"missing content", `{"file":"alice"}`},
		{"empty body", ``},
		{"malformed json", `{"content":`},
		{"bad name", `{"file":"a b","content":"x"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(t, srv, http.MethodPost, CalendarPath, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, "validation", body["kind"])
		})
	}
}
