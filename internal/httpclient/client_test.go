package httpclient

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWrapper(t *testing.T, handler http.HandlerFunc) HttpClientWrapper {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	baseURL, err := url.Parse(srv.URL)
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wrapper, err := NewHttpClientWrapper(srv.Client(), *baseURL, Options{Owner: "rex", Repo: "rex-calendar"}, logger)
	require.NoError(t, err)
	return wrapper
}

func TestNewHttpClientWrapper(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	base := url.URL{Scheme: "https", Host: "api.github.com"}

	_, err := NewHttpClientWrapper(http.DefaultClient, base, Options{Owner: "rex", Repo: "data"}, nil)
	assert.Error(t, err)

	_, err = NewHttpClientWrapper(http.DefaultClient, base, Options{Owner: "rex"}, logger)
	assert.Error(t, err)

	w, err := NewHttpClientWrapper(http.DefaultClient, base, Options{Owner: "rex", Repo: "data"}, logger)
	require.NoError(t, err)
	u, err := w.(*httpClientWrapper).contentsURL("/calendars/alice smith.ics", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://api.github.com/repos/rex/data/contents/calendars/alice%20smith.ics", u.String())
}

func TestDoGET(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		ref         string
		wantContent string
		wantSHA     string
		wantStatus  int
	}{
		{
			name:        "file found",
			status:      http.StatusOK,
			body:        `{"type":"file","encoding":"base64","path":"requests.json","sha":"abc123","content":"W10=\n"}`,
			wantContent: "[]",
			wantSHA:     "abc123",
		},
		{
			name:        "file on branch",
			status:      http.StatusOK,
			ref:         "data",
			body:        `{"type":"file","encoding":"base64","path":"kalendarz.ics","sha":"def456","content":"QkVHSU46VkNB\nTEVOREFS\n"}`,
			wantContent: "BEGIN:VCALENDAR",
			wantSHA:     "def456",
		},
		{
			name:       "not found",
			status:     http.StatusNotFound,
			body:       `{"message":"Not Found"}`,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unauthorized",
			status:     http.StatusUnauthorized,
			body:       `{"message":"Bad credentials"}`,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, mediaTypeGitHubJSON, r.Header.Get("Accept"))
				assert.Equal(t, apiVersion, r.Header.Get("X-GitHub-Api-Version"))
				assert.Equal(t, tt.ref, r.URL.Query().Get("ref"))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := wrapper.DoGET(context.Background(), "requests.json", tt.ref)
			if tt.wantStatus != 0 {
				var statusErr *StatusError
				require.True(t, errors.As(err, &statusErr))
				assert.Equal(t, tt.wantStatus, statusErr.StatusCode)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantContent, string(got.Content))
			assert.Equal(t, tt.wantSHA, got.SHA)
		})
	}
}

func TestDoGETRejectsDirectories(t *testing.T) {
	wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"type":"dir","path":"calendars"}`)
	})

	_, err := wrapper.DoGET(context.Background(), "calendars", "")
	assert.Error(t, err)
}

func TestDoPUT(t *testing.T) {
	var received putBody
	wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/rex/rex-calendar/contents/requests.json", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"content":{"path":"requests.json","sha":"new-sha"},"commit":{"sha":"commit-sha"}}`)
	})

	got, err := wrapper.DoPUT(context.Background(), PutRequest{
		Path:    "requests.json",
		Message: "Add request: req_1",
		Content: []byte(`[{"id":"req_1"}]`),
		SHA:     "old-sha",
		Branch:  "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "new-sha", got.SHA)
	assert.Equal(t, "commit-sha", got.CommitSHA)

	assert.Equal(t, "Add request: req_1", received.Message)
	assert.Equal(t, "old-sha", received.SHA)
	assert.Equal(t, "main", received.Branch)
	decoded, err := base64.StdEncoding.DecodeString(received.Content)
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"req_1"}]`, string(decoded))
}

func TestDoPUTOmitsEmptySHA(t *testing.T) {
	wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		_, hasSHA := raw["sha"]
		assert.False(t, hasSHA)
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"content":{"path":"kalendarz.ics","sha":"created"}}`)
	})

	got, err := wrapper.DoPUT(context.Background(), PutRequest{Path: "kalendarz.ics", Message: "create", Content: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, "created", got.SHA)
}

func TestDoPUTConflict(t *testing.T) {
	wrapper := newTestWrapper(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"message":"requests.json does not match abc"}`)
	})

	_, err := wrapper.DoPUT(context.Background(), PutRequest{Path: "requests.json", Message: "m", Content: []byte("[]"), SHA: "abc"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusConflict, statusErr.StatusCode)
	assert.Equal(t, "requests.json does not match abc", statusErr.Message)
}

type mockTransport struct {
	request  *http.Request
	response *http.Response
	err      error
}

func (m *mockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	m.request = req
	return m.response, m.err
}

func TestTokenAuthTransport(t *testing.T) {
	inner := &mockTransport{response: &http.Response{StatusCode: http.StatusOK, Status: "200 OK", Body: http.NoBody}}
	transport := NewTokenAuthTransport("secret", inner, nil)

	req := httptest.NewRequest(http.MethodGet, "https://api.github.com/repos/rex/data/contents/a", nil)
	_, err := transport.RoundTrip(req)
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", inner.request.Header.Get("Authorization"))
	assert.Empty(t, req.Header.Get("Authorization"))

	empty := NewTokenAuthTransport("", inner, nil)
	_, err = empty.RoundTrip(req)
	assert.Error(t, err)
}
