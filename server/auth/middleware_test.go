package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticTokens(t *testing.T) {
	tokens := NewStaticTokens(map[string]string{"hr-app": "s3cret", "empty": ""})
	assert.Equal(t, 1, tokens.Len())

	p, err := tokens.Authenticate(context.Background(), "s3cret")
	require.NoError(t, err)
	assert.Equal(t, "hr-app", p.ID)

	_, err = tokens.Authenticate(context.Background(), "wrong")
	var authErr *Error
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ErrInvalidCredentials, authErr.Type)
}

func TestMiddleware(t *testing.T) {
	var seen *Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetPrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Middleware(NewStaticTokens(map[string]string{"hr-app": "s3cret"}), nil)(next)

	tests := []struct {
		name       string
		method     string
		header     string
		wantStatus int
		wantID     string
	}{
		{name: "valid token", method: http.MethodGet, header: "Bearer s3cret", wantStatus: http.StatusOK, wantID: "hr-app"},
		{name: "lowercase scheme", method: http.MethodGet, header: "bearer s3cret", wantStatus: http.StatusOK, wantID: "hr-app"},
		{name: "missing header", method: http.MethodGet, wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", method: http.MethodPost, header: "Basic czNjcmV0", wantStatus: http.StatusUnauthorized},
		{name: "wrong token", method: http.MethodPost, header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "preflight passes", method: http.MethodOptions, wantStatus: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(tt.method, "/api/requests", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Bearer")
				assert.JSONEq(t, `{"success":false,"error":"Unauthorized","kind":"unauthorized"}`, w.Body.String())
				return
			}
			if tt.wantID != "" {
				require.NotNil(t, seen)
				assert.Equal(t, tt.wantID, seen.ID)
			}
		})
	}
}
