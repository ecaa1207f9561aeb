package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

type contextKey string

const (
	// PrincipalContextKey is the context key for the authenticated principal
	PrincipalContextKey contextKey = "principal"
)

// GetPrincipalFromContext retrieves the authenticated principal from the context
func GetPrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(PrincipalContextKey).(*Principal); ok {
		return p
	}
	return nil
}

// Middleware rejects requests without a valid bearer token. CORS preflight
// requests pass through unauthenticated, browsers never attach credentials
// to them.
func Middleware(authenticator Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			token, err := parseBearer(r.Header.Get("Authorization"))
			if err != nil {
				logger.Debug("rejected request", "path", r.URL.Path, "error", err)
				requestAuth(w)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				logger.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", err)
				requestAuth(w)
				return
			}

			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// requestAuth sends a 401 in the API's JSON error shape
func requestAuth(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="gitdoc"`)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   "Unauthorized",
		"kind":    string(ErrUnauthorized),
	})
}

func parseBearer(header string) (string, error) {
	if header == "" {
		return "", &Error{Type: ErrUnauthorized, Message: "missing authorization header"}
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", &Error{
			Type:    ErrInvalidCredentials,
			Message: "invalid authorization header format",
		}
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", &Error{Type: ErrInvalidCredentials, Message: "empty bearer token"}
	}
	return token, nil
}
