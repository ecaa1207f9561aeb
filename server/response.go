package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/cyp0633/libgitdoc/storage"
)

// maxBodySize bounds request bodies; calendars are the largest payload.
const maxBodySize = 8 << 20

// HTTPError represents an HTTP error with status code and message
type HTTPError struct {
	Status  int
	Message string
	Kind    storage.ErrorType
	Err     error
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error
func (e *HTTPError) Unwrap() error {
	return e.Err
}

var errMethodNotAllowed = &HTTPError{Status: http.StatusMethodNotAllowed, Message: "Method not allowed"}

// errorResponse is the body of every failed request
type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Kind    storage.ErrorType `json:"kind,omitempty"`
}

// statusFor maps an error kind to the HTTP status reported for it
func statusFor(kind storage.ErrorType) int {
	switch kind {
	case storage.ErrTypeValidation:
		return http.StatusBadRequest
	case storage.ErrTypeNotFound:
		return http.StatusNotFound
	case storage.ErrTypeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}

// toHTTPError classifies err unless it already is an *HTTPError
func toHTTPError(err error) *HTTPError {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	kind := storage.KindOf(err)
	return &HTTPError{Status: statusFor(kind), Message: err.Error(), Kind: kind, Err: err}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set(headerContentType, mimeTypeJSON)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(data)))
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, err error) {
	httpErr := toHTTPError(err)
	writeJSON(w, httpErr.Status, errorResponse{
		Success: false,
		Error:   httpErr.Message,
		Kind:    httpErr.Kind,
	})
}

// sendError logs and writes err
func (s *Server) sendError(w http.ResponseWriter, r *http.Request, err error) {
	httpErr := toHTTPError(err)
	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", httpErr.Status,
		"error", err,
	}
	if httpErr.Status >= http.StatusInternalServerError {
		s.logger.Error("request failed", attrs...)
	} else {
		s.logger.Warn("request rejected", attrs...)
	}
	writeError(w, httpErr)
}

// decodeBody reads a JSON request body into v. An empty body leaves v as is.
func decodeBody(r *http.Request, v any) error {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
	if err != nil {
		return &HTTPError{Status: http.StatusBadRequest, Message: "Failed to read request body", Kind: storage.ErrTypeValidation, Err: err}
	}
	if len(body) > maxBodySize {
		return &HTTPError{Status: http.StatusRequestEntityTooLarge, Message: "Request body too large", Kind: storage.ErrTypeValidation}
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &HTTPError{Status: http.StatusBadRequest, Message: "Invalid JSON body", Kind: storage.ErrTypeValidation, Err: err}
	}
	return nil
}
