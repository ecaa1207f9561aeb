// Package server exposes the calendar and request-list operations as a JSON
// HTTP API.
package server

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cyp0633/libgitdoc/calendar"
	"github.com/cyp0633/libgitdoc/requests"
	"github.com/cyp0633/libgitdoc/server/auth"
)

const (
	// HTTP headers
	headerContentType  = "Content-Type"
	headerAllow        = "Allow"
	headerAllowOrigin  = "Access-Control-Allow-Origin"
	headerAllowMethods = "Access-Control-Allow-Methods"
	headerAllowHeaders = "Access-Control-Allow-Headers"

	mimeTypeJSON = "application/json; charset=utf-8"

	allowedHeaders = "Content-Type, Authorization"

	CalendarPath = "/api/calendar"
	RequestsPath = "/api/requests"
)

// Config contains configuration for the API server
type Config struct {
	// AllowedOrigin is sent as Access-Control-Allow-Origin, "*" if empty
	AllowedOrigin string

	// Authenticator guards every endpoint when set
	Authenticator auth.Authenticator

	// Logger is the slog.Logger to use for logging
	// If nil, logging is disabled
	Logger *slog.Logger
}

// Option is a function that modifies Config
type Option func(*Config)

// WithAllowedOrigin sets the CORS origin
func WithAllowedOrigin(origin string) Option {
	return func(c *Config) {
		c.AllowedOrigin = origin
	}
}

// WithAuthenticator requires bearer tokens accepted by a
func WithAuthenticator(a auth.Authenticator) Option {
	return func(c *Config) {
		c.Authenticator = a
	}
}

// WithLogger sets the logger for the server
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// Server routes API requests to the calendar and request-list services.
type Server struct {
	config    Config
	logger    *slog.Logger
	calendars *calendar.Service
	requests  *requests.Service
	handler   http.Handler
}

// endpoint dispatches one path by method
type endpoint struct {
	handlers map[string]http.HandlerFunc
	allow    string
}

// New creates a Server for the given services
func New(calendars *calendar.Service, reqs *requests.Service, opts ...Option) (*Server, error) {
	if calendars == nil {
		return nil, fmt.Errorf("calendar service is required")
	}
	if reqs == nil {
		return nil, fmt.Errorf("requests service is required")
	}

	var config Config
	for _, opt := range opts {
		opt(&config)
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.AllowedOrigin == "" {
		config.AllowedOrigin = "*"
	}

	s := &Server{
		config:    config,
		logger:    config.Logger,
		calendars: calendars,
		requests:  reqs,
	}

	mux := http.NewServeMux()
	mux.Handle(CalendarPath, s.newEndpoint(map[string]http.HandlerFunc{
		http.MethodGet:  s.handleGetCalendar,
		http.MethodPost: s.handleSaveCalendar,
	}))
	mux.Handle(RequestsPath, s.newEndpoint(map[string]http.HandlerFunc{
		http.MethodGet:    s.handleListRequests,
		http.MethodPost:   s.handleAddRequest,
		http.MethodPut:    s.handleUpdateRequest,
		http.MethodDelete: s.handleDeleteRequest,
		http.MethodPatch:  s.handleReplaceRequests,
	}))

	var h http.Handler = mux
	if config.Authenticator != nil {
		h = auth.Middleware(config.Authenticator, config.Logger)(h)
	}
	s.handler = h
	return s, nil
}

func (s *Server) newEndpoint(handlers map[string]http.HandlerFunc) *endpoint {
	methods := make([]string, 0, len(handlers)+1)
	// fixed order keeps the header stable
	for _, m := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodPatch} {
		if _, ok := handlers[m]; ok {
			methods = append(methods, m)
		}
	}
	methods = append(methods, http.MethodOptions)
	return &endpoint{handlers: handlers, allow: strings.Join(methods, ", ")}
}

// ServeHTTP implements the http.Handler interface
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("received request",
		"method", r.Method,
		"path", r.URL.Path,
		"remote_addr", r.RemoteAddr)

	w.Header().Set(headerAllowOrigin, s.config.AllowedOrigin)
	w.Header().Set(headerAllowHeaders, allowedHeaders)
	s.handler.ServeHTTP(w, r)
}

func (e *endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(headerAllowMethods, e.allow)

	if r.Method == http.MethodOptions {
		w.Header().Set(headerAllow, e.allow)
		w.WriteHeader(http.StatusOK)
		return
	}

	handler, ok := e.handlers[r.Method]
	if !ok {
		w.Header().Set(headerAllow, e.allow)
		writeError(w, errMethodNotAllowed)
		return
	}
	handler(w, r)
}
