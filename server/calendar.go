package server

import (
	"net/http"

	"github.com/samber/mo"
)

type calendarResponse struct {
	Success bool   `json:"success"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
}

type saveCalendarRequest struct {
	File    string `json:"file"`
	Content string `json:"content"`
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

type saveCalendarResponse struct {
	Success bool   `json:"success"`
	SHA     string `json:"sha"`
	Message string `json:"message"`
}

// handleGetCalendar returns the calendar named by ?file=, creating it on first
// access.
func (s *Server) handleGetCalendar(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("file")
	s.logger.Debug("handling calendar GET", "file", name)

	cal, err := s.calendars.Get(r.Context(), name)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, calendarResponse{Success: true, Content: cal.Text, SHA: cal.Version})
}

// handleSaveCalendar stores the posted calendar text. The name comes from the
// body, falling back to ?file=.
func (s *Server) handleSaveCalendar(w http.ResponseWriter, r *http.Request) {
	var req saveCalendarRequest
	if err := decodeBody(r, &req); err != nil {
		s.sendError(w, r, err)
		return
	}
	name := req.File
	if name == "" {
		name = r.URL.Query().Get("file")
	}
	s.logger.Debug("handling calendar POST", "file", name, "has_sha", req.SHA != "")

	version, err := s.calendars.Save(r.Context(), name, req.Content, optional(req.SHA), optional(req.Message))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, saveCalendarResponse{
		Success: true,
		SHA:     version,
		Message: "Calendar saved successfully",
	})
}

// optional treats the empty string as an omitted value
func optional(v string) mo.Option[string] {
	if v == "" {
		return mo.None[string]()
	}
	return mo.Some(v)
}
