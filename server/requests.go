package server

import (
	"encoding/json"
	"net/http"

	"github.com/cyp0633/libgitdoc/requests"
	"github.com/cyp0633/libgitdoc/storage"
	"github.com/tidwall/gjson"
)

type listRequestsResponse struct {
	Success  bool              `json:"success"`
	Requests []requests.Record `json:"requests"`
	// SHA is null while the list has never been written
	SHA *string `json:"sha"`
}

type recordResponse struct {
	Success bool            `json:"success"`
	Request requests.Record `json:"request"`
	SHA     string          `json:"sha"`
}

type addRequestBody struct {
	Request requests.Record `json:"request"`
}

type updateRequestBody struct {
	RequestID string          `json:"requestId"`
	Updates   requests.Record `json:"updates"`
	SHA       string          `json:"sha"`
}

type deleteRequestBody struct {
	RequestID string `json:"requestId"`
	SHA       string `json:"sha"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	SHA     string `json:"sha"`
}

type replaceRequestsBody struct {
	Requests json.RawMessage `json:"requests"`
}

type replaceResponse struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	SHA     string `json:"sha"`
}

func (s *Server) handleListRequests(w http.ResponseWriter, r *http.Request) {
	records, version, err := s.requests.List(r.Context())
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	resp := listRequestsResponse{Success: true, Requests: records}
	if v, ok := version.Get(); ok {
		resp.SHA = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAddRequest(w http.ResponseWriter, r *http.Request) {
	var body addRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.sendError(w, r, err)
		return
	}

	rec, version, err := s.requests.Append(r.Context(), body.Request)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Request: rec, SHA: version})
}

func (s *Server) handleUpdateRequest(w http.ResponseWriter, r *http.Request) {
	var body updateRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.sendError(w, r, err)
		return
	}
	if body.RequestID == "" || len(body.Updates) == 0 {
		s.sendError(w, r, storage.NewValidationError("Missing requestId or updates"))
		return
	}

	rec, version, err := s.requests.Patch(r.Context(), body.RequestID, body.Updates, optional(body.SHA))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recordResponse{Success: true, Request: rec, SHA: version})
}

func (s *Server) handleDeleteRequest(w http.ResponseWriter, r *http.Request) {
	var body deleteRequestBody
	if err := decodeBody(r, &body); err != nil {
		s.sendError(w, r, err)
		return
	}

	version, err := s.requests.Remove(r.Context(), body.RequestID, optional(body.SHA))
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Success: true, SHA: version})
}

func (s *Server) handleReplaceRequests(w http.ResponseWriter, r *http.Request) {
	var body replaceRequestsBody
	if err := decodeBody(r, &body); err != nil {
		s.sendError(w, r, err)
		return
	}
	if !gjson.ValidBytes(body.Requests) || !gjson.ParseBytes(body.Requests).IsArray() {
		s.sendError(w, r, storage.NewValidationError("Invalid requests array"))
		return
	}
	records, err := requests.DecodeList(body.Requests)
	if err != nil {
		s.sendError(w, r, storage.NewValidationError("Invalid requests array: %v", err))
		return
	}

	count, version, err := s.requests.ReplaceAll(r.Context(), records)
	if err != nil {
		s.sendError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, replaceResponse{Success: true, Count: count, SHA: version})
}
