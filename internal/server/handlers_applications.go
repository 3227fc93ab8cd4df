package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/types"
)

// applicationQuery reads ?status=&limit=&offset=.
func (s *Server) applicationQuery(w http.ResponseWriter, r *http.Request) (orchestration.ApplicationQuery, bool) {
	q := orchestration.ApplicationQuery{Status: r.URL.Query().Get("status")}
	for key, dst := range map[string]*int{"limit": &q.Limit, "offset": &q.Offset} {
		raw := r.URL.Query().Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, r, &ErrBadRequest{Message: "invalid " + key + ": " + raw})
			return q, false
		}
		*dst = n
	}
	return q, true
}

// Admin surface

func (s *Server) handleListApplications(w http.ResponseWriter, r *http.Request) {
	q, ok := s.applicationQuery(w, r)
	if !ok {
		return
	}
	page, err := s.service.ListApplications(r.Context(), q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, page)
}

func (s *Server) handleGetApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	app, err := s.service.GetApplication(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

// handleCreateApplication creates a pending application for any user
func (s *Server) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	var req types.CreateApplicationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	app, err := s.service.CreateApplication(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

func (s *Server) handleApproveApplication(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	app, err := s.service.ApproveApplication(r.Context(), id, caller.UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func (s *Server) handleUpdateApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req types.UpdateApplicationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	app, err := s.service.UpdateApplication(r.Context(), id, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

func (s *Server) handleDeleteApplication(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteApplication(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Self-service surface. Every handler acts on the caller's own applications.

func (s *Server) handleListOwnApplications(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	q, ok := s.applicationQuery(w, r)
	if !ok {
		return
	}
	apps, err := s.service.ListOwnApplications(r.Context(), caller.UserID, q)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"applications": apps, "total": len(apps)})
}

// handleCreateOwnApplication creates an auto-approved application for the caller
func (s *Server) handleCreateOwnApplication(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	var req types.CreateOwnApplicationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	app, err := s.service.CreateOwnApplication(r.Context(), caller.UserID, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, app)
}

func (s *Server) handleGetOwnApplication(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	app, err := s.service.GetOwnApplication(r.Context(), caller.UserID, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}

// handleUpdateOwnApplication lets the owner (or the agent acting for them)
// report status and session id
func (s *Server) handleUpdateOwnApplication(w http.ResponseWriter, r *http.Request) {
	caller, ok := s.principal(w, r)
	if !ok {
		return
	}
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	var req types.UpdateOwnApplicationRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	app, err := s.service.UpdateOwnApplication(r.Context(), caller.UserID, id, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, app)
}
