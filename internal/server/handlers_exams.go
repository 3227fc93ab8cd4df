package server

import (
	"net/http"
	"strconv"

	"github.com/jonathan/exam-automation/internal/schemas"
	"github.com/jonathan/exam-automation/internal/types"
)

// handleListActiveExams lists the exam configurations students can apply to
func (s *Server) handleListActiveExams(w http.ResponseWriter, r *http.Request) {
	exams, err := s.service.ListExamConfigs(r.Context(), true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"exams": exams, "total": len(exams)})
}

// handleGetActiveExam returns an active exam configuration, including the
// field mappings and agent configuration the automation agent runs with
func (s *Server) handleGetActiveExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	exam, err := s.service.GetActiveExamConfig(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, exam)
}

// handleListExams lists exam configurations; ?active=true|false filters by state
func (s *Server) handleListExams(w http.ResponseWriter, r *http.Request) {
	var active *bool
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			s.writeError(w, r, &ErrBadRequest{Message: "invalid active filter: " + raw})
			return
		}
		active = &v
	}

	exams, err := s.service.ListExamConfigs(r.Context(), active != nil && *active)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if active != nil && !*active {
		inactive := make([]types.ExamConfig, 0, len(exams))
		for _, e := range exams {
			if !e.IsActive {
				inactive = append(inactive, e)
			}
		}
		exams = inactive
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"exams": exams, "total": len(exams)})
}

func (s *Server) handleGetExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	exam, err := s.service.GetExamConfig(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, exam)
}

// handleCreateExam validates the payload against the exam configuration
// schema before decoding it
func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := schemas.ValidateExamConfig(body); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.CreateExamConfigRequest
	if !s.unmarshalBody(w, r, body, &req) {
		return
	}

	exam, err := s.service.CreateExamConfig(r.Context(), &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusCreated, exam)
}

func (s *Server) handleUpdateExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if err := schemas.ValidateExamConfigPatch(body); err != nil {
		s.writeError(w, r, err)
		return
	}
	var req types.UpdateExamConfigRequest
	if !s.unmarshalBody(w, r, body, &req) {
		return
	}

	exam, err := s.service.UpdateExamConfig(r.Context(), id, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, exam)
}

// handleDeleteExam deletes an unreferenced exam configuration; referenced
// ones are rejected with 409 and should be deactivated instead
func (s *Server) handleDeleteExam(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r)
	if !ok {
		return
	}
	if err := s.service.DeleteExamConfig(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
