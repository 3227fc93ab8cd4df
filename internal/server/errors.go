// Package server provides the HTTP REST API for exam automation: admin
// management of exam configurations and applications, and the self-service
// surface used by students and the automation agent.
package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/jonathan/exam-automation/internal/orchestration"
	"github.com/jonathan/exam-automation/internal/schemas"
)

// ErrEmailAlreadyExists indicates email is already registered
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates invalid login credentials
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrBadRequest indicates a request that could not be decoded or addressed
type ErrBadRequest struct {
	Message string
}

func (e *ErrBadRequest) Error() string {
	return e.Message
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	status, _ := classify(err)
	return status
}

// classify maps an error to a status code and the "error" field of the body.
func classify(err error) (int, string) {
	var (
		emailTaken  *ErrEmailAlreadyExists
		badCreds    *ErrInvalidCredentials
		badRequest  *ErrBadRequest
		schemaError *schemas.ValidationError
		notOwner    *orchestration.ErrNotOwner
	)
	switch {
	case errors.As(err, &emailTaken):
		return http.StatusConflict, string(orchestration.KindConflict)
	case errors.As(err, &badCreds):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.As(err, &badRequest), errors.As(err, &schemaError):
		return http.StatusBadRequest, string(orchestration.KindValidation)
	case errors.As(err, &notOwner):
		// Another user's application is reported as missing.
		return http.StatusNotFound, string(orchestration.KindNotFound)
	}

	kind, ok := orchestration.KindOf(err)
	if !ok {
		return http.StatusInternalServerError, "internal"
	}
	switch kind {
	case orchestration.KindNotFound:
		return http.StatusNotFound, string(kind)
	case orchestration.KindConflict:
		return http.StatusConflict, string(kind)
	case orchestration.KindValidation:
		return http.StatusBadRequest, string(kind)
	case orchestration.KindUnauthorized:
		return http.StatusForbidden, string(kind)
	}
	return http.StatusInternalServerError, "internal"
}

// errorMessage is the human-readable message for err. Internal errors are
// not echoed to clients.
func errorMessage(err error, status int) string {
	var notOwner *orchestration.ErrNotOwner
	var schemaError *schemas.ValidationError
	switch {
	case status == http.StatusInternalServerError:
		return "internal server error"
	case errors.As(err, &notOwner):
		return fmt.Sprintf("application not found: %s", notOwner.ApplicationID)
	case errors.As(err, &schemaError):
		return "invalid exam configuration: " + schemaError.Summary()
	}
	return err.Error()
}

// writeError writes {"error": kind, "message": ...} for err.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind := classify(err)
	if status == http.StatusInternalServerError {
		log.Printf("[server] %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	s.jsonResponse(w, status, map[string]string{
		"error":   kind,
		"message": errorMessage(err, status),
	})
}
