package orchestration

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/types"
)

// Kind classifies domain errors so callers can react without matching concrete types.
type Kind string

// Error kinds
const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation"
	KindUnauthorized Kind = "unauthorized"
)

// KindOf returns the kind of a domain error anywhere in err's chain.
// The second return value is false for unexpected (internal) errors.
func KindOf(err error) (Kind, bool) {
	var ke interface{ Kind() Kind }
	if errors.As(err, &ke) {
		return ke.Kind(), true
	}
	return "", false
}

// ErrActiveApplicationExists indicates the user already has a non-terminal application for the exam
type ErrActiveApplicationExists struct {
	UserID       uuid.UUID
	ExamConfigID uuid.UUID
}

func (e *ErrActiveApplicationExists) Error() string {
	return fmt.Sprintf("user %s already has an active application for exam %s", e.UserID, e.ExamConfigID)
}

// Kind implements the domain error contract.
func (e *ErrActiveApplicationExists) Kind() Kind { return KindConflict }

// ErrDuplicateSlug indicates another exam configuration already uses the slug
type ErrDuplicateSlug struct {
	Slug string
}

func (e *ErrDuplicateSlug) Error() string {
	return fmt.Sprintf("exam slug already exists: %s", e.Slug)
}

// Kind implements the domain error contract.
func (e *ErrDuplicateSlug) Kind() Kind { return KindConflict }

// ErrSlugInUse indicates a slug change on an exam that applications already reference
type ErrSlugInUse struct {
	ExamConfigID uuid.UUID
}

func (e *ErrSlugInUse) Error() string {
	return fmt.Sprintf("slug of exam %s cannot change while applications reference it", e.ExamConfigID)
}

// Kind implements the domain error contract.
func (e *ErrSlugInUse) Kind() Kind { return KindConflict }

// ErrExamInUse indicates a delete of an exam that applications reference
type ErrExamInUse struct {
	ExamConfigID uuid.UUID
}

func (e *ErrExamInUse) Error() string {
	return fmt.Sprintf("exam %s is referenced by applications; deactivate it instead", e.ExamConfigID)
}

// Kind implements the domain error contract.
func (e *ErrExamInUse) Kind() Kind { return KindConflict }

// ErrNotPending indicates an approval of an application that is not pending
type ErrNotPending struct {
	ApplicationID uuid.UUID
	Status        types.ApplicationStatus
}

func (e *ErrNotPending) Error() string {
	return fmt.Sprintf("application %s is %s, only pending applications can be approved", e.ApplicationID, e.Status)
}

// Kind implements the domain error contract.
func (e *ErrNotPending) Kind() Kind { return KindConflict }

// ErrInvalidTransition indicates a status change the lifecycle does not allow
type ErrInvalidTransition struct {
	From types.ApplicationStatus
	To   types.ApplicationStatus
}

func (e *ErrInvalidTransition) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

// Kind implements the domain error contract.
func (e *ErrInvalidTransition) Kind() Kind { return KindConflict }

// ErrInvalidStatus indicates a status value outside the five lifecycle states
type ErrInvalidStatus struct {
	Value string
}

func (e *ErrInvalidStatus) Error() string {
	return fmt.Sprintf("invalid status: %q", e.Value)
}

// Kind implements the domain error contract.
func (e *ErrInvalidStatus) Kind() Kind { return KindValidation }

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// Kind implements the domain error contract.
func (e *ErrValidation) Kind() Kind { return KindValidation }

// ErrUnknownUser indicates the referenced user does not exist
type ErrUnknownUser struct {
	UserID uuid.UUID
}

func (e *ErrUnknownUser) Error() string {
	return fmt.Sprintf("user not found: %s", e.UserID)
}

// Kind implements the domain error contract.
func (e *ErrUnknownUser) Kind() Kind { return KindNotFound }

// ErrUnknownExam indicates the exam referenced by an admin create does not exist
type ErrUnknownExam struct {
	ExamConfigID uuid.UUID
}

func (e *ErrUnknownExam) Error() string {
	return fmt.Sprintf("exam not found: %s", e.ExamConfigID)
}

// Kind implements the domain error contract.
func (e *ErrUnknownExam) Kind() Kind { return KindNotFound }

// ErrExamNotFound indicates the exam does not exist or, for self-service callers, is inactive
type ErrExamNotFound struct {
	ExamConfigID uuid.UUID
}

func (e *ErrExamNotFound) Error() string {
	return fmt.Sprintf("exam not found or not available: %s", e.ExamConfigID)
}

// Kind implements the domain error contract.
func (e *ErrExamNotFound) Kind() Kind { return KindNotFound }

// ErrApplicationNotFound indicates the application does not exist
type ErrApplicationNotFound struct {
	ApplicationID uuid.UUID
}

func (e *ErrApplicationNotFound) Error() string {
	return fmt.Sprintf("application not found: %s", e.ApplicationID)
}

// Kind implements the domain error contract.
func (e *ErrApplicationNotFound) Kind() Kind { return KindNotFound }

// ErrNotOwner indicates a self-service caller touching another user's application
type ErrNotOwner struct {
	ApplicationID uuid.UUID
	UserID        uuid.UUID
}

func (e *ErrNotOwner) Error() string {
	return fmt.Sprintf("application %s does not belong to user %s", e.ApplicationID, e.UserID)
}

// Kind implements the domain error contract.
func (e *ErrNotOwner) Kind() Kind { return KindUnauthorized }
