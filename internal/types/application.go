// Package types provides type definitions for structured data used throughout the exam automation system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import (
	"time"

	"github.com/google/uuid"
)

// ApplicationStatus is the lifecycle state of an automation application.
type ApplicationStatus string

// Application lifecycle states
const (
	StatusPending   ApplicationStatus = "pending"
	StatusApproved  ApplicationStatus = "approved"
	StatusRunning   ApplicationStatus = "running"
	StatusCompleted ApplicationStatus = "completed"
	StatusFailed    ApplicationStatus = "failed"
)

// AllStatuses lists every valid status in lifecycle order.
var AllStatuses = []ApplicationStatus{
	StatusPending,
	StatusApproved,
	StatusRunning,
	StatusCompleted,
	StatusFailed,
}

// ActiveStatuses are the non-terminal states. At most one application per
// (user, exam) may be in one of these at a time.
var ActiveStatuses = []ApplicationStatus{
	StatusPending,
	StatusApproved,
	StatusRunning,
}

// updateTransitions lists the status changes UpdateApplication may make.
// pending -> approved is absent: it only happens through approval,
// which records who approved and when.
var updateTransitions = map[ApplicationStatus][]ApplicationStatus{
	StatusPending:   {StatusFailed},
	StatusApproved:  {StatusRunning, StatusFailed},
	StatusRunning:   {StatusCompleted, StatusFailed},
	StatusCompleted: {},
	StatusFailed:    {},
}

// ParseStatus converts a string to an ApplicationStatus.
// The second return value is false if the string is not one of the five states.
func ParseStatus(s string) (ApplicationStatus, bool) {
	for _, st := range AllStatuses {
		if string(st) == s {
			return st, true
		}
	}
	return "", false
}

// IsValid reports whether s is one of the enumerated states.
func (s ApplicationStatus) IsValid() bool {
	_, ok := updateTransitions[s]
	return ok
}

// IsTerminal reports whether s is completed or failed.
func (s ApplicationStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanUpdateTo reports whether an update may move an application from s to next.
// Re-stating the current status is always allowed so that session id or notes
// can be updated on their own.
func (s ApplicationStatus) CanUpdateTo(next ApplicationStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range updateTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Application is one user's request to have an exam's registration form auto-filled.
type Application struct {
	ID           uuid.UUID         `json:"id"`
	UserID       uuid.UUID         `json:"user_id"`
	ExamConfigID uuid.UUID         `json:"exam_config_id"`
	Status       ApplicationStatus `json:"status"`
	SessionID    *string           `json:"session_id,omitempty"`
	ApprovedBy   *uuid.UUID        `json:"approved_by,omitempty"`
	ApprovedAt   *time.Time        `json:"approved_at,omitempty"`
	AdminNotes   *string           `json:"admin_notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// ApplicationDetail is an Application joined with user and exam display fields,
// as shown in admin listings.
type ApplicationDetail struct {
	Application
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
	ExamName  string `json:"exam_name"`
	ExamSlug  string `json:"exam_slug"`
}

// ApplicationFilter narrows application listings.
// A zero Limit means no limit.
type ApplicationFilter struct {
	UserID *uuid.UUID
	Status *ApplicationStatus
	Limit  int
	Offset int
}

// ApplicationPage is one page of an admin application listing.
type ApplicationPage struct {
	Applications []ApplicationDetail `json:"applications"`
	Total        int                 `json:"total"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
}
