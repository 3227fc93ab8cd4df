package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CreateExamConfigRequest is the admin payload for a new exam configuration.
// A nil AgentConfig gets DefaultAgentConfig; a nil IsActive means active.
type CreateExamConfigRequest struct {
	Slug               string            `json:"slug" yaml:"slug" validate:"required,min=1,max=100"`
	Name               string            `json:"name" yaml:"name" validate:"required,min=1"`
	URL                string            `json:"url" yaml:"url" validate:"required,url"`
	IsActive           *bool             `json:"is_active,omitempty" yaml:"is_active,omitempty"`
	FieldMappings      map[string]string `json:"field_mappings,omitempty" yaml:"field_mappings,omitempty"`
	AgentConfig        *AgentConfig      `json:"agent_config,omitempty" yaml:"agent_config,omitempty"`
	NotifyOnComplete   bool              `json:"notify_on_complete" yaml:"notify_on_complete"`
	NotifyOnFailure    bool              `json:"notify_on_failure" yaml:"notify_on_failure"`
	NotificationEmails []string          `json:"notification_emails,omitempty" yaml:"notification_emails,omitempty" validate:"dive,email"`
}

// UpdateExamConfigRequest is a partial update; nil fields are left unchanged.
type UpdateExamConfigRequest struct {
	Slug               *string            `json:"slug,omitempty" validate:"omitempty,min=1,max=100"`
	Name               *string            `json:"name,omitempty" validate:"omitempty,min=1"`
	URL                *string            `json:"url,omitempty" validate:"omitempty,url"`
	IsActive           *bool              `json:"is_active,omitempty"`
	FieldMappings      *map[string]string `json:"field_mappings,omitempty"`
	AgentConfig        *AgentConfig       `json:"agent_config,omitempty"`
	NotifyOnComplete   *bool              `json:"notify_on_complete,omitempty"`
	NotifyOnFailure    *bool              `json:"notify_on_failure,omitempty"`
	NotificationEmails *[]string          `json:"notification_emails,omitempty" validate:"omitempty,dive,email"`
}

// CreateApplicationRequest is the admin payload for creating an application on behalf of a user.
type CreateApplicationRequest struct {
	UserID       uuid.UUID `json:"user_id" validate:"required"`
	ExamConfigID uuid.UUID `json:"exam_id" validate:"required"`
	AdminNotes   *string   `json:"admin_notes,omitempty"`
}

// CreateOwnApplicationRequest is the self-service payload; the user is the caller.
type CreateOwnApplicationRequest struct {
	ExamConfigID uuid.UUID `json:"exam_id" validate:"required"`
}

// UpdateApplicationRequest is the admin status/session/notes update.
// Status is kept as a raw string so an unknown value can be reported as such.
type UpdateApplicationRequest struct {
	Status     *string `json:"status,omitempty"`
	SessionID  *string `json:"session_id,omitempty"`
	AdminNotes *string `json:"admin_notes,omitempty"`
}

// UpdateOwnApplicationRequest is the owner's status/session update. It has no notes field.
type UpdateOwnApplicationRequest struct {
	Status    *string `json:"status,omitempty"`
	SessionID *string `json:"session_id,omitempty"`
}

// ApplicationEvent describes an application reaching a state that may trigger a notification.
type ApplicationEvent struct {
	ApplicationID uuid.UUID         `json:"application_id"`
	UserID        uuid.UUID         `json:"user_id"`
	ExamConfigID  uuid.UUID         `json:"exam_config_id"`
	ExamSlug      string            `json:"exam_slug"`
	ExamName      string            `json:"exam_name"`
	Status        ApplicationStatus `json:"status"`
	SessionID     *string           `json:"session_id,omitempty"`
	Recipients    []string          `json:"recipients"`
	OccurredAt    time.Time         `json:"occurred_at"`
}

// Validate validates the CreateExamConfigRequest using the validator.
func (r *CreateExamConfigRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the UpdateExamConfigRequest using the validator.
func (r *UpdateExamConfigRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateApplicationRequest using the validator.
func (r *CreateApplicationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// Validate validates the CreateOwnApplicationRequest using the validator.
func (r *CreateOwnApplicationRequest) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}
