package db

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/types"
)

// assignment is one "column = value" pair of an UPDATE. Column names only ever
// come from the constants in this file; values are always bound as parameters.
type assignment struct {
	column string
	value  any
}

// updateBuilder collects assignments for a single-row UPDATE by id.
type updateBuilder struct {
	table       string
	assignments []assignment
}

func newUpdate(table string) *updateBuilder {
	return &updateBuilder{table: table}
}

func (u *updateBuilder) set(column string, value any) {
	u.assignments = append(u.assignments, assignment{column: column, value: value})
}

func (u *updateBuilder) empty() bool {
	return len(u.assignments) == 0
}

// build renders "UPDATE table SET c1 = $1, ..., updated_at = NOW() WHERE id = $n RETURNING returning".
func (u *updateBuilder) build(id uuid.UUID, returning string) (string, []any) {
	sets := make([]string, 0, len(u.assignments)+1)
	args := make([]any, 0, len(u.assignments)+1)
	for i, a := range u.assignments {
		sets = append(sets, fmt.Sprintf("%s = $%d", a.column, i+1))
		args = append(args, a.value)
	}
	sets = append(sets, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d RETURNING %s",
		u.table, strings.Join(sets, ", "), len(args), returning)
	return query, args
}

// ExamConfigPatch is a partial update of an exam configuration.
// Nil fields are left unchanged.
type ExamConfigPatch struct {
	Slug               *string
	Name               *string
	URL                *string
	IsActive           *bool
	FieldMappings      *map[string]string
	AgentConfig        *types.AgentConfig
	NotifyOnComplete   *bool
	NotifyOnFailure    *bool
	NotificationEmails *[]string
}

// IsEmpty reports whether the patch changes nothing.
func (p ExamConfigPatch) IsEmpty() bool {
	return p.Slug == nil && p.Name == nil && p.URL == nil && p.IsActive == nil &&
		p.FieldMappings == nil && p.AgentConfig == nil && p.NotifyOnComplete == nil &&
		p.NotifyOnFailure == nil && p.NotificationEmails == nil
}

func (p ExamConfigPatch) update() (*updateBuilder, error) {
	u := newUpdate("exam_configs")
	if p.Slug != nil {
		u.set("slug", *p.Slug)
	}
	if p.Name != nil {
		u.set("name", *p.Name)
	}
	if p.URL != nil {
		u.set("url", *p.URL)
	}
	if p.IsActive != nil {
		u.set("is_active", *p.IsActive)
	}
	if p.FieldMappings != nil {
		mappings := *p.FieldMappings
		if mappings == nil {
			mappings = map[string]string{}
		}
		raw, err := json.Marshal(mappings)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal field mappings: %w", err)
		}
		u.set("field_mappings", raw)
	}
	if p.AgentConfig != nil {
		cfg := *p.AgentConfig
		cfg.Normalize()
		raw, err := json.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal agent config: %w", err)
		}
		u.set("agent_config", raw)
	}
	if p.NotifyOnComplete != nil {
		u.set("notify_on_complete", *p.NotifyOnComplete)
	}
	if p.NotifyOnFailure != nil {
		u.set("notify_on_failure", *p.NotifyOnFailure)
	}
	if p.NotificationEmails != nil {
		emails := *p.NotificationEmails
		if emails == nil {
			emails = []string{}
		}
		u.set("notification_emails", emails)
	}
	return u, nil
}

// ApplicationPatch is a partial update of an application.
// Nil fields are left unchanged.
type ApplicationPatch struct {
	Status     *types.ApplicationStatus
	SessionID  *string
	AdminNotes *string
	ApprovedBy *uuid.UUID
	ApprovedAt *time.Time
}

// IsEmpty reports whether the patch changes nothing.
func (p ApplicationPatch) IsEmpty() bool {
	return p.Status == nil && p.SessionID == nil && p.AdminNotes == nil &&
		p.ApprovedBy == nil && p.ApprovedAt == nil
}

func (p ApplicationPatch) update() *updateBuilder {
	u := newUpdate("applications")
	if p.Status != nil {
		u.set("status", string(*p.Status))
	}
	if p.SessionID != nil {
		u.set("session_id", *p.SessionID)
	}
	if p.AdminNotes != nil {
		u.set("admin_notes", *p.AdminNotes)
	}
	if p.ApprovedBy != nil {
		u.set("approved_by", *p.ApprovedBy)
	}
	if p.ApprovedAt != nil {
		u.set("approved_at", *p.ApprovedAt)
	}
	return u
}
