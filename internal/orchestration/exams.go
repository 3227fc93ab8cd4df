package orchestration

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/types"
)

// ListExamConfigs returns exam configurations, optionally only active ones.
func (s *Service) ListExamConfigs(ctx context.Context, activeOnly bool) ([]types.ExamConfig, error) {
	exams, err := s.store.ListExamConfigs(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam configs: %w", err)
	}
	return exams, nil
}

// GetExamConfig returns any exam configuration, active or not.
func (s *Service) GetExamConfig(ctx context.Context, id uuid.UUID) (*types.ExamConfig, error) {
	exam, err := s.store.GetExamConfig(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get exam config: %w", err)
	}
	if exam == nil {
		return nil, &ErrExamNotFound{ExamConfigID: id}
	}
	return exam, nil
}

// GetActiveExamConfig returns an exam configuration visible to self-service users.
// Inactive configurations are reported as not found.
func (s *Service) GetActiveExamConfig(ctx context.Context, id uuid.UUID) (*types.ExamConfig, error) {
	exam, err := s.GetExamConfig(ctx, id)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, &ErrExamNotFound{ExamConfigID: id}
	}
	return exam, nil
}

// GetExamConfigBySlug returns an exam configuration by slug, active or not.
// Returns nil, nil if no configuration has the slug.
func (s *Service) GetExamConfigBySlug(ctx context.Context, slug string) (*types.ExamConfig, error) {
	exam, err := s.store.GetExamConfigBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, fmt.Errorf("failed to get exam config: %w", err)
	}
	return exam, nil
}

// CreateExamConfig creates an exam configuration, applying the default agent
// configuration when the request omits it.
func (s *Service) CreateExamConfig(ctx context.Context, req *types.CreateExamConfigRequest) (*types.ExamConfig, error) {
	req.Slug = strings.TrimSpace(req.Slug)
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	exam := &types.ExamConfig{
		Slug:               req.Slug,
		Name:               req.Name,
		URL:                req.URL,
		IsActive:           true,
		FieldMappings:      req.FieldMappings,
		AgentConfig:        types.DefaultAgentConfig(),
		NotifyOnComplete:   req.NotifyOnComplete,
		NotifyOnFailure:    req.NotifyOnFailure,
		NotificationEmails: req.NotificationEmails,
	}
	if req.IsActive != nil {
		exam.IsActive = *req.IsActive
	}
	if req.AgentConfig != nil {
		exam.AgentConfig = *req.AgentConfig
	}

	created, err := s.store.CreateExamConfig(ctx, exam)
	if err != nil {
		if errors.Is(err, db.ErrDuplicateSlug) {
			return nil, &ErrDuplicateSlug{Slug: req.Slug}
		}
		return nil, fmt.Errorf("failed to create exam config: %w", err)
	}
	return created, nil
}

// UpdateExamConfig applies a partial update. Only supplied fields change.
func (s *Service) UpdateExamConfig(ctx context.Context, id uuid.UUID, req *types.UpdateExamConfigRequest) (*types.ExamConfig, error) {
	if req.Slug != nil {
		trimmed := strings.TrimSpace(*req.Slug)
		req.Slug = &trimmed
	}
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	patch := db.ExamConfigPatch{
		Slug:               req.Slug,
		Name:               req.Name,
		URL:                req.URL,
		IsActive:           req.IsActive,
		FieldMappings:      req.FieldMappings,
		AgentConfig:        req.AgentConfig,
		NotifyOnComplete:   req.NotifyOnComplete,
		NotifyOnFailure:    req.NotifyOnFailure,
		NotificationEmails: req.NotificationEmails,
	}
	if patch.IsEmpty() {
		return nil, &ErrValidation{Field: "body", Message: "no fields to update"}
	}

	updated, err := s.store.UpdateExamConfig(ctx, id, patch)
	if err != nil {
		switch {
		case errors.Is(err, db.ErrExamConfigNotFound):
			return nil, &ErrExamNotFound{ExamConfigID: id}
		case errors.Is(err, db.ErrDuplicateSlug):
			return nil, &ErrDuplicateSlug{Slug: *req.Slug}
		case errors.Is(err, db.ErrSlugInUse):
			return nil, &ErrSlugInUse{ExamConfigID: id}
		}
		return nil, fmt.Errorf("failed to update exam config: %w", err)
	}
	return updated, nil
}

// DeleteExamConfig removes an exam configuration that no application references.
func (s *Service) DeleteExamConfig(ctx context.Context, id uuid.UUID) error {
	err := s.store.DeleteExamConfig(ctx, id)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrExamConfigNotFound):
		return &ErrExamNotFound{ExamConfigID: id}
	case errors.Is(err, db.ErrExamConfigInUse):
		return &ErrExamInUse{ExamConfigID: id}
	}
	return fmt.Errorf("failed to delete exam config: %w", err)
}

// ImportExamConfig creates the configuration, or replaces every field of the
// existing one with the same slug. The second return value reports creation.
func (s *Service) ImportExamConfig(ctx context.Context, req *types.CreateExamConfigRequest) (*types.ExamConfig, bool, error) {
	req.Slug = strings.TrimSpace(req.Slug)
	if err := req.Validate(); err != nil {
		return nil, false, validationError(err)
	}

	existing, err := s.GetExamConfigBySlug(ctx, req.Slug)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		created, err := s.CreateExamConfig(ctx, req)
		return created, err == nil, err
	}

	agentConfig := types.DefaultAgentConfig()
	if req.AgentConfig != nil {
		agentConfig = *req.AgentConfig
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	mappings := req.FieldMappings
	emails := req.NotificationEmails
	updated, err := s.UpdateExamConfig(ctx, existing.ID, &types.UpdateExamConfigRequest{
		Name:               &req.Name,
		URL:                &req.URL,
		IsActive:           &isActive,
		FieldMappings:      &mappings,
		AgentConfig:        &agentConfig,
		NotifyOnComplete:   &req.NotifyOnComplete,
		NotifyOnFailure:    &req.NotifyOnFailure,
		NotificationEmails: &emails,
	})
	return updated, false, err
}
