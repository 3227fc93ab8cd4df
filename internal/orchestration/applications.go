package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/types"
)

// ApplicationQuery filters application listings. Status is the raw query value.
type ApplicationQuery struct {
	Status string
	Limit  int
	Offset int
}

func (q ApplicationQuery) filter() (types.ApplicationFilter, error) {
	var f types.ApplicationFilter
	if q.Status != "" {
		status, err := parseStatus(q.Status)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}
	if q.Limit < 0 {
		return f, &ErrValidation{Field: "limit", Message: "must not be negative"}
	}
	if q.Offset < 0 {
		return f, &ErrValidation{Field: "offset", Message: "must not be negative"}
	}
	f.Limit = q.Limit
	f.Offset = q.Offset
	return f, nil
}

// translateCreateError maps store errors from CreateApplication. unknownExam
// builds the not-found error appropriate for the calling surface.
func translateCreateError(err error, userID, examID uuid.UUID, unknownExam func() error) error {
	switch {
	case errors.Is(err, db.ErrActiveApplicationExists):
		return &ErrActiveApplicationExists{UserID: userID, ExamConfigID: examID}
	case errors.Is(err, db.ErrExamConfigNotFound):
		return unknownExam()
	case errors.Is(err, db.ErrUserNotFound):
		return &ErrUnknownUser{UserID: userID}
	}
	return fmt.Errorf("failed to create application: %w", err)
}

// CreateApplication creates a pending application on behalf of a user (admin path).
// The duplicate check and the insert are a single atomic store operation.
func (s *Service) CreateApplication(ctx context.Context, req *types.CreateApplicationRequest) (*types.Application, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	app, err := s.store.CreateApplication(ctx, db.ApplicationInput{
		UserID:       req.UserID,
		ExamConfigID: req.ExamConfigID,
		Status:       types.StatusPending,
		AdminNotes:   req.AdminNotes,
	})
	if err != nil {
		return nil, translateCreateError(err, req.UserID, req.ExamConfigID, func() error {
			return &ErrUnknownExam{ExamConfigID: req.ExamConfigID}
		})
	}
	return app, nil
}

// CreateOwnApplication creates an application for the caller (self-service path).
// It is approved immediately; the exam must exist and be active.
func (s *Service) CreateOwnApplication(ctx context.Context, userID uuid.UUID, req *types.CreateOwnApplicationRequest) (*types.Application, error) {
	if err := req.Validate(); err != nil {
		return nil, validationError(err)
	}

	note := AutoApprovalNote
	app, err := s.store.CreateApplication(ctx, db.ApplicationInput{
		UserID:            userID,
		ExamConfigID:      req.ExamConfigID,
		Status:            types.StatusApproved,
		AdminNotes:        &note,
		RequireActiveExam: true,
	})
	if err != nil {
		return nil, translateCreateError(err, userID, req.ExamConfigID, func() error {
			return &ErrExamNotFound{ExamConfigID: req.ExamConfigID}
		})
	}
	return app, nil
}

// ApproveApplication moves a pending application to approved and records the approver.
// Any other current status fails with ErrNotPending, including approved.
func (s *Service) ApproveApplication(ctx context.Context, id, adminID uuid.UUID) (*types.Application, error) {
	app, err := s.store.UpdateApplication(ctx, id, func(current *types.Application) (db.ApplicationPatch, error) {
		if current.Status != types.StatusPending {
			return db.ApplicationPatch{}, &ErrNotPending{ApplicationID: id, Status: current.Status}
		}
		approved := types.StatusApproved
		now := s.now().UTC()
		return db.ApplicationPatch{
			Status:     &approved,
			ApprovedBy: &adminID,
			ApprovedAt: &now,
		}, nil
	})
	if err != nil {
		return nil, s.translateUpdateError(err, id)
	}
	return app, nil
}

// UpdateApplication changes status, session and notes of any application (admin path).
func (s *Service) UpdateApplication(ctx context.Context, id uuid.UUID, req *types.UpdateApplicationRequest) (*types.Application, error) {
	return s.updateApplication(ctx, id, uuid.Nil, req.Status, req.SessionID, req.AdminNotes)
}

// UpdateOwnApplication changes status and session of the caller's own application.
// Another user's application is reported with ErrNotOwner.
func (s *Service) UpdateOwnApplication(ctx context.Context, userID, id uuid.UUID, req *types.UpdateOwnApplicationRequest) (*types.Application, error) {
	return s.updateApplication(ctx, id, userID, req.Status, req.SessionID, nil)
}

// updateApplication validates the requested status against the transition
// table inside the store's locked update. A non-nil owner restricts the
// update to that user's applications.
func (s *Service) updateApplication(ctx context.Context, id, owner uuid.UUID, rawStatus, sessionID, notes *string) (*types.Application, error) {
	if rawStatus == nil && sessionID == nil && notes == nil {
		return nil, &ErrValidation{Field: "body", Message: "no fields to update"}
	}

	var next *types.ApplicationStatus
	if rawStatus != nil {
		status, err := parseStatus(*rawStatus)
		if err != nil {
			return nil, err
		}
		next = &status
	}

	var previous types.ApplicationStatus
	app, err := s.store.UpdateApplication(ctx, id, func(current *types.Application) (db.ApplicationPatch, error) {
		if owner != uuid.Nil && current.UserID != owner {
			return db.ApplicationPatch{}, &ErrNotOwner{ApplicationID: id, UserID: owner}
		}
		previous = current.Status
		if next != nil && !current.Status.CanUpdateTo(*next) {
			return db.ApplicationPatch{}, &ErrInvalidTransition{From: current.Status, To: *next}
		}
		return db.ApplicationPatch{
			Status:     next,
			SessionID:  sessionID,
			AdminNotes: notes,
		}, nil
	})
	if err != nil {
		return nil, s.translateUpdateError(err, id)
	}

	if app.Status != previous && app.Status.IsTerminal() {
		s.notifyIfRequested(ctx, app)
	}
	return app, nil
}

func (s *Service) translateUpdateError(err error, id uuid.UUID) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	if errors.Is(err, db.ErrApplicationNotFound) {
		return &ErrApplicationNotFound{ApplicationID: id}
	}
	return fmt.Errorf("failed to update application: %w", err)
}

// DeleteApplication removes an application in any state (admin path).
func (s *Service) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	if err := s.store.DeleteApplication(ctx, id); err != nil {
		if errors.Is(err, db.ErrApplicationNotFound) {
			return &ErrApplicationNotFound{ApplicationID: id}
		}
		return fmt.Errorf("failed to delete application: %w", err)
	}
	return nil
}

// GetApplication returns any application with user and exam display fields (admin path).
func (s *Service) GetApplication(ctx context.Context, id uuid.UUID) (*types.ApplicationDetail, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	if app == nil {
		return nil, &ErrApplicationNotFound{ApplicationID: id}
	}
	return app, nil
}

// GetOwnApplication returns one of the caller's applications.
func (s *Service) GetOwnApplication(ctx context.Context, userID, id uuid.UUID) (*types.ApplicationDetail, error) {
	app, err := s.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != userID {
		return nil, &ErrNotOwner{ApplicationID: id, UserID: userID}
	}
	return app, nil
}

// ListApplications returns a page of all applications, newest first (admin path).
// Limit defaults to DefaultListLimit and is capped at MaxListLimit.
func (s *Service) ListApplications(ctx context.Context, q ApplicationQuery) (*types.ApplicationPage, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	if f.Limit == 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}

	apps, total, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return &types.ApplicationPage{
		Applications: apps,
		Total:        total,
		Limit:        f.Limit,
		Offset:       f.Offset,
	}, nil
}

// ListOwnApplications returns the caller's applications, newest first.
// Unpaginated unless the query sets a limit.
func (s *Service) ListOwnApplications(ctx context.Context, userID uuid.UUID, q ApplicationQuery) ([]types.ApplicationDetail, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}
	f.UserID = &userID

	apps, _, err := s.store.ListApplications(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}
	return apps, nil
}
