// Package orchestration enforces the exam automation application lifecycle:
// the one-active-application rule, approval, status transitions and the
// exam configuration contract, on top of a Store.
package orchestration

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jonathan/exam-automation/internal/db"
	"github.com/jonathan/exam-automation/internal/types"
)

// Pagination limits for the admin application listing.
const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

// AutoApprovalNote is stored in admin_notes of self-service applications.
const AutoApprovalNote = "Auto-approved: self-service request"

// Store is the persistence the service needs. *db.DB implements it.
type Store interface {
	ListExamConfigs(ctx context.Context, activeOnly bool) ([]types.ExamConfig, error)
	GetExamConfig(ctx context.Context, id uuid.UUID) (*types.ExamConfig, error)
	GetExamConfigBySlug(ctx context.Context, slug string) (*types.ExamConfig, error)
	CreateExamConfig(ctx context.Context, in *types.ExamConfig) (*types.ExamConfig, error)
	UpdateExamConfig(ctx context.Context, id uuid.UUID, patch db.ExamConfigPatch) (*types.ExamConfig, error)
	DeleteExamConfig(ctx context.Context, id uuid.UUID) error

	CreateApplication(ctx context.Context, in db.ApplicationInput) (*types.Application, error)
	GetApplication(ctx context.Context, id uuid.UUID) (*types.ApplicationDetail, error)
	ListApplications(ctx context.Context, filter types.ApplicationFilter) ([]types.ApplicationDetail, int, error)
	UpdateApplication(ctx context.Context, id uuid.UUID, mutate db.ApplicationMutator) (*types.Application, error)
	DeleteApplication(ctx context.Context, id uuid.UUID) error
}

// Notifier receives completion and failure events for exams that ask for them.
type Notifier interface {
	Notify(ctx context.Context, event types.ApplicationEvent) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, types.ApplicationEvent) error { return nil }

// Service provides the admin and self-service operations.
type Service struct {
	store    Store
	notifier Notifier
	now      func() time.Time
}

// NewService creates a Service. A nil notifier disables notifications.
func NewService(store Store, notifier Notifier) *Service {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &Service{
		store:    store,
		notifier: notifier,
		now:      time.Now,
	}
}

// validationError converts validator errors into an ErrValidation naming the first bad field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return &ErrValidation{
			Field:   strings.ToLower(fe.Field()),
			Message: "failed '" + fe.Tag() + "' validation",
		}
	}
	return &ErrValidation{Field: "body", Message: err.Error()}
}

func parseStatus(raw string) (types.ApplicationStatus, error) {
	status, ok := types.ParseStatus(raw)
	if !ok {
		return "", &ErrInvalidStatus{Value: raw}
	}
	return status, nil
}

func (s *Service) notifyIfRequested(ctx context.Context, app *types.Application) {
	exam, err := s.store.GetExamConfig(ctx, app.ExamConfigID)
	if err != nil {
		log.Printf("[orchestration] Failed to load exam %s for notification: %v", app.ExamConfigID, err)
		return
	}
	if exam == nil || !exam.ShouldNotify(app.Status) {
		return
	}

	event := types.ApplicationEvent{
		ApplicationID: app.ID,
		UserID:        app.UserID,
		ExamConfigID:  exam.ID,
		ExamSlug:      exam.Slug,
		ExamName:      exam.Name,
		Status:        app.Status,
		SessionID:     app.SessionID,
		Recipients:    exam.NotificationEmails,
		OccurredAt:    s.now().UTC(),
	}
	if err := s.notifier.Notify(ctx, event); err != nil {
		log.Printf("[orchestration] Notification for application %s (%s) failed: %v", app.ID, app.Status, err)
	}
}
