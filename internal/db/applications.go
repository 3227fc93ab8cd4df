package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/exam-automation/internal/types"
)

// -----------------------------------------------------------------------------
// Application Methods
// -----------------------------------------------------------------------------

const applicationColumns = `id, user_id, exam_config_id, status, session_id,
	approved_by, approved_at, admin_notes, created_at, updated_at`

const applicationDetailColumns = `a.id, a.user_id, a.exam_config_id, a.status, a.session_id,
	a.approved_by, a.approved_at, a.admin_notes, a.created_at, a.updated_at,
	u.name, u.email, e.name, e.slug`

const applicationDetailFrom = `applications a
	JOIN users u ON u.id = a.user_id
	JOIN exam_configs e ON e.id = a.exam_config_id`

// ApplicationInput holds the fields of a new application.
type ApplicationInput struct {
	UserID       uuid.UUID
	ExamConfigID uuid.UUID
	Status       types.ApplicationStatus
	AdminNotes   *string
	// RequireActiveExam makes the insert fail with ErrExamConfigNotFound when
	// the exam exists but is inactive.
	RequireActiveExam bool
}

func scanApplication(row pgx.Row) (*types.Application, error) {
	var a types.Application
	var status string
	err := row.Scan(&a.ID, &a.UserID, &a.ExamConfigID, &status, &a.SessionID,
		&a.ApprovedBy, &a.ApprovedAt, &a.AdminNotes, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = types.ApplicationStatus(status)
	return &a, nil
}

func scanApplicationDetail(row pgx.Row) (*types.ApplicationDetail, error) {
	var d types.ApplicationDetail
	var status string
	err := row.Scan(&d.ID, &d.UserID, &d.ExamConfigID, &status, &d.SessionID,
		&d.ApprovedBy, &d.ApprovedAt, &d.AdminNotes, &d.CreatedAt, &d.UpdatedAt,
		&d.UserName, &d.UserEmail, &d.ExamName, &d.ExamSlug)
	if err != nil {
		return nil, err
	}
	d.Status = types.ApplicationStatus(status)
	return &d, nil
}

// CreateApplication inserts a new application in a single statement.
//
// The exam lookup and the insert are one INSERT ... SELECT, and the
// one-active-application rule is enforced by the partial unique index
// applications_one_active_idx, so two concurrent creates for the same
// (user, exam) cannot both succeed: the loser gets ErrActiveApplicationExists.
// A missing exam (or an inactive one when RequireActiveExam is set) yields
// ErrExamConfigNotFound; a missing user yields ErrUserNotFound.
func (db *DB) CreateApplication(ctx context.Context, in ApplicationInput) (*types.Application, error) {
	if !in.Status.IsValid() {
		return nil, fmt.Errorf("invalid application status %q", in.Status)
	}

	a, err := scanApplication(db.pool.QueryRow(ctx,
		`INSERT INTO applications (user_id, exam_config_id, status, admin_notes)
		 SELECT $1::uuid, e.id, $3::text, $4::text
		 FROM exam_configs e
		 WHERE e.id = $2::uuid AND (NOT $5::boolean OR e.is_active)
		 RETURNING `+applicationColumns,
		in.UserID, in.ExamConfigID, string(in.Status), in.AdminNotes, in.RequireActiveExam,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamConfigNotFound
		}
		if tErr := translateConstraintError(err); tErr != err {
			return nil, tErr
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}
	return a, nil
}

// GetApplication retrieves an application with user and exam display fields.
// Returns nil, nil if not found.
func (db *DB) GetApplication(ctx context.Context, id uuid.UUID) (*types.ApplicationDetail, error) {
	d, err := scanApplicationDetail(db.pool.QueryRow(ctx,
		`SELECT `+applicationDetailColumns+` FROM `+applicationDetailFrom+` WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return d, nil
}

// ListApplications retrieves applications newest first, with the total number
// of rows matching the filter (ignoring limit and offset).
func (db *DB) ListApplications(ctx context.Context, filter types.ApplicationFilter) ([]types.ApplicationDetail, int, error) {
	var where []string
	args := []any{}
	argNum := 1

	if filter.UserID != nil {
		where = append(where, fmt.Sprintf("a.user_id = $%d", argNum))
		args = append(args, *filter.UserID)
		argNum++
	}
	if filter.Status != nil {
		where = append(where, fmt.Sprintf("a.status = $%d", argNum))
		args = append(args, string(*filter.Status))
		argNum++
	}

	query := `SELECT ` + applicationDetailColumns + `, COUNT(*) OVER () FROM ` + applicationDetailFrom
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at DESC, a.id"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argNum)
		args = append(args, filter.Limit)
		argNum++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argNum)
		args = append(args, filter.Offset)
	}

	rows, err := db.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}
	defer rows.Close()

	apps := []types.ApplicationDetail{}
	total := 0
	for rows.Next() {
		var d types.ApplicationDetail
		var status string
		if err := rows.Scan(&d.ID, &d.UserID, &d.ExamConfigID, &status, &d.SessionID,
			&d.ApprovedBy, &d.ApprovedAt, &d.AdminNotes, &d.CreatedAt, &d.UpdatedAt,
			&d.UserName, &d.UserEmail, &d.ExamName, &d.ExamSlug, &total); err != nil {
			return nil, 0, fmt.Errorf("failed to scan application: %w", err)
		}
		d.Status = types.ApplicationStatus(status)
		apps = append(apps, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to list applications: %w", err)
	}

	// An offset past the end returns no rows and therefore no window count.
	if len(apps) == 0 && filter.Offset > 0 {
		countQuery := `SELECT COUNT(*) FROM applications a`
		if len(where) > 0 {
			countQuery += " WHERE " + strings.Join(where, " AND ")
		}
		if err := db.pool.QueryRow(ctx, countQuery, args[:len(where)]...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("failed to count applications: %w", err)
		}
	}
	return apps, total, nil
}

// ApplicationMutator inspects the locked current row and returns the patch to apply.
// Returning an error aborts the update and rolls back.
type ApplicationMutator func(current *types.Application) (ApplicationPatch, error)

// UpdateApplication locks the application row, lets mutate decide the change
// based on the current state, and applies it in the same transaction. This
// makes check-then-write transitions (approve only from pending, the update
// transition table) atomic with respect to concurrent updates.
func (db *DB) UpdateApplication(ctx context.Context, id uuid.UUID, mutate ApplicationMutator) (*types.Application, error) {
	var updated *types.Application
	err := db.withTx(ctx, func(tx pgx.Tx) error {
		current, err := scanApplication(tx.QueryRow(ctx,
			`SELECT `+applicationColumns+` FROM applications WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrApplicationNotFound
			}
			return fmt.Errorf("failed to lock application: %w", err)
		}

		patch, err := mutate(current)
		if err != nil {
			return err
		}
		if patch.IsEmpty() {
			updated = current
			return nil
		}

		query, args := patch.update().build(id, applicationColumns)
		updated, err = scanApplication(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if tErr := translateConstraintError(err); tErr != err {
				return tErr
			}
			return fmt.Errorf("failed to update application: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteApplication removes an application regardless of its status.
func (db *DB) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM applications WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete application: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrApplicationNotFound
	}
	return nil
}
