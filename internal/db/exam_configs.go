package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jonathan/exam-automation/internal/types"
)

// -----------------------------------------------------------------------------
// Exam Configuration Methods
// -----------------------------------------------------------------------------

const examConfigColumns = `id, slug, name, url, is_active, field_mappings, agent_config,
	notify_on_complete, notify_on_failure, notification_emails, created_at, updated_at`

// scanExamConfig scans one row selected with examConfigColumns
func scanExamConfig(row pgx.Row) (*types.ExamConfig, error) {
	var e types.ExamConfig
	var mappings, agentConfig []byte
	err := row.Scan(&e.ID, &e.Slug, &e.Name, &e.URL, &e.IsActive, &mappings, &agentConfig,
		&e.NotifyOnComplete, &e.NotifyOnFailure, &e.NotificationEmails, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}

	e.FieldMappings = map[string]string{}
	if len(mappings) > 0 {
		if err := json.Unmarshal(mappings, &e.FieldMappings); err != nil {
			return nil, fmt.Errorf("failed to decode field mappings: %w", err)
		}
	}
	e.AgentConfig = types.DefaultAgentConfig()
	if len(agentConfig) > 0 {
		if err := json.Unmarshal(agentConfig, &e.AgentConfig); err != nil {
			return nil, fmt.Errorf("failed to decode agent config: %w", err)
		}
	}
	e.AgentConfig.Normalize()
	if e.NotificationEmails == nil {
		e.NotificationEmails = []string{}
	}
	return &e, nil
}

// ListExamConfigs retrieves exam configurations ordered by name, optionally only active ones
func (db *DB) ListExamConfigs(ctx context.Context, activeOnly bool) ([]types.ExamConfig, error) {
	query := `SELECT ` + examConfigColumns + ` FROM exam_configs`
	if activeOnly {
		query += ` WHERE is_active`
	}
	query += ` ORDER BY name, slug`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list exam configs: %w", err)
	}
	defer rows.Close()

	configs := []types.ExamConfig{}
	for rows.Next() {
		e, err := scanExamConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exam config: %w", err)
		}
		configs = append(configs, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list exam configs: %w", err)
	}
	return configs, nil
}

// GetExamConfig retrieves an exam configuration by ID. Returns nil, nil if not found.
func (db *DB) GetExamConfig(ctx context.Context, id uuid.UUID) (*types.ExamConfig, error) {
	e, err := scanExamConfig(db.pool.QueryRow(ctx,
		`SELECT `+examConfigColumns+` FROM exam_configs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exam config: %w", err)
	}
	return e, nil
}

// GetExamConfigBySlug retrieves an exam configuration by slug. Returns nil, nil if not found.
func (db *DB) GetExamConfigBySlug(ctx context.Context, slug string) (*types.ExamConfig, error) {
	e, err := scanExamConfig(db.pool.QueryRow(ctx,
		`SELECT `+examConfigColumns+` FROM exam_configs WHERE slug = $1`, slug))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get exam config by slug: %w", err)
	}
	return e, nil
}

// CreateExamConfig inserts a new exam configuration.
// Returns ErrDuplicateSlug if the slug is taken.
func (db *DB) CreateExamConfig(ctx context.Context, in *types.ExamConfig) (*types.ExamConfig, error) {
	mappings := in.FieldMappings
	if mappings == nil {
		mappings = map[string]string{}
	}
	mappingsJSON, err := json.Marshal(mappings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal field mappings: %w", err)
	}

	agentConfig := in.AgentConfig
	agentConfig.Normalize()
	agentJSON, err := json.Marshal(agentConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal agent config: %w", err)
	}

	emails := in.NotificationEmails
	if emails == nil {
		emails = []string{}
	}

	e, err := scanExamConfig(db.pool.QueryRow(ctx,
		`INSERT INTO exam_configs (slug, name, url, is_active, field_mappings, agent_config,
		                           notify_on_complete, notify_on_failure, notification_emails)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING `+examConfigColumns,
		in.Slug, in.Name, in.URL, in.IsActive, mappingsJSON, agentJSON,
		in.NotifyOnComplete, in.NotifyOnFailure, emails,
	))
	if err != nil {
		if tErr := translateConstraintError(err); tErr != err {
			return nil, tErr
		}
		return nil, fmt.Errorf("failed to create exam config: %w", err)
	}
	return e, nil
}

// UpdateExamConfig applies a partial update to an exam configuration.
//
// The row is locked for the duration of the update so that a slug change can
// be checked against referencing applications: the slug of a configuration
// that any application references is immutable (ErrSlugInUse). A slug that
// collides with another configuration fails with ErrDuplicateSlug.
func (db *DB) UpdateExamConfig(ctx context.Context, id uuid.UUID, patch ExamConfigPatch) (*types.ExamConfig, error) {
	if patch.IsEmpty() {
		return nil, ErrEmptyPatch
	}
	u, err := patch.update()
	if err != nil {
		return nil, err
	}

	var updated *types.ExamConfig
	err = db.withTx(ctx, func(tx pgx.Tx) error {
		var currentSlug string
		err := tx.QueryRow(ctx,
			`SELECT slug FROM exam_configs WHERE id = $1 FOR UPDATE`, id,
		).Scan(&currentSlug)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrExamConfigNotFound
			}
			return fmt.Errorf("failed to lock exam config: %w", err)
		}

		if patch.Slug != nil && *patch.Slug != currentSlug {
			var referenced bool
			if err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM applications WHERE exam_config_id = $1)`, id,
			).Scan(&referenced); err != nil {
				return fmt.Errorf("failed to check exam config references: %w", err)
			}
			if referenced {
				return ErrSlugInUse
			}
		}

		query, args := u.build(id, examConfigColumns)
		updated, err = scanExamConfig(tx.QueryRow(ctx, query, args...))
		if err != nil {
			if tErr := translateConstraintError(err); tErr != err {
				return tErr
			}
			return fmt.Errorf("failed to update exam config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteExamConfig removes an exam configuration.
// Returns ErrExamConfigInUse while any application references it and
// ErrExamConfigNotFound if it does not exist.
func (db *DB) DeleteExamConfig(ctx context.Context, id uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM exam_configs WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return ErrExamConfigInUse
		}
		return fmt.Errorf("failed to delete exam config: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrExamConfigNotFound
	}
	return nil
}
