package db

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Storage-level conditions that callers translate into domain errors.
// Use errors.Is to check for them.
var (
	ErrDuplicateSlug           = errors.New("db: exam config slug already exists")
	ErrSlugInUse               = errors.New("db: exam config slug is referenced by applications")
	ErrExamConfigInUse         = errors.New("db: exam config is referenced by applications")
	ErrExamConfigNotFound      = errors.New("db: exam config not found")
	ErrActiveApplicationExists = errors.New("db: active application already exists for user and exam")
	ErrApplicationNotFound     = errors.New("db: application not found")
	ErrUserNotFound            = errors.New("db: user not found")
	ErrEmailAlreadyExists      = errors.New("db: email already registered")
	ErrEmptyPatch              = errors.New("db: patch has no fields")
)

// PostgreSQL SQLSTATE codes we translate.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Constraint names from migrations/001_initial.up.sql.
const (
	constraintExamSlug   = "exam_configs_slug_key"
	constraintOneActive  = "applications_one_active_idx"
	constraintUserEmail  = "users_email_key"
	constraintAppUser    = "applications_user_id_fkey"
	constraintAppExam    = "applications_exam_config_id_fkey"
	constraintApprovedBy = "applications_approved_by_fkey"
)

// translateConstraintError maps unique and foreign-key violations raised by
// inserts and updates on known constraints to sentinel errors. Other errors
// are returned unchanged.
func translateConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		switch pgErr.ConstraintName {
		case constraintExamSlug:
			return ErrDuplicateSlug
		case constraintOneActive:
			return ErrActiveApplicationExists
		case constraintUserEmail:
			return ErrEmailAlreadyExists
		}
	case pgForeignKeyViolation:
		switch pgErr.ConstraintName {
		case constraintAppUser, constraintApprovedBy:
			return ErrUserNotFound
		case constraintAppExam:
			return ErrExamConfigNotFound
		}
	}
	return err
}

// isForeignKeyViolation reports whether err is a foreign-key violation.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation
}
