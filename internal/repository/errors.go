package repository

import (
	"errors"

	"github.com/yourorg/strategy-config/internal/apperr"

	"github.com/jackc/pgconn"
)

// Postgres SQLSTATE codes the store reacts to
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
)

// classify maps driver errors onto the apperr taxonomy. Errors that are already
// classified, or that are not Postgres errors, pass through untouched.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var (
		conflict      *apperr.ConflictError
		serialization *apperr.SerializationError
	)
	if errors.As(err, &conflict) || errors.As(err, &serialization) {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeSerializationFailure, codeDeadlockDetected:
		return &apperr.SerializationError{Err: err}
	case codeUniqueViolation, codeForeignKeyViolation, codeCheckViolation:
		return &apperr.ConflictError{
			Constraint: pgErr.ConstraintName,
			Detail:     pgErr.Detail,
			Err:        err,
		}
	}
	return err
}
