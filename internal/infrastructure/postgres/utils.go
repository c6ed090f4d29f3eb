package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// Códigos SQLSTATE que el ledger traduce a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// classifyPgError traduce errores de PostgreSQL a la taxonomía del dominio. op describe la operación.
func classifyPgError(op string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrDuplicate, pgErr.ConstraintName)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrUnknownReference, pgErr.ConstraintName)
	case codeCheckViolation:
		if pgErr.ConstraintName == "stock_entries_quantity_check" {
			return fmt.Errorf("%s: %w", op, domain.ErrInsufficientStock)
		}
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrInvalidInput, pgErr.ConstraintName)
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%s: %w (%s)", op, domain.ErrConcurrencyConflict, pgErr.Code)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
