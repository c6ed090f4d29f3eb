package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

func TestClassifyPgError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"fk", &pgconn.PgError{Code: codeForeignKeyViolation}, domain.ErrUnknownReference},
		{"unique", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "stock_movements_idempotency_key_key"}, domain.ErrDuplicate},
		{"check cantidad", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "stock_entries_quantity_check"}, domain.ErrInsufficientStock},
		{"check forma", &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "stock_movements_shape_check"}, domain.ErrInvalidInput},
		{"serialización", &pgconn.PgError{Code: codeSerializationFailure}, domain.ErrConcurrencyConflict},
		{"deadlock", &pgconn.PgError{Code: codeDeadlockDetected}, domain.ErrConcurrencyConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyPgError("op", tt.err), tt.want)
		})
	}

	plain := errors.New("conexión cerrada")
	assert.ErrorIs(t, classifyPgError("op", plain), plain)
	assert.NoError(t, classifyPgError("op", nil))
	assert.True(t, domain.IsRetryable(classifyPgError("op", &pgconn.PgError{Code: codeDeadlockDetected})))
}
