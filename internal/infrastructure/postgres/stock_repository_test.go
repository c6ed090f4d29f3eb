package postgres

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// fakeStockTable emula stock_entries con el CHECK (quantity >= 0) evaluado sobre la fila propuesta,
// también en el INSERT de un upsert antes de resolver el ON CONFLICT.
type fakeStockTable struct {
	rows       map[entity.StockKey]int64
	statements []string
}

func newFakeStockTable() *fakeStockTable {
	return &fakeStockTable{rows: make(map[entity.StockKey]int64)}
}

var errCheck = &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "stock_entries_quantity_check"}

func (f *fakeStockTable) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, errors.New("no soportado")
}

func (f *fakeStockTable) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("no soportado")
}

func (f *fakeStockTable) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	stmt := strings.Fields(sql)[0]
	f.statements = append(f.statements, stmt)
	key := entity.StockKey{ProductID: args[0].(string), LocationID: args[1].(string)}
	cur, exists := f.rows[key]

	switch stmt {
	case "UPDATE":
		if !exists {
			return fakeRow{err: pgx.ErrNoRows}
		}
		next := cur + args[2].(int64)
		if next < 0 {
			return fakeRow{err: errCheck}
		}
		f.rows[key] = next
		return fakeRow{vals: []any{next}}
	case "INSERT":
		delta := args[2].(int64)
		if delta < 0 {
			return fakeRow{err: errCheck}
		}
		f.rows[key] = cur + delta
		return fakeRow{vals: []any{cur + delta}}
	case "SELECT":
		if !exists {
			return fakeRow{err: pgx.ErrNoRows}
		}
		return fakeRow{vals: []any{key.ProductID, key.LocationID, cur, time.Now()}}
	}
	return fakeRow{err: errors.New("sentencia inesperada " + stmt)}
}

type fakeRow struct {
	vals []any
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.vals[i].(int64)
		case *string:
			*p = r.vals[i].(string)
		case *time.Time:
			*p = r.vals[i].(time.Time)
		}
	}
	return nil
}

func TestApplyDelta_DebitOnExistingRow(t *testing.T) {
	table := newFakeStockTable()
	table.rows[entity.StockKey{ProductID: "p", LocationID: "wh"}] = 100
	repo := NewStockRepository(table)

	qty, err := repo.ApplyDelta(context.Background(), "p", "wh", -30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), qty)
	assert.Equal(t, []string{"UPDATE"}, table.statements, "el débito no pasa por INSERT")
}

func TestApplyDelta_DebitBeyondAvailable(t *testing.T) {
	table := newFakeStockTable()
	table.rows[entity.StockKey{ProductID: "p", LocationID: "store"}] = 30
	repo := NewStockRepository(table)

	_, err := repo.ApplyDelta(context.Background(), "p", "store", -999)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(999), stockErr.Requested)
	assert.Equal(t, int64(30), stockErr.Available)
	assert.Equal(t, int64(30), table.rows[entity.StockKey{ProductID: "p", LocationID: "store"}])
}

func TestApplyDelta_MissingRow(t *testing.T) {
	table := newFakeStockTable()
	repo := NewStockRepository(table)
	ctx := context.Background()

	_, err := repo.ApplyDelta(ctx, "p", "wh", -1)
	var stockErr *domain.StockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, int64(0), stockErr.Available)

	qty, err := repo.ApplyDelta(ctx, "p", "wh", 12)
	require.NoError(t, err)
	assert.Equal(t, int64(12), qty)
	assert.Equal(t, []string{"UPDATE", "UPDATE", "INSERT"}, table.statements)
}
