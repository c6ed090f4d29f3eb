package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene la cantidad actual de un producto en una ubicación (0 si no hay fila).
func (r *StockRepo) Get(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_at
		FROM stock_entries WHERE product_id = $1 AND location_id = $2`
	var s entity.StockEntry
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&s.ProductID, &s.LocationID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockEntry{ProductID: productID, LocationID: locationID}, nil
		}
		return nil, classifyPgError("get stock", err)
	}
	return &s, nil
}

// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
// Si la fila no existe se crea en cero antes de bloquearla, así el candado existe siempre y
// una referencia inexistente falla aquí por FK.
func (r *StockRepo) GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockEntry, error) {
	ensure := `
		INSERT INTO stock_entries (product_id, location_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (product_id, location_id) DO NOTHING`
	if _, err := r.q.Exec(ctx, ensure, productID, locationID); err != nil {
		return nil, classifyPgError("ensure stock row", err)
	}

	query := `
		SELECT product_id, location_id, quantity, updated_at
		FROM stock_entries WHERE product_id = $1 AND location_id = $2
		FOR UPDATE`
	var s entity.StockEntry
	err := r.q.QueryRow(ctx, query, productID, locationID).Scan(
		&s.ProductID, &s.LocationID, &s.Quantity, &s.UpdatedAt,
	)
	if err != nil {
		return nil, classifyPgError("get stock for update", err)
	}
	return &s, nil
}

// ApplyDelta suma delta sobre la fila de forma atómica (incremento en SQL, no lectura-escritura).
// Se espera la fila ya bloqueada por GetForUpdate. El CHECK (quantity >= 0) de la tabla es la última
// barrera contra cantidades negativas: se evalúa sobre la fila resultante del UPDATE.
func (r *StockRepo) ApplyDelta(ctx context.Context, productID, locationID string, delta int64) (int64, error) {
	query := `
		UPDATE stock_entries SET quantity = quantity + $3, updated_at = now()
		WHERE product_id = $1 AND location_id = $2
		RETURNING quantity`
	var qty int64
	err := r.q.QueryRow(ctx, query, productID, locationID, delta).Scan(&qty)
	switch {
	case err == nil:
		return qty, nil
	case errors.Is(err, pgx.ErrNoRows):
		return r.insertDelta(ctx, productID, locationID, delta)
	}
	err = classifyPgError("apply stock delta", err)
	if errors.Is(err, domain.ErrInsufficientStock) {
		current, getErr := r.Get(ctx, productID, locationID)
		if getErr == nil {
			return 0, domain.NewStockError(productID, locationID, -delta, current.Quantity)
		}
	}
	return 0, err
}

// insertDelta crea la fila cuando no existía. Un débito sobre una fila inexistente nunca cabe.
// La cantidad propuesta del INSERT es siempre >= 0: el CHECK se evalúa antes del ON CONFLICT.
func (r *StockRepo) insertDelta(ctx context.Context, productID, locationID string, delta int64) (int64, error) {
	if delta < 0 {
		return 0, domain.NewStockError(productID, locationID, -delta, 0)
	}
	query := `
		INSERT INTO stock_entries (product_id, location_id, quantity, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, location_id)
		DO UPDATE SET quantity = stock_entries.quantity + EXCLUDED.quantity, updated_at = now()
		RETURNING quantity`
	var qty int64
	if err := r.q.QueryRow(ctx, query, productID, locationID, delta).Scan(&qty); err != nil {
		return 0, classifyPgError("insert stock row", err)
	}
	return qty, nil
}

// ListByProduct filas del producto ordenadas por ubicación.
func (r *StockRepo) ListByProduct(ctx context.Context, productID string) ([]*entity.StockEntry, error) {
	query := `
		SELECT product_id, location_id, quantity, updated_at
		FROM stock_entries WHERE product_id = $1
		ORDER BY location_id`
	rows, err := r.q.Query(ctx, query, productID)
	if err != nil {
		return nil, classifyPgError("list stock by product", err)
	}
	defer rows.Close()
	var list []*entity.StockEntry
	for rows.Next() {
		var s entity.StockEntry
		if err := rows.Scan(&s.ProductID, &s.LocationID, &s.Quantity, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, &s)
	}
	return list, rows.Err()
}

// TotalByProduct suma de todas las ubicaciones.
func (r *StockRepo) TotalByProduct(ctx context.Context, productID string) (int64, error) {
	query := `SELECT COALESCE(SUM(quantity), 0)::bigint FROM stock_entries WHERE product_id = $1`
	var total int64
	if err := r.q.QueryRow(ctx, query, productID).Scan(&total); err != nil {
		return 0, classifyPgError("total stock by product", err)
	}
	return total, nil
}
