package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

var _ repository.LowStockRepository = (*LowStockRepo)(nil)

// LowStockRepo consulta agregada de productos en o bajo su umbral.
type LowStockRepo struct {
	q Querier
}

// NewLowStockRepository construye el adaptador.
func NewLowStockRepository(q Querier) *LowStockRepo {
	return &LowStockRepo{q: q}
}

// ListAtOrBelowThreshold productos con stock <= min_quantity. Los productos sin filas cuentan como 0.
// locationID vacío agrega todas las ubicaciones.
func (r *LowStockRepo) ListAtOrBelowThreshold(ctx context.Context, locationID string) ([]repository.LowStockItem, error) {
	query := `
		SELECT p.id, p.sku, p.name, COALESCE(SUM(s.quantity), 0)::bigint AS current_stock, p.min_quantity, p.cost
		FROM products p
		LEFT JOIN stock_entries s ON s.product_id = p.id AND ($1 = '' OR s.location_id = $1)
		GROUP BY p.id, p.sku, p.name, p.min_quantity, p.cost
		HAVING COALESCE(SUM(s.quantity), 0) <= p.min_quantity
		ORDER BY p.sku`
	rows, err := r.q.Query(ctx, query, locationID)
	if err != nil {
		return nil, classifyPgError("list low stock", err)
	}
	defer rows.Close()

	var list []repository.LowStockItem
	for rows.Next() {
		var it repository.LowStockItem
		if err := rows.Scan(&it.ProductID, &it.SKU, &it.ProductName, &it.CurrentStock, &it.MinQuantity, &it.UnitCost); err != nil {
			return nil, fmt.Errorf("scan low stock: %w", err)
		}
		list = append(list, it)
	}
	return list, rows.Err()
}
