package repository

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// StockRepository define el puerto del Stock Ledger Store: cantidad actual por (producto, ubicación).
// Las escrituras solo se hacen dentro de una transacción (ver TxRunner).
type StockRepository interface {
	// Get devuelve la fila comprometida; cantidad 0 si no existe.
	Get(ctx context.Context, productID, locationID string) (*entity.StockEntry, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, productID, locationID string) (*entity.StockEntry, error)
	// ApplyDelta suma delta a la fila (la crea si no existe) y devuelve la nueva cantidad.
	// Falla con *domain.StockError si el resultado sería negativo.
	ApplyDelta(ctx context.Context, productID, locationID string, delta int64) (int64, error)
	// ListByProduct devuelve las filas del producto ordenadas por locationId.
	ListByProduct(ctx context.Context, productID string) ([]*entity.StockEntry, error)
	// TotalByProduct suma las cantidades de todas las ubicaciones.
	TotalByProduct(ctx context.Context, productID string) (int64, error)
}
