package inventory

import (
	"context"
	"fmt"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TransferCoordinator ejecuta un TRANSFER como unidad atómica: débito en origen y crédito en destino
// dentro de la transacción del caller. El registro del movimiento lo agrega el motor en la misma tx.
type TransferCoordinator struct{}

// NewTransferCoordinator construye el coordinador.
func NewTransferCoordinator() *TransferCoordinator {
	return &TransferCoordinator{}
}

// Execute bloquea ambas filas en orden total (locationId, productId), verifica stock en origen
// y aborta antes de tocar el destino si no alcanza. Devuelve las cantidades resultantes
// en el orden origen, destino.
func (c *TransferCoordinator) Execute(
	ctx context.Context,
	stockRepo repository.StockRepository,
	mov *entity.Movement,
) ([]entity.StockEntry, error) {
	if mov.Type != entity.MovementTypeTransfer || mov.FromLocationID == nil || mov.ToLocationID == nil {
		return nil, fmt.Errorf("%w: movimiento no es un traslado", domain.ErrInvalidInput)
	}
	if *mov.FromLocationID == *mov.ToLocationID {
		return nil, domain.ErrInvalidTransfer
	}

	source := entity.StockKey{ProductID: mov.ProductID, LocationID: *mov.FromLocationID}
	dest := entity.StockKey{ProductID: mov.ProductID, LocationID: *mov.ToLocationID}

	// Bloqueo en orden total, sin importar cuál es origen o destino (evita deadlock A→B vs B→A).
	locked := make(map[entity.StockKey]int64, 2)
	for _, k := range invdomain.LockOrder(source, dest) {
		entry, err := stockRepo.GetForUpdate(ctx, k.ProductID, k.LocationID)
		if err != nil {
			return nil, err
		}
		locked[k] = entry.Quantity
	}

	if available := locked[source]; available < mov.Quantity {
		return nil, domain.NewStockError(source.ProductID, source.LocationID, mov.Quantity, available)
	}

	sourceQty, err := stockRepo.ApplyDelta(ctx, source.ProductID, source.LocationID, -mov.Quantity)
	if err != nil {
		return nil, err
	}
	destQty, err := stockRepo.ApplyDelta(ctx, dest.ProductID, dest.LocationID, mov.Quantity)
	if err != nil {
		return nil, err
	}

	return []entity.StockEntry{
		{ProductID: source.ProductID, LocationID: source.LocationID, Quantity: sourceQty, UpdatedAt: mov.CreatedAt},
		{ProductID: dest.ProductID, LocationID: dest.LocationID, Quantity: destQty, UpdatedAt: mov.CreatedAt},
	}, nil
}
