package inventory

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// LowStockUseCase lista de productos en o bajo su umbral de reorden, con sugerencia de pedido.
// La consumen el dashboard y los jobs de recordatorio/reportes.
type LowStockUseCase struct {
	lowStockRepo repository.LowStockRepository
}

// NewLowStockUseCase construye el caso de uso.
func NewLowStockUseCase(lowStockRepo repository.LowStockRepository) *LowStockUseCase {
	return &LowStockUseCase{lowStockRepo: lowStockRepo}
}

// ListLowStock devuelve los productos OUT_OF_STOCK o LOW_STOCK. locationID vacío = stock agregado.
func (uc *LowStockUseCase) ListLowStock(ctx context.Context, locationID string) ([]dto.LowStockItemDTO, error) {
	rawItems, err := uc.lowStockRepo.ListAtOrBelowThreshold(ctx, locationID)
	if err != nil {
		return nil, err
	}
	if len(rawItems) == 0 {
		return []dto.LowStockItemDTO{}, nil
	}

	items := make([]dto.LowStockItemDTO, 0, len(rawItems))
	for _, raw := range rawItems {
		status := invdomain.EvaluateStockStatus(raw.CurrentStock, raw.MinQuantity)
		if status == invdomain.StatusInStock {
			continue
		}
		suggested := invdomain.SuggestedReorderQuantity(raw.CurrentStock, raw.MinQuantity)
		items = append(items, dto.LowStockItemDTO{
			ProductID:          raw.ProductID,
			SKU:                raw.SKU,
			ProductName:        raw.ProductName,
			CurrentStock:       raw.CurrentStock,
			MinQuantity:        raw.MinQuantity,
			Status:             string(status),
			SuggestedOrderQty:  suggested,
			UnitCost:           raw.UnitCost,
			EstimatedOrderCost: decimal.NewFromInt(suggested).Mul(raw.UnitCost),
		})
	}

	// Orden: primero agotados, luego mayor déficit, desempate por SKU.
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		sa := invdomain.StockStatus(a.Status).Severity()
		sb := invdomain.StockStatus(b.Status).Severity()
		if sa != sb {
			return sa < sb
		}
		defA, defB := a.MinQuantity-a.CurrentStock, b.MinQuantity-b.CurrentStock
		if defA != defB {
			return defA > defB
		}
		return a.SKU < b.SKU
	})

	for i := range items {
		items[i].Priority = i + 1
	}
	return items, nil
}
