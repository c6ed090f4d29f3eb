package repository

import (
	"context"

	"github.com/shopspring/decimal"
)

// LowStockItem resultado crudo del repositorio para un producto en o bajo su umbral.
type LowStockItem struct {
	ProductID    string
	SKU          string
	ProductName  string
	CurrentStock int64
	MinQuantity  int64
	UnitCost     decimal.Decimal
}

// LowStockRepository consulta agregada de productos cuyo stock está en o bajo minQuantity.
type LowStockRepository interface {
	// ListAtOrBelowThreshold devuelve los productos con stock <= min_quantity.
	// locationID vacío = stock agregado de todas las ubicaciones.
	ListAtOrBelowThreshold(ctx context.Context, locationID string) ([]LowStockItem, error)
}
