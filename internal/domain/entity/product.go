package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product referencia de catálogo que consume el ledger. El catálogo es dueño del registro;
// aquí solo se leen el umbral de reorden y el costo para estados y valorización.
type Product struct {
	ID          string
	SKU         string // único
	Name        string
	MinQuantity int64           // umbral de reorden (minQuantity)
	Cost        decimal.Decimal // costo unitario
	Price       decimal.Decimal // precio de venta
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
