package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMovementRequest body para POST /api/inventory/movements.
// quantity se recibe como decimal para rechazar montos no enteros con INVALID_QUANTITY.
type RecordMovementRequest struct {
	Type           string          `json:"type" validate:"required,oneof=RECEIPT SHIPMENT ADJUSTMENT TRANSFER"`
	ProductID      string          `json:"product_id" validate:"required"`
	Quantity       decimal.Decimal `json:"quantity"`
	FromLocationID string          `json:"from_location_id,omitempty"`
	ToLocationID   string          `json:"to_location_id,omitempty"`
	Direction      string          `json:"direction,omitempty" validate:"omitempty,oneof=INCREASE DECREASE"`
	Reason         string          `json:"reason,omitempty" validate:"max=500"`
	IdempotencyKey string          `json:"idempotency_key,omitempty" validate:"max=128"`
}

// MovementResponse movimiento registrado.
type MovementResponse struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	ProductID      string    `json:"product_id"`
	Quantity       int64     `json:"quantity"`
	FromLocationID *string   `json:"from_location_id"`
	ToLocationID   *string   `json:"to_location_id"`
	Direction      string    `json:"direction,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	ActorID        string    `json:"actor_id"`
	IdempotencyKey string    `json:"idempotency_key,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// MovementListResponse historial paginado.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// LocationQuantityDTO cantidad de un producto en una ubicación.
type LocationQuantityDTO struct {
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

// QuantityResponse cantidad puntual (producto, ubicación).
type QuantityResponse struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

// ProductStockSummaryDTO vista del dashboard: desglose por ubicación, total, estado y valor.
type ProductStockSummaryDTO struct {
	ProductID   string                `json:"product_id"`
	SKU         string                `json:"sku"`
	MinQuantity int64                 `json:"min_quantity"`
	Total       int64                 `json:"total"`
	Status      string                `json:"status"`
	Value       decimal.Decimal       `json:"value"`
	Locations   []LocationQuantityDTO `json:"locations"`
}

// LowStockItemDTO producto en o bajo su umbral con la sugerencia de reposición.
type LowStockItemDTO struct {
	ProductID          string          `json:"product_id"`
	SKU                string          `json:"sku"`
	ProductName        string          `json:"product_name"`
	CurrentStock       int64           `json:"current_stock"`
	MinQuantity        int64           `json:"min_quantity"`
	Status             string          `json:"status"`
	SuggestedOrderQty  int64           `json:"suggested_order_qty"` // ceil(min*1.5) - stock
	UnitCost           decimal.Decimal `json:"unit_cost"`
	EstimatedOrderCost decimal.Decimal `json:"estimated_order_cost"` // SuggestedOrderQty * UnitCost
	Priority           int             `json:"priority"`             // 1 = más urgente
}

// DiscrepancyDTO diferencia entre la cantidad almacenada y la reconstruida desde el historial.
type DiscrepancyDTO struct {
	LocationID string `json:"location_id"`
	Stored     int64  `json:"stored"`
	Replayed   int64  `json:"replayed"`
}

// ReconciliationDTO resultado de reconstruir el stock de un producto desde sus movimientos.
type ReconciliationDTO struct {
	ProductID     string           `json:"product_id"`
	MovementCount int              `json:"movement_count"`
	Consistent    bool             `json:"consistent"`
	Discrepancies []DiscrepancyDTO `json:"discrepancies"`
}

// ListMovementsQuery query string de GET /api/inventory/movements. from/to en RFC3339.
type ListMovementsQuery struct {
	ProductID  string `query:"product_id"`
	LocationID string `query:"location_id"`
	From       string `query:"from"`
	To         string `query:"to"`
	Limit      int    `query:"limit" validate:"min=0,max=500"`
	Offset     int    `query:"offset" validate:"min=0"`
}
