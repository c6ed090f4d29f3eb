package entity

import "time"

// MovementType tipo de movimiento de stock.
type MovementType string

// Tipos de movimiento de stock.
const (
	MovementTypeReceipt    MovementType = "RECEIPT"    // entrada
	MovementTypeShipment   MovementType = "SHIPMENT"   // salida
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste (+/-)
	MovementTypeTransfer   MovementType = "TRANSFER"   // traslado entre ubicaciones
)

// Valid indica si el tipo es conocido.
func (t MovementType) Valid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeShipment, MovementTypeAdjustment, MovementTypeTransfer:
		return true
	}
	return false
}

// AdjustmentDirection signo de un ajuste. La cantidad siempre es positiva.
type AdjustmentDirection string

const (
	AdjustmentIncrease AdjustmentDirection = "INCREASE"
	AdjustmentDecrease AdjustmentDirection = "DECREASE"
)

// Movement registro inmutable de una operación que afecta stock.
// Un TRANSFER es una sola fila que referencia ambas ubicaciones.
type Movement struct {
	ID             string
	IdempotencyKey string // token del caller; vacío si no se envió
	Type           MovementType
	ProductID      string
	Quantity       int64   // siempre > 0
	FromLocationID *string // nil en RECEIPT y ajuste positivo
	ToLocationID   *string // nil en SHIPMENT y ajuste negativo
	Reason         string
	ActorID        string
	CreatedAt      time.Time
}

// Effect delta con signo que un movimiento aplica a una fila de stock.
type Effect struct {
	Key   StockKey
	Delta int64
}

// Effects devuelve los deltas del movimiento: débito en origen, crédito en destino.
func (m *Movement) Effects() []Effect {
	var out []Effect
	if m.FromLocationID != nil {
		out = append(out, Effect{
			Key:   StockKey{ProductID: m.ProductID, LocationID: *m.FromLocationID},
			Delta: -m.Quantity,
		})
	}
	if m.ToLocationID != nil {
		out = append(out, Effect{
			Key:   StockKey{ProductID: m.ProductID, LocationID: *m.ToLocationID},
			Delta: m.Quantity,
		})
	}
	return out
}

// Direction para ajustes: INCREASE si acredita, DECREASE si debita. Vacío para otros tipos.
func (m *Movement) Direction() AdjustmentDirection {
	if m.Type != MovementTypeAdjustment {
		return ""
	}
	if m.ToLocationID != nil {
		return AdjustmentIncrease
	}
	return AdjustmentDecrease
}

// Touches indica si el movimiento afecta la ubicación indicada.
func (m *Movement) Touches(locationID string) bool {
	return (m.FromLocationID != nil && *m.FromLocationID == locationID) ||
		(m.ToLocationID != nil && *m.ToLocationID == locationID)
}
