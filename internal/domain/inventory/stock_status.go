package inventory

// StockStatus estado de alerta derivado del stock total y el umbral de reorden.
type StockStatus string

const (
	StatusOutOfStock StockStatus = "OUT_OF_STOCK"
	StatusLowStock   StockStatus = "LOW_STOCK"
	StatusInStock    StockStatus = "IN_STOCK"
)

// EvaluateStockStatus función pura: OUT_OF_STOCK si total == 0, LOW_STOCK si 0 < total <= minQuantity,
// IN_STOCK en otro caso. Se recalcula en cada lectura; nunca se persiste.
func EvaluateStockStatus(total, minQuantity int64) StockStatus {
	switch {
	case total <= 0:
		return StatusOutOfStock
	case total <= minQuantity:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Severity orden de urgencia (menor = más urgente).
func (s StockStatus) Severity() int {
	switch s {
	case StatusOutOfStock:
		return 0
	case StatusLowStock:
		return 1
	default:
		return 2
	}
}
