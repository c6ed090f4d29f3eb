package entity

import "time"

// StockEntry cantidad actual de un producto en una ubicación.
// La ausencia de fila equivale a cantidad 0. Quantity >= 0 siempre.
type StockEntry struct {
	ProductID  string
	LocationID string
	Quantity   int64
	UpdatedAt  time.Time
}

// StockKey identifica una fila de stock (producto, ubicación).
type StockKey struct {
	ProductID  string
	LocationID string
}

// Key devuelve la clave de la fila.
func (s StockEntry) Key() StockKey {
	return StockKey{ProductID: s.ProductID, LocationID: s.LocationID}
}
