package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrUnauthorized = errors.New("no autorizado")
	ErrForbidden    = errors.New("acceso denegado")

	// Taxonomía del ledger de stock.
	ErrInvalidQuantity     = errors.New("cantidad inválida: debe ser un entero positivo")
	ErrInvalidTransfer     = errors.New("traslado inválido: origen y destino deben ser distintos")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrUnknownReference    = errors.New("producto o ubicación inexistente")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente la operación")

	ErrIdempotencyKeyReused = errors.New("idempotency key ya usada con otros datos")
)

// StockError detalla un débito rechazado. errors.Is(err, ErrInsufficientStock) es true.
type StockError struct {
	ProductID  string
	LocationID string
	Requested  int64
	Available  int64
}

func (e *StockError) Error() string {
	return fmt.Sprintf("%s: producto %s en ubicación %s (solicitado %d, disponible %d)",
		ErrInsufficientStock.Error(), e.ProductID, e.LocationID, e.Requested, e.Available)
}

func (e *StockError) Unwrap() error { return ErrInsufficientStock }

// NewStockError construye el error de stock insuficiente.
func NewStockError(productID, locationID string, requested, available int64) *StockError {
	return &StockError{ProductID: productID, LocationID: locationID, Requested: requested, Available: available}
}

// IsRetryable indica si el error es un conflicto de serialización que el caller puede reintentar.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
