package repository

import (
	"context"
	"time"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// MovementFilter criterios de consulta del historial. Limit 0 = sin límite.
type MovementFilter struct {
	ProductID  string
	LocationID string // coincide con origen o destino
	From, To   *time.Time
	Limit      int
	Offset     int
}

// MovementRepository define el puerto de persistencia del historial de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	GetByID(ctx context.Context, id string) (*entity.Movement, error)
	// GetByIdempotencyKey devuelve nil, nil si la clave no se ha usado.
	GetByIdempotencyKey(ctx context.Context, key string) (*entity.Movement, error)
	// List devuelve movimientos del más reciente al más antiguo.
	List(ctx context.Context, filter MovementFilter) ([]*entity.Movement, error)
	// Count movimientos que cumplen el filtro, sin aplicar Limit ni Offset.
	Count(ctx context.Context, filter MovementFilter) (int, error)
}
