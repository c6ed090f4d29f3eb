package events

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// LogPublisher se usa cuando no hay brokers configurados: deja constancia en el log y no falla.
type LogPublisher struct {
	log *logger.Logger
}

// NewLogPublisher construye el publisher de respaldo.
func NewLogPublisher(log *logger.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events")}
}

func (p *LogPublisher) PublishMovement(_ context.Context, event inventory.MovementEvent) error {
	p.log.Debug().
		Str("movement_id", event.Movement.ID).
		Str("product_id", event.Movement.ProductID).
		Int64("product_total", event.ProductTotal).
		Str("status", string(event.Status)).
		Msg("movimiento confirmado (sin broker)")
	return nil
}
