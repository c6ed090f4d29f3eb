package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Commit si fn devuelve nil; Rollback en cualquier otro caso (incluida la cancelación del ctx).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
	) error) error
}

// MovementEvent se publica después del commit; nunca dentro de la transacción.
type MovementEvent struct {
	Movement     *entity.Movement
	Balances     []entity.StockEntry // cantidades resultantes de las filas tocadas
	ProductTotal int64
	Status       invdomain.StockStatus
}

// EventPublisher notifica a colaboradores (recordatorios, reportes) sobre movimientos comprometidos.
type EventPublisher interface {
	PublishMovement(ctx context.Context, event MovementEvent) error
}

// MetricsRecorder contadores del motor de movimientos.
type MetricsRecorder interface {
	MovementRecorded(movementType entity.MovementType)
	MovementRejected(reason string)
	ConflictRetried()
}

// ValuationLine fila del reporte de valorización (producto × ubicación).
type ValuationLine struct {
	ProductID    string
	SKU          string
	ProductName  string
	LocationID   string
	LocationName string
	Quantity     int64
	UnitCost     decimal.Decimal
	Value        decimal.Decimal
}

// ValuationReport datos del reporte de valorización de inventario.
type ValuationReport struct {
	Title       string
	GeneratedAt time.Time
	Lines       []ValuationLine
	TotalUnits  int64
	TotalValue  decimal.Decimal
}

// ValuationPDFGenerator genera el PDF del reporte de valorización.
type ValuationPDFGenerator interface {
	GenerateValuationPDF(ctx context.Context, report ValuationReport) ([]byte, error)
}

type nopPublisher struct{}

func (nopPublisher) PublishMovement(context.Context, MovementEvent) error { return nil }

type nopMetrics struct{}

func (nopMetrics) MovementRecorded(entity.MovementType) {}
func (nopMetrics) MovementRejected(string) {}
func (nopMetrics) ConflictRetried() {}
