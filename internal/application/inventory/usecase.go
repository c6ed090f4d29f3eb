package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

const publishTimeout = 3 * time.Second

// EngineConfig parámetros del motor de movimientos.
type EngineConfig struct {
	MaxRetries int           // reintentos ante ErrConcurrencyConflict
	TxTimeout  time.Duration // 0 = sin límite propio (solo el ctx del caller)
}

// RecordMovementUseCase es el motor de movimientos: valida reglas de negocio y aplica
// RECEIPT/SHIPMENT/ADJUSTMENT/TRANSFER de forma transaccional con bloqueo de fila (SELECT FOR UPDATE).
type RecordMovementUseCase struct {
	txRunner    TxRunner
	transfers   *TransferCoordinator
	stockRepo   repository.StockRepository
	productRepo repository.ProductRepository
	publisher   EventPublisher
	metrics     MetricsRecorder
	log         *logger.Logger
	cfg         EngineConfig
	now         func() time.Time
}

// NewRecordMovementUseCase construye el motor. publisher y metrics pueden ser nil.
func NewRecordMovementUseCase(
	txRunner TxRunner,
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	publisher EventPublisher,
	metrics MetricsRecorder,
	log *logger.Logger,
	cfg EngineConfig,
) *RecordMovementUseCase {
	if publisher == nil {
		publisher = nopPublisher{}
	}
	if metrics == nil {
		metrics = nopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RecordMovementUseCase{
		txRunner:    txRunner,
		transfers:   NewTransferCoordinator(),
		stockRepo:   stockRepo,
		productRepo: productRepo,
		publisher:   publisher,
		metrics:     metrics,
		log:         log.Named("movement-engine"),
		cfg:         cfg,
		now:         time.Now,
	}
}

// MovementInput entrada de recordMovement.
// RECEIPT: ToLocationID. SHIPMENT: FromLocationID. TRANSFER: ambos, distintos.
// ADJUSTMENT: Direction INCREASE (como RECEIPT) o DECREASE (como SHIPMENT).
type MovementInput struct {
	Type           entity.MovementType
	ProductID      string
	Quantity       int64
	FromLocationID string
	ToLocationID   string
	Direction      entity.AdjustmentDirection
	Reason         string
	ActorID        string
	IdempotencyKey string
}

// RecordMovement valida la entrada, abre una transacción, bloquea las filas en orden total,
// verifica stock suficiente para débitos, aplica los deltas y agrega exactamente un Movement.
// Todo se confirma junto o nada. Con la misma IdempotencyKey devuelve el movimiento original sin reaplicarlo.
func (uc *RecordMovementUseCase) RecordMovement(ctx context.Context, in MovementInput) (*entity.Movement, error) {
	mov, err := uc.buildMovement(in)
	if err != nil {
		uc.metrics.MovementRejected(rejectionReason(err))
		return nil, err
	}

	if uc.cfg.TxTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.cfg.TxTimeout)
		defer cancel()
	}

	var (
		result   *entity.Movement
		balances []entity.StockEntry
		replayed bool
	)
	for attempt := 0; ; attempt++ {
		result, balances, replayed, err = uc.commit(ctx, mov)
		if err == nil {
			break
		}
		retryable := domain.IsRetryable(err) ||
			(errors.Is(err, domain.ErrDuplicate) && mov.IdempotencyKey != "")
		if retryable && attempt < uc.cfg.MaxRetries && ctx.Err() == nil {
			uc.metrics.ConflictRetried()
			uc.log.Warn().Err(err).
				Int("attempt", attempt+1).
				Str("product_id", mov.ProductID).
				Str("type", string(mov.Type)).
				Msg("conflicto de concurrencia, reintentando movimiento")
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil && !isDomainError(err) {
			err = fmt.Errorf("movimiento no confirmado: %w", ctxErr)
		}
		uc.metrics.MovementRejected(rejectionReason(err))
		return nil, err
	}

	if replayed {
		uc.log.Debug().Str("movement_id", result.ID).Str("idempotency_key", result.IdempotencyKey).
			Msg("movimiento repetido, se devuelve el original")
		return result, nil
	}

	uc.metrics.MovementRecorded(result.Type)
	uc.log.Debug().
		Str("movement_id", result.ID).
		Str("type", string(result.Type)).
		Str("product_id", result.ProductID).
		Int64("quantity", result.Quantity).
		Str("actor_id", result.ActorID).
		Msg("movimiento registrado")

	uc.afterCommit(ctx, result, balances)
	return result, nil
}

// buildMovement aplica todas las validaciones antes de cualquier mutación.
func (uc *RecordMovementUseCase) buildMovement(in MovementInput) (*entity.Movement, error) {
	if in.Quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.ProductID == "" {
		return nil, fmt.Errorf("%w: product_id requerido", domain.ErrInvalidInput)
	}
	if in.ActorID == "" {
		return nil, fmt.Errorf("%w: actor requerido", domain.ErrInvalidInput)
	}

	from, to := in.FromLocationID, in.ToLocationID
	switch in.Type {
	case entity.MovementTypeReceipt:
		if to == "" || from != "" {
			return nil, fmt.Errorf("%w: RECEIPT requiere solo to_location_id", domain.ErrInvalidInput)
		}
	case entity.MovementTypeShipment:
		if from == "" || to != "" {
			return nil, fmt.Errorf("%w: SHIPMENT requiere solo from_location_id", domain.ErrInvalidInput)
		}
	case entity.MovementTypeAdjustment:
		switch in.Direction {
		case entity.AdjustmentIncrease:
			if to == "" || from != "" {
				return nil, fmt.Errorf("%w: ajuste INCREASE requiere solo to_location_id", domain.ErrInvalidInput)
			}
		case entity.AdjustmentDecrease:
			if from == "" || to != "" {
				return nil, fmt.Errorf("%w: ajuste DECREASE requiere solo from_location_id", domain.ErrInvalidInput)
			}
		default:
			return nil, fmt.Errorf("%w: direction debe ser INCREASE o DECREASE", domain.ErrInvalidInput)
		}
	case entity.MovementTypeTransfer:
		if from == "" || to == "" {
			return nil, fmt.Errorf("%w: TRANSFER requiere from_location_id y to_location_id", domain.ErrInvalidInput)
		}
		if from == to {
			return nil, domain.ErrInvalidTransfer
		}
	default:
		return nil, fmt.Errorf("%w: tipo de movimiento desconocido %q", domain.ErrInvalidInput, in.Type)
	}

	mov := &entity.Movement{
		ID:             uuid.New().String(),
		IdempotencyKey: in.IdempotencyKey,
		Type:           in.Type,
		ProductID:      in.ProductID,
		Quantity:       in.Quantity,
		Reason:         in.Reason,
		ActorID:        in.ActorID,
		CreatedAt:      uc.now().UTC(),
	}
	if from != "" {
		mov.FromLocationID = &from
	}
	if to != "" {
		mov.ToLocationID = &to
	}
	return mov, nil
}

// commit ejecuta un intento completo dentro de una transacción.
func (uc *RecordMovementUseCase) commit(ctx context.Context, mov *entity.Movement) (*entity.Movement, []entity.StockEntry, bool, error) {
	var (
		out      *entity.Movement
		balances []entity.StockEntry
		replayed bool
	)
	err := uc.txRunner.Run(ctx, func(
		movRepo repository.MovementRepository,
		stockRepo repository.StockRepository,
	) error {
		balances, replayed, out = nil, false, nil

		if mov.IdempotencyKey != "" {
			prev, err := movRepo.GetByIdempotencyKey(ctx, mov.IdempotencyKey)
			if err != nil {
				return err
			}
			if prev != nil {
				if !sameRequest(prev, mov) {
					return domain.ErrIdempotencyKeyReused
				}
				out, replayed = prev, true
				return nil
			}
		}

		var err error
		if mov.Type == entity.MovementTypeTransfer {
			balances, err = uc.transfers.Execute(ctx, stockRepo, mov)
		} else {
			balances, err = applySingle(ctx, stockRepo, mov)
		}
		if err != nil {
			return err
		}

		// El registro del movimiento va en la misma transacción que los cambios de stock.
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		out = mov
		return nil
	})
	if err != nil {
		return nil, nil, false, err
	}
	return out, balances, replayed, nil
}

// applySingle: bloquea la fila, verifica StockActual >= Cantidad en débitos y aplica el delta.
func applySingle(ctx context.Context, stockRepo repository.StockRepository, mov *entity.Movement) ([]entity.StockEntry, error) {
	effects := mov.Effects()
	if len(effects) != 1 {
		return nil, fmt.Errorf("%w: movimiento %s con %d efectos", domain.ErrInvalidInput, mov.Type, len(effects))
	}
	eff := effects[0]

	current, err := stockRepo.GetForUpdate(ctx, eff.Key.ProductID, eff.Key.LocationID)
	if err != nil {
		return nil, err
	}
	if eff.Delta < 0 && current.Quantity < -eff.Delta {
		return nil, domain.NewStockError(eff.Key.ProductID, eff.Key.LocationID, -eff.Delta, current.Quantity)
	}
	newQty, err := stockRepo.ApplyDelta(ctx, eff.Key.ProductID, eff.Key.LocationID, eff.Delta)
	if err != nil {
		return nil, err
	}
	return []entity.StockEntry{{
		ProductID:  eff.Key.ProductID,
		LocationID: eff.Key.LocationID,
		Quantity:   newQty,
		UpdatedAt:  mov.CreatedAt,
	}}, nil
}

// afterCommit publica el evento fuera de la transacción; un fallo aquí no revierte el movimiento.
func (uc *RecordMovementUseCase) afterCommit(ctx context.Context, mov *entity.Movement, balances []entity.StockEntry) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := MovementEvent{Movement: mov, Balances: balances}
	if total, err := uc.stockRepo.TotalByProduct(pubCtx, mov.ProductID); err == nil {
		event.ProductTotal = total
		if product, err := uc.productRepo.GetByID(pubCtx, mov.ProductID); err == nil && product != nil {
			event.Status = invdomain.EvaluateStockStatus(total, product.MinQuantity)
		}
	}

	if err := uc.publisher.PublishMovement(pubCtx, event); err != nil {
		uc.log.Error().Err(err).Str("movement_id", mov.ID).Msg("publicar evento de movimiento")
	}
}

func sameRequest(prev, next *entity.Movement) bool {
	return prev.Type == next.Type &&
		prev.ProductID == next.ProductID &&
		prev.Quantity == next.Quantity &&
		equalRef(prev.FromLocationID, next.FromLocationID) &&
		equalRef(prev.ToLocationID, next.ToLocationID)
}

func equalRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func isDomainError(err error) bool {
	return rejectionReason(err) != "internal"
}

// rejectionReason etiqueta de métrica para un error.
func rejectionReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, domain.ErrInvalidTransfer):
		return "invalid_transfer"
	case errors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, domain.ErrUnknownReference):
		return "unknown_reference"
	case errors.Is(err, domain.ErrConcurrencyConflict):
		return "concurrency_conflict"
	case errors.Is(err, domain.ErrIdempotencyKeyReused):
		return "idempotency_key_reused"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
