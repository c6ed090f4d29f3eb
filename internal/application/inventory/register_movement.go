package inventory

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// RecordMovementFromRequest adapta el request HTTP al caso de uso RecordMovement(ctx, MovementInput).
// actorID viene del token; idempotencyKey del header Idempotency-Key (tiene prioridad sobre el body).
func (uc *RecordMovementUseCase) RecordMovementFromRequest(
	ctx context.Context,
	actorID, idempotencyKey string,
	in dto.RecordMovementRequest,
) (*dto.MovementResponse, error) {
	qty, err := integerQuantity(in.Quantity)
	if err != nil {
		return nil, err
	}
	key := strings.TrimSpace(idempotencyKey)
	if key == "" {
		key = strings.TrimSpace(in.IdempotencyKey)
	}
	mov, err := uc.RecordMovement(ctx, MovementInput{
		Type:           entity.MovementType(strings.ToUpper(in.Type)),
		ProductID:      in.ProductID,
		Quantity:       qty,
		FromLocationID: in.FromLocationID,
		ToLocationID:   in.ToLocationID,
		Direction:      entity.AdjustmentDirection(strings.ToUpper(in.Direction)),
		Reason:         in.Reason,
		ActorID:        actorID,
		IdempotencyKey: key,
	})
	if err != nil {
		return nil, err
	}
	out := ToMovementResponse(mov)
	return &out, nil
}

// integerQuantity acepta solo enteros positivos representables en int64.
func integerQuantity(q decimal.Decimal) (int64, error) {
	if !q.IsInteger() || !q.IsPositive() || q.GreaterThan(decimal.NewFromInt(1<<62)) {
		return 0, domain.ErrInvalidQuantity
	}
	return q.IntPart(), nil
}

// ToMovementResponse mapea la entidad a la respuesta HTTP.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	return dto.MovementResponse{
		ID:             m.ID,
		Type:           string(m.Type),
		ProductID:      m.ProductID,
		Quantity:       m.Quantity,
		FromLocationID: m.FromLocationID,
		ToLocationID:   m.ToLocationID,
		Direction:      string(m.Direction()),
		Reason:         m.Reason,
		ActorID:        m.ActorID,
		IdempotencyKey: m.IdempotencyKey,
		CreatedAt:      m.CreatedAt,
	}
}
