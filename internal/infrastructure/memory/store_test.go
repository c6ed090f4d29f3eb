package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
)

func seeded() *memory.Store {
	s := memory.NewStore()
	s.PutProduct(entity.Product{ID: "p1", SKU: "A-1", MinQuantity: 3})
	s.PutLocation(entity.Location{ID: "l1", Name: "Bodega"})
	s.PutLocation(entity.Location{ID: "l2", Name: "Tienda"})
	return s
}

func TestRun_RollbackDiscardsStagedWrites(t *testing.T) {
	s := seeded()
	ctx := context.Background()

	boom := errors.New("fallo")
	err := s.Run(ctx, func(mov repository.MovementRepository, stock repository.StockRepository) error {
		q, err := stock.ApplyDelta(ctx, "p1", "l1", 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), q)

		// Dentro de la tx se ve lo propio; fuera, nada.
		inside, _ := stock.Get(ctx, "p1", "l1")
		assert.Equal(t, int64(10), inside.Quantity)
		outside, _ := s.Stock().Get(ctx, "p1", "l1")
		assert.Equal(t, int64(0), outside.Quantity)

		require.NoError(t, mov.Create(ctx, &entity.Movement{ID: "m1", ProductID: "p1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, _ := s.Stock().Get(ctx, "p1", "l1")
	assert.Equal(t, int64(0), got.Quantity)
	_, err = s.Movements().GetByID(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_NegativeQuantityRejected(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository) error {
		_, err := stock.ApplyDelta(ctx, "p1", "l1", -1)
		return err
	})
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, int64(0), stockErr.Available)
}

func TestRun_LockWaitHonoursContext(t *testing.T) {
	s := seeded()
	held := make(chan struct{})
	done := make(chan struct{})

	go func() {
		_ = s.Run(context.Background(), func(_ repository.MovementRepository, stock repository.StockRepository) error {
			_, err := stock.GetForUpdate(context.Background(), "p1", "l1")
			close(held)
			<-done
			return err
		})
	}()
	<-held
	defer close(done)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository) error {
		_, err := stock.GetForUpdate(ctx, "p1", "l1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRun_DuplicateIdempotencyKeyAtCommit(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	create := func(id string) error {
		return s.Run(ctx, func(mov repository.MovementRepository, _ repository.StockRepository) error {
			return mov.Create(ctx, &entity.Movement{ID: id, ProductID: "p1", IdempotencyKey: "k"})
		})
	}
	require.NoError(t, create("m1"))
	assert.ErrorIs(t, create("m2"), domain.ErrDuplicate)

	got, err := s.Movements().GetByIdempotencyKey(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "m1", got.ID)

	none, err := s.Movements().GetByIdempotencyKey(ctx, "otra")
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestReadersRejectWrites(t *testing.T) {
	s := seeded()
	_, err := s.Stock().ApplyDelta(context.Background(), "p1", "l1", 1)
	assert.Error(t, err)
	assert.Error(t, s.Movements().Create(context.Background(), &entity.Movement{}))
}

func TestLowStock_ByLocation(t *testing.T) {
	s := seeded()
	ctx := context.Background()
	require.NoError(t, s.Run(ctx, func(_ repository.MovementRepository, stock repository.StockRepository) error {
		if _, err := stock.ApplyDelta(ctx, "p1", "l1", 10); err != nil {
			return err
		}
		_, err := stock.ApplyDelta(ctx, "p1", "l2", 2)
		return err
	}))

	all, err := s.LowStock().ListAtOrBelowThreshold(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	atStore, err := s.LowStock().ListAtOrBelowThreshold(ctx, "l2")
	require.NoError(t, err)
	require.Len(t, atStore, 1)
	assert.Equal(t, int64(2), atStore[0].CurrentStock)
}
