package entity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

func ptr(s string) *string { return &s }

func TestMovementEffects(t *testing.T) {
	tests := []struct {
		name string
		mov  entity.Movement
		want []entity.Effect
	}{
		{
			name: "receipt acredita destino",
			mov:  entity.Movement{Type: entity.MovementTypeReceipt, ProductID: "p", Quantity: 10, ToLocationID: ptr("wh")},
			want: []entity.Effect{{Key: entity.StockKey{ProductID: "p", LocationID: "wh"}, Delta: 10}},
		},
		{
			name: "shipment debita origen",
			mov:  entity.Movement{Type: entity.MovementTypeShipment, ProductID: "p", Quantity: 4, FromLocationID: ptr("store")},
			want: []entity.Effect{{Key: entity.StockKey{ProductID: "p", LocationID: "store"}, Delta: -4}},
		},
		{
			name: "transfer debita y acredita",
			mov: entity.Movement{Type: entity.MovementTypeTransfer, ProductID: "p", Quantity: 30,
				FromLocationID: ptr("wh"), ToLocationID: ptr("store")},
			want: []entity.Effect{
				{Key: entity.StockKey{ProductID: "p", LocationID: "wh"}, Delta: -30},
				{Key: entity.StockKey{ProductID: "p", LocationID: "store"}, Delta: 30},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.mov.Effects())
		})
	}
}

func TestMovementDirection(t *testing.T) {
	inc := entity.Movement{Type: entity.MovementTypeAdjustment, ToLocationID: ptr("wh")}
	dec := entity.Movement{Type: entity.MovementTypeAdjustment, FromLocationID: ptr("wh")}
	rec := entity.Movement{Type: entity.MovementTypeReceipt, ToLocationID: ptr("wh")}

	assert.Equal(t, entity.AdjustmentIncrease, inc.Direction())
	assert.Equal(t, entity.AdjustmentDecrease, dec.Direction())
	assert.Empty(t, rec.Direction())
	assert.True(t, dec.Touches("wh"))
	assert.False(t, dec.Touches("store"))
}
