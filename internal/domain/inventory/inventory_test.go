package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/internal/domain/inventory"
)

func TestEvaluateStockStatus(t *testing.T) {
	tests := []struct {
		total, min int64
		want       inventory.StockStatus
	}{
		{0, 10, inventory.StatusOutOfStock},
		{0, 0, inventory.StatusOutOfStock},
		{1, 10, inventory.StatusLowStock},
		{10, 10, inventory.StatusLowStock},
		{11, 10, inventory.StatusInStock},
		{5, 0, inventory.StatusInStock},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, inventory.EvaluateStockStatus(tt.total, tt.min), "total=%d min=%d", tt.total, tt.min)
	}
}

// Escenario: 30 en tienda con umbral 10 → IN_STOCK; tras enviar 25 → LOW_STOCK; tras enviar 5 → OUT_OF_STOCK.
func TestEvaluateStockStatus_EscenarioEnvios(t *testing.T) {
	total := int64(30)
	assert.Equal(t, inventory.StatusInStock, inventory.EvaluateStockStatus(total, 10))
	total -= 25
	assert.Equal(t, inventory.StatusLowStock, inventory.EvaluateStockStatus(total, 10))
	total -= 5
	assert.Equal(t, inventory.StatusOutOfStock, inventory.EvaluateStockStatus(total, 10))
}

func TestValuation(t *testing.T) {
	assert.True(t, decimal.RequireFromString("37.5").Equal(inventory.Valuation(15, decimal.RequireFromString("2.5"))))
	assert.True(t, decimal.Zero.Equal(inventory.Valuation(0, decimal.NewFromInt(9))))
}

func TestSuggestedReorderQuantity(t *testing.T) {
	assert.Equal(t, int64(15), inventory.SuggestedReorderQuantity(0, 10))
	assert.Equal(t, int64(10), inventory.SuggestedReorderQuantity(5, 10))
	assert.Equal(t, int64(3), inventory.SuggestedReorderQuantity(2, 3)) // ceil(4.5) = 5
	assert.Equal(t, int64(0), inventory.SuggestedReorderQuantity(20, 10))
	assert.Equal(t, int64(0), inventory.SuggestedReorderQuantity(0, 0))
}

func TestLockOrder_IndependienteDeOrigenDestino(t *testing.T) {
	a := entity.StockKey{ProductID: "p1", LocationID: "loc-a"}
	b := entity.StockKey{ProductID: "p1", LocationID: "loc-b"}

	assert.Equal(t, []entity.StockKey{a, b}, inventory.LockOrder(a, b))
	assert.Equal(t, []entity.StockKey{a, b}, inventory.LockOrder(b, a))
}

func TestLockOrder_DesempataPorProductoYDeduplica(t *testing.T) {
	x := entity.StockKey{ProductID: "p2", LocationID: "loc-a"}
	y := entity.StockKey{ProductID: "p1", LocationID: "loc-a"}

	assert.Equal(t, []entity.StockKey{y, x}, inventory.LockOrder(x, y, x))
}
