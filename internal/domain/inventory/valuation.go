package inventory

import "github.com/shopspring/decimal"

// Valuation valor de inventario de una cantidad al costo unitario dado.
func Valuation(quantity int64, unitCost decimal.Decimal) decimal.Decimal {
	if quantity <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(quantity).Mul(unitCost)
}

// SuggestedReorderQuantity cantidad a pedir para llevar el stock al nivel ideal.
// StockIdeal = ceil(minQuantity * 1.5); Sugerido = StockIdeal - total (nunca negativo).
func SuggestedReorderQuantity(total, minQuantity int64) int64 {
	if minQuantity <= 0 {
		return 0
	}
	ideal := decimal.NewFromInt(minQuantity).Mul(decimal.NewFromFloat(1.5)).Ceil().IntPart()
	if total >= ideal {
		return 0
	}
	return ideal - total
}
