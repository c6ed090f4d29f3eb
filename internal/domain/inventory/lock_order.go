package inventory

import (
	"sort"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// LockOrder devuelve las claves sin duplicados en el orden total de bloqueo:
// locationId ascendente, desempate por productId. El orden no depende de cuál lado es origen o destino,
// así dos traslados opuestos entre las mismas ubicaciones bloquean en la misma secuencia.
func LockOrder(keys ...entity.StockKey) []entity.StockKey {
	seen := make(map[entity.StockKey]struct{}, len(keys))
	out := make([]entity.StockKey, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].LocationID != out[j].LocationID {
			return out[i].LocationID < out[j].LocationID
		}
		return out[i].ProductID < out[j].ProductID
	})
	return out
}
