package seed_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/stock-ledger/internal/infrastructure/seed"
)

func TestLoad_Latin1(t *testing.T) {
	src := "location;loc-1;Bodega Montaña\nproduct;p-1;SKU-1;Azúcar;5;1.25\nstock;p-1;loc-1;9\n"
	latin1, err := charmap.ISO8859_1.NewEncoder().String(src)
	require.NoError(t, err)

	cat, err := seed.Load(strings.NewReader(latin1), seed.Options{Charset: "latin1", Comma: ';'})
	require.NoError(t, err)
	require.Len(t, cat.Locations, 1)
	assert.Equal(t, "Bodega Montaña", cat.Locations[0].Name)
	require.Len(t, cat.Products, 1)
	assert.Equal(t, "Azúcar", cat.Products[0].Name)
	assert.Equal(t, "1.25", cat.Products[0].Cost.String())
	assert.Equal(t, []seed.Opening{{ProductID: "p-1", LocationID: "loc-1", Quantity: 9}}, cat.Openings)
}

func TestLoad_Errors(t *testing.T) {
	cases := map[string]string{
		"tipo desconocido":    "warehouse,w1,X\n",
		"cantidad no entera":  "stock,p,l,1.5\n",
		"cantidad cero":       "stock,p,l,0\n",
		"costo inválido":      "product,p,S,N,1,abc\n",
		"producto incompleto": "product,p,S\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := seed.Load(strings.NewReader(src), seed.Options{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), "línea 1")
		})
	}

	_, err := seed.Load(bytes.NewReader(nil), seed.Options{Charset: "ebcdic"})
	assert.Error(t, err)
}

func TestApply_DemoIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	engine := inventory.NewRecordMovementUseCase(store, store.Stock(), store.Products(), nil, nil, nil,
		inventory.EngineConfig{MaxRetries: 3, TxTimeout: time.Second})
	seeder := seed.NewSeeder(store, engine, nil)
	ctx := context.Background()

	cat, err := seed.Demo()
	require.NoError(t, err)
	require.NotEmpty(t, cat.Openings)

	first, err := seeder.Apply(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Locations), first.Locations)
	assert.Equal(t, len(cat.Products), first.Products)
	assert.Equal(t, len(cat.Openings), first.Movements)

	total, err := store.Stock().TotalByProduct(ctx, "prod-cafe-500")
	require.NoError(t, err)
	assert.Equal(t, int64(135), total)

	second, err := seeder.Apply(ctx, cat)
	require.NoError(t, err)
	assert.Equal(t, len(cat.Locations)+len(cat.Products), second.Skipped)

	total, err = store.Stock().TotalByProduct(ctx, "prod-cafe-500")
	require.NoError(t, err)
	assert.Equal(t, int64(135), total, "re-ejecutar el seed no duplica stock")
}
