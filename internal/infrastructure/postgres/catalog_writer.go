package postgres

import (
	"context"

	"github.com/jhoicas/stock-ledger/internal/domain/entity"
)

// CatalogWriter alta de ubicaciones y productos para el seed.
type CatalogWriter struct {
	products  *ProductRepo
	locations *LocationRepo
}

// NewCatalogWriter construye el writer sobre el pool.
func NewCatalogWriter(q Querier) *CatalogWriter {
	return &CatalogWriter{products: NewProductRepository(q), locations: NewLocationRepository(q)}
}

func (w *CatalogWriter) CreateLocation(ctx context.Context, l *entity.Location) error {
	return w.locations.Create(ctx, l)
}

func (w *CatalogWriter) CreateProduct(ctx context.Context, p *entity.Product) error {
	return w.products.Create(ctx, p)
}
