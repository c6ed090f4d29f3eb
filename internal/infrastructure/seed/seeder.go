package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	"github.com/jhoicas/stock-ledger/pkg/logger"
)

// SeedActor actor registrado en los movimientos de stock inicial.
const SeedActor = "seed"

// CatalogWriter destino de ubicaciones y productos. ErrDuplicate se trata como ya sembrado.
type CatalogWriter interface {
	CreateLocation(ctx context.Context, l *entity.Location) error
	CreateProduct(ctx context.Context, p *entity.Product) error
}

// Result conteos de lo aplicado.
type Result struct {
	Locations int
	Products  int
	Movements int
	Skipped   int
}

// Seeder aplica un catálogo. El stock inicial entra como RECEIPT por el motor, una transacción
// por fila, con idempotency key derivada de (producto, ubicación): re-ejecutar no duplica stock.
type Seeder struct {
	catalog CatalogWriter
	engine  *inventory.RecordMovementUseCase
	log     *logger.Logger
	now     func() time.Time
}

// NewSeeder construye el seeder.
func NewSeeder(catalog CatalogWriter, engine *inventory.RecordMovementUseCase, log *logger.Logger) *Seeder {
	if log == nil {
		log = logger.Nop()
	}
	return &Seeder{catalog: catalog, engine: engine, log: log.Named("seed"), now: time.Now}
}

// Apply escribe ubicaciones, productos y luego el stock inicial, en ese orden.
func (s *Seeder) Apply(ctx context.Context, cat *Catalog) (Result, error) {
	var res Result
	now := s.now().UTC()

	for i := range cat.Locations {
		loc := cat.Locations[i]
		loc.CreatedAt, loc.UpdatedAt = now, now
		err := s.catalog.CreateLocation(ctx, &loc)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("ubicación %s: %w", loc.ID, err)
		default:
			res.Locations++
		}
	}

	for i := range cat.Products {
		p := cat.Products[i]
		p.CreatedAt, p.UpdatedAt = now, now
		err := s.catalog.CreateProduct(ctx, &p)
		switch {
		case errors.Is(err, domain.ErrDuplicate):
			res.Skipped++
		case err != nil:
			return res, fmt.Errorf("producto %s: %w", p.ID, err)
		default:
			res.Products++
		}
	}

	for _, o := range cat.Openings {
		_, err := s.engine.RecordMovement(ctx, inventory.MovementInput{
			Type:           entity.MovementTypeReceipt,
			ProductID:      o.ProductID,
			Quantity:       o.Quantity,
			ToLocationID:   o.LocationID,
			Reason:         "stock inicial",
			ActorID:        SeedActor,
			IdempotencyKey: OpeningKey(o),
		})
		if err != nil {
			return res, fmt.Errorf("stock inicial %s en %s: %w", o.ProductID, o.LocationID, err)
		}
		res.Movements++
	}

	s.log.Info().
		Int("locations", res.Locations).
		Int("products", res.Products).
		Int("movements", res.Movements).
		Int("skipped", res.Skipped).
		Msg("catálogo aplicado")
	return res, nil
}

// OpeningKey idempotency key del stock inicial.
func OpeningKey(o Opening) string {
	return "seed:" + o.ProductID + ":" + o.LocationID
}
