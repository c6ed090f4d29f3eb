package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/dto"
	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

const maxMovementPage = 500

// StockQueryUseCase proyecciones de lectura sobre el ledger. Nunca escribe; todo se deriva
// de las filas comprometidas de stock en cada llamada.
type StockQueryUseCase struct {
	stockRepo   repository.StockRepository
	movRepo     repository.MovementRepository
	productRepo repository.ProductRepository
}

// NewStockQueryUseCase construye las proyecciones de lectura.
func NewStockQueryUseCase(
	stockRepo repository.StockRepository,
	movRepo repository.MovementRepository,
	productRepo repository.ProductRepository,
) *StockQueryUseCase {
	return &StockQueryUseCase{stockRepo: stockRepo, movRepo: movRepo, productRepo: productRepo}
}

// GetQuantity cantidad de un producto en una ubicación (0 si nunca tuvo stock).
func (uc *StockQueryUseCase) GetQuantity(ctx context.Context, productID, locationID string) (int64, error) {
	if productID == "" || locationID == "" {
		return 0, domain.ErrInvalidInput
	}
	entry, err := uc.stockRepo.Get(ctx, productID, locationID)
	if err != nil {
		return 0, err
	}
	return entry.Quantity, nil
}

// GetTotalQuantity suma del producto en todas las ubicaciones.
func (uc *StockQueryUseCase) GetTotalQuantity(ctx context.Context, productID string) (int64, error) {
	if productID == "" {
		return 0, domain.ErrInvalidInput
	}
	return uc.stockRepo.TotalByProduct(ctx, productID)
}

// ListStockByLocation desglose por ubicación, orden estable por locationId.
func (uc *StockQueryUseCase) ListStockByLocation(ctx context.Context, productID string) ([]dto.LocationQuantityDTO, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	entries, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toLocationQuantities(entries), nil
}

// AggregateValue suma de quantity * cost sobre todas las ubicaciones.
func (uc *StockQueryUseCase) AggregateValue(ctx context.Context, productID string) (decimal.Decimal, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	entries, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return aggregateValue(entries, product.Cost), nil
}

// GetStockStatus estado de alerta recalculado desde el ledger.
func (uc *StockQueryUseCase) GetStockStatus(ctx context.Context, productID string) (invdomain.StockStatus, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return "", err
	}
	total, err := uc.stockRepo.TotalByProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	return invdomain.EvaluateStockStatus(total, product.MinQuantity), nil
}

// GetProductSummary desglose, total, estado y valor derivados de una sola lectura de filas.
func (uc *StockQueryUseCase) GetProductSummary(ctx context.Context, productID string) (*dto.ProductStockSummaryDTO, error) {
	product, err := uc.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	entries, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	locations := toLocationQuantities(entries)
	var total int64
	for _, l := range locations {
		total += l.Quantity
	}
	return &dto.ProductStockSummaryDTO{
		ProductID:   product.ID,
		SKU:         product.SKU,
		MinQuantity: product.MinQuantity,
		Total:       total,
		Status:      string(invdomain.EvaluateStockStatus(total, product.MinQuantity)),
		Value:       aggregateValue(entries, product.Cost),
		Locations:   locations,
	}, nil
}

// ListMovements historial por producto/ubicación/rango de fechas, del más reciente al más antiguo.
func (uc *StockQueryUseCase) ListMovements(ctx context.Context, filter repository.MovementFilter) (*dto.MovementListResponse, error) {
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, fmt.Errorf("%w: from posterior a to", domain.ErrInvalidInput)
	}
	page := dto.PageRequest{Limit: filter.Limit, Offset: filter.Offset}
	page.DefaultPage()
	if page.Limit > maxMovementPage {
		page.Limit = maxMovementPage
	}
	filter.Limit, filter.Offset = page.Limit, page.Offset

	list, err := uc.movRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := uc.movRepo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, ToMovementResponse(m))
	}
	return &dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// Reconcile reconstruye el stock del producto reproduciendo su historial desde cero y lo compara
// con las filas almacenadas. Una diferencia indica escrituras fuera del motor de movimientos.
func (uc *StockQueryUseCase) Reconcile(ctx context.Context, productID string) (*dto.ReconciliationDTO, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	movements, err := uc.movRepo.List(ctx, repository.MovementFilter{ProductID: productID})
	if err != nil {
		return nil, err
	}
	entries, err := uc.stockRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	replayed := Replay(movements)
	stored := make(map[string]int64, len(entries))
	for _, e := range entries {
		stored[e.LocationID] = e.Quantity
	}

	locations := make([]string, 0, len(replayed)+len(stored))
	for loc := range replayed {
		locations = append(locations, loc)
	}
	for loc := range stored {
		if _, ok := replayed[loc]; !ok {
			locations = append(locations, loc)
		}
	}
	sort.Strings(locations)

	out := &dto.ReconciliationDTO{
		ProductID:     productID,
		MovementCount: len(movements),
		Discrepancies: []dto.DiscrepancyDTO{},
	}
	for _, loc := range locations {
		if stored[loc] != replayed[loc] {
			out.Discrepancies = append(out.Discrepancies, dto.DiscrepancyDTO{
				LocationID: loc, Stored: stored[loc], Replayed: replayed[loc],
			})
		}
	}
	out.Consistent = len(out.Discrepancies) == 0
	return out, nil
}

// Replay suma los efectos con signo de los movimientos por ubicación.
func Replay(movements []*entity.Movement) map[string]int64 {
	out := make(map[string]int64)
	for _, m := range movements {
		for _, eff := range m.Effects() {
			out[eff.Key.LocationID] += eff.Delta
		}
	}
	return out
}

func (uc *StockQueryUseCase) product(ctx context.Context, productID string) (*entity.Product, error) {
	if productID == "" {
		return nil, domain.ErrInvalidInput
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, fmt.Errorf("%w: producto %s", domain.ErrUnknownReference, productID)
	}
	return product, nil
}

func toLocationQuantities(entries []*entity.StockEntry) []dto.LocationQuantityDTO {
	out := make([]dto.LocationQuantityDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, dto.LocationQuantityDTO{LocationID: e.LocationID, Quantity: e.Quantity})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LocationID < out[j].LocationID })
	return out
}

func aggregateValue(entries []*entity.StockEntry, cost decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(invdomain.Valuation(e.Quantity, cost))
	}
	return total
}
