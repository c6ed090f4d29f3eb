package inventory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/domain"
	"github.com/jhoicas/stock-ledger/internal/domain/entity"
	invdomain "github.com/jhoicas/stock-ledger/internal/domain/inventory"
	"github.com/jhoicas/stock-ledger/internal/domain/repository"
)

// ValuationReportUseCase arma el reporte de valorización (cantidad × costo por ubicación) y lo renderiza en PDF.
type ValuationReportUseCase struct {
	stockRepo    repository.StockRepository
	productRepo  repository.ProductRepository
	locationRepo repository.LocationRepository
	pdfGen       ValuationPDFGenerator
	now          func() time.Time
}

// NewValuationReportUseCase construye el reporte de valorización sobre los repositorios y el generador PDF.
func NewValuationReportUseCase(
	stockRepo repository.StockRepository,
	productRepo repository.ProductRepository,
	locationRepo repository.LocationRepository,
	pdfGen ValuationPDFGenerator,
) *ValuationReportUseCase {
	return &ValuationReportUseCase{
		stockRepo:    stockRepo,
		productRepo:  productRepo,
		locationRepo: locationRepo,
		pdfGen:       pdfGen,
		now:          time.Now,
	}
}

// Build arma el reporte para los productos indicados. Las filas en cero se omiten.
func (uc *ValuationReportUseCase) Build(ctx context.Context, productIDs []string) (*ValuationReport, error) {
	if len(productIDs) == 0 {
		return nil, fmt.Errorf("%w: se requiere al menos un product_id", domain.ErrInvalidInput)
	}

	ids := append([]string(nil), productIDs...)
	sort.Strings(ids)

	report := &ValuationReport{
		Title:       "Valorización de inventario",
		GeneratedAt: uc.now().UTC(),
		TotalValue:  decimal.Zero,
	}
	locationNames := make(map[string]string)
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		product, err := uc.productRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if product == nil {
			return nil, fmt.Errorf("%w: producto %s", domain.ErrUnknownReference, id)
		}
		entries, err := uc.stockRepo.ListByProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.Quantity == 0 {
				continue
			}
			name, err := uc.locationName(ctx, locationNames, e.LocationID)
			if err != nil {
				return nil, err
			}
			line := valuationLine(product, e, name)
			report.Lines = append(report.Lines, line)
			report.TotalUnits += line.Quantity
			report.TotalValue = report.TotalValue.Add(line.Value)
		}
	}
	return report, nil
}

// GeneratePDF arma el reporte y devuelve el PDF.
func (uc *ValuationReportUseCase) GeneratePDF(ctx context.Context, productIDs []string) ([]byte, error) {
	if uc.pdfGen == nil {
		return nil, fmt.Errorf("generador de PDF no configurado")
	}
	report, err := uc.Build(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	return uc.pdfGen.GenerateValuationPDF(ctx, *report)
}

func (uc *ValuationReportUseCase) locationName(ctx context.Context, cache map[string]string, id string) (string, error) {
	if name, ok := cache[id]; ok {
		return name, nil
	}
	loc, err := uc.locationRepo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	name := id
	if loc != nil && loc.Name != "" {
		name = loc.Name
	}
	cache[id] = name
	return name, nil
}

func valuationLine(p *entity.Product, e *entity.StockEntry, locationName string) ValuationLine {
	return ValuationLine{
		ProductID:    p.ID,
		SKU:          p.SKU,
		ProductName:  p.Name,
		LocationID:   e.LocationID,
		LocationName: locationName,
		Quantity:     e.Quantity,
		UnitCost:     p.Cost,
		Value:        invdomain.Valuation(e.Quantity, p.Cost),
	}
}
