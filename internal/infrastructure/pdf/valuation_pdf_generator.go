// Package pdf genera el reporte de valorización de inventario (cantidad × costo por ubicación).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título                      │  Fecha de corte       │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: SKU | Producto | Ubicación | Cant | Costo | Valor    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Unidades / Valor total                             │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

var _ inventory.ValuationPDFGenerator = (*MarotoPDFGenerator)(nil)

// MarotoPDFGenerator implementa inventory.ValuationPDFGenerator usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// GenerateValuationPDF genera el PDF y devuelve sus bytes.
func (g *MarotoPDFGenerator) GenerateValuationPDF(_ context.Context, report inventory.ValuationReport) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(report.Title, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(report))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(tableHeaderRow())
	if len(report.Lines) == 0 {
		m.AddRows(row.New(8).Add(col.New(12).Add(
			text.New("Sin existencias para los productos seleccionados.", props.Text{
				Size: 8, Align: align.Center, Color: colorGray, Top: 2,
			}),
		)))
	}
	for _, r := range tableDetailRows(report.Lines) {
		m.AddRows(r)
	}
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(report))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func headerRow(report inventory.ValuationReport) core.Row {
	return row.New(16).Add(
		col.New(8).Add(
			text.New(strings.ToUpper(report.Title), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 2,
			}),
		),
		col.New(4).Add(
			text.New("Fecha de corte", props.Text{
				Size: 8, Align: align.Right, Color: colorGray, Top: 2,
			}),
			text.New(report.GeneratedAt.Format("02/01/2006 15:04 UTC"), props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Right, Top: 8,
			}),
		),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("SKU", 2, align.Left),
		h("Producto", 3, align.Left),
		h("Ubicación", 2, align.Left),
		h("Cant.", 1, align.Right),
		h("Costo unit.", 2, align.Right),
		h("Valor", 2, align.Right),
	)
}

func tableDetailRows(lines []inventory.ValuationLine) []core.Row {
	result := make([]core.Row, 0, len(lines))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, l := range lines {
		result = append(result, row.New(7).Add(
			cell(l.SKU, 2, align.Left),
			cell(l.ProductName, 3, align.Left),
			cell(l.LocationName, 2, align.Left),
			cell(formatThousands(strconv.FormatInt(l.Quantity, 10)), 1, align.Right),
			cell("$"+formatMoney(l.UnitCost), 2, align.Right),
			cell("$"+formatMoney(l.Value), 2, align.Right),
		))
	}
	return result
}

func totalsRow(report inventory.ValuationReport) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	return row.New(16).Add(
		col.New(6),
		col.New(3).Add(
			label("Unidades:"),
			text.New("VALOR TOTAL:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 6,
			}),
		),
		col.New(3).Add(
			text.New(formatThousands(strconv.FormatInt(report.TotalUnits, 10)), props.Text{
				Size: 9, Align: align.Right, Right: 1,
			}),
			text.New("$"+formatMoney(report.TotalValue), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 6,
			}),
		),
	)
}

// formatMoney dos decimales con coma decimal y puntos de miles. Ej: 1234567.5 → "1.234.567,50".
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	return formatThousands(intPart) + "," + frac
}

// formatThousands inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	n := len(s)
	if n <= 3 {
		return sign + s
	}
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return sign + string(buf)
}
