// Package pdf implementa el Informe de Ahorros de una factura comparada
// contra el catálogo de proveedores.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Informe de Ahorros + fecha de generación           │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RESUMEN: total factura / ahorro potencial / ítems          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Producto | Cant | Pagado | Mín. mercado | Ahorro    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  MEJORES OFERTAS: proveedor más barato por ítem con ahorro  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

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

	"github.com/jhoicas/precios-api/internal/application/comparison"
	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 102, Blue: 51}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 40, Blue: 40}
)

// ── Generator ─────────────────────────────────────────────────────────────────

var _ comparison.ReportGenerator = (*SavingsReportGenerator)(nil)

// SavingsReportGenerator implementa comparison.ReportGenerator usando Maroto v2.
type SavingsReportGenerator struct{}

// NewSavingsReportGenerator construye el generador.
func NewSavingsReportGenerator() *SavingsReportGenerator { return &SavingsReportGenerator{} }

// GenerateSavingsReport genera el PDF del informe y devuelve sus bytes.
func (g *SavingsReportGenerator) GenerateSavingsReport(
	_ context.Context,
	report *comparison.CompareReport,
) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Informe de Ahorros", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow())
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(report.Summary))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	for _, r := range tableItemRows(report.Results) {
		m.AddRows(r)
	}

	if deals := bestDealRows(report.Results); len(deals) > 0 {
		m.AddRows(line.NewRow(3))
		m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
		for _, r := range deals {
			m.AddRows(r)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar informe: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow() core.Row {
	fecha := time.Now().Format("02/01/2006 15:04")
	return row.New(14).Add(
		col.New(8).Add(
			text.New("INFORME DE AHORROS", props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Comparación de factura contra el catálogo de proveedores", props.Text{
				Size: 8, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("Generado: "+fecha, props.Text{
				Size: 8, Align: align.Right, Top: 2, Color: colorGray,
			}),
		),
	)
}

// summaryRow: total pagado, ahorro potencial y conteos de la factura.
func summaryRow(s entity.InvoiceSummary) core.Row {
	metric := func(label, value string, c *props.Color) []core.Component {
		return []core.Component{
			text.New(label, props.Text{Size: 7.5, Color: colorGray, Top: 1}),
			text.New(value, props.Text{Style: fontstyle.Bold, Size: 12, Color: c, Top: 6}),
		}
	}
	return row.New(16).Add(
		col.New(3).Add(metric("TOTAL FACTURA", "$"+formatMoney(s.TotalCurrent.StringFixed(0)), colorPrimary)...),
		col.New(3).Add(metric("AHORRO POTENCIAL", "$"+formatMoney(s.TotalSavings.StringFixed(0)), colorAlert)...),
		col.New(3).Add(metric("ÍTEMS COMPARADOS", fmt.Sprintf("%d de %d", s.FoundItems, s.TotalItems), colorPrimary)...),
		col.New(3).Add(metric("SOBREPRECIOS", fmt.Sprintf("%d", s.OverpricedItems), colorAlert)...),
	)
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorPrimary, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Producto", 4, align.Left),
		h("Cant.", 1, align.Center),
		h("Pagado", 2, align.Right),
		h("Mín. mercado", 2, align.Right),
		h("Ahorro", 2, align.Right),
		h("Estado", 1, align.Center),
	)
}

func tableItemRows(results []entity.ComparisonResult) []core.Row {
	rows := make([]core.Row, 0, len(results))
	for _, r := range results {
		minimum, savings := "—", "—"
		if r.Analysis != nil {
			minimum = "$" + formatMoney(r.Analysis.MinPrice.StringFixed(0))
		}
		if r.TotalSavings.Sign() > 0 {
			savings = "$" + formatMoney(r.TotalSavings.StringFixed(0))
		}

		stateColor := colorGray
		if r.Status == entity.ComparisonOverpriced {
			stateColor = colorAlert
		}

		rows = append(rows, row.New(7).Add(
			col.New(4).Add(text.New(
				r.InvoiceItem.Raw.RawName,
				props.Text{Size: 8, Align: align.Left, Top: 1, Left: 1},
			)),
			col.New(1).Add(text.New(
				r.InvoiceItem.Quantity.StringFixed(0),
				props.Text{Size: 8, Align: align.Center, Top: 1},
			)),
			col.New(2).Add(text.New(
				"$"+formatMoney(r.InvoiceItem.UnitPrice.StringFixed(0)),
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				minimum,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(2).Add(text.New(
				savings,
				props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1},
			)),
			col.New(1).Add(text.New(
				statusLabel(r.Status),
				props.Text{Size: 7, Align: align.Center, Top: 1.5, Color: stateColor},
			)),
		))
	}
	return rows
}

// bestDealRows: para cada ítem con ahorro, el proveedor más barato.
func bestDealRows(results []entity.ComparisonResult) []core.Row {
	var rows []core.Row
	for _, r := range results {
		if r.Analysis == nil || !r.Analysis.HasBetterDeals {
			continue
		}
		if len(rows) == 0 {
			rows = append(rows, row.New(8).Add(col.New(12).Add(
				text.New("DÓNDE COMPRAR MÁS BARATO", props.Text{
					Style: fontstyle.Bold, Size: 9, Color: colorPrimary, Top: 2,
				}),
			)))
		}
		best := r.Analysis.BetterDeals[0]
		rows = append(rows, row.New(6).Add(col.New(12).Add(
			text.New(fmt.Sprintf("%s  →  %s a $%s/%s",
				r.InvoiceItem.Raw.RawName,
				best.SupplierID,
				formatMoney(best.Amount.StringFixed(0)),
				best.Unit,
			), props.Text{Size: 8, Color: colorGray, Top: 1, Left: 2}),
		)))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

func statusLabel(s entity.ComparisonStatus) string {
	switch s {
	case entity.ComparisonOverpriced:
		return "CARO"
	case entity.ComparisonAboveAverage:
		return "ALTO"
	case entity.ComparisonBelowAverage:
		return "BUENO"
	case entity.ComparisonSuspiciouslyLow:
		return "REVISAR"
	case entity.ComparisonNotFound:
		return "NUEVO"
	default:
		return "OK"
	}
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	buf := make([]byte, 0, n+n/3)
	lead := n % 3
	if lead > 0 {
		buf = append(buf, s[:lead]...)
	}
	for i := lead; i < n; i += 3 {
		if len(buf) > 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, s[i:i+3]...)
	}
	return string(buf)
}
