package comparison

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/domain/catalog"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/internal/domain/repository"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// Umbrales de clasificación sobre la desviación porcentual frente al promedio
// del catálogo. Un escaneado por debajo de la mitad del promedio es sospechoso
// (probable error de OCR o de unidad), no una ganga.
var (
	pctSuspiciousLow = decimal.NewFromInt(50) // precio < 50% del promedio
	pctBelowAverage  = decimal.NewFromInt(-5) // desviación ≤ −5%
	pctAboveAverage  = decimal.NewFromInt(5)  // desviación ≥ +5%
	pctOverpriced    = decimal.NewFromInt(20) // desviación ≥ +20%
	cien             = decimal.NewFromInt(100)
)

const maxBetterDeals = 3

// CompareReport resultado de comparar una factura completa contra el catálogo.
type CompareReport struct {
	Results []entity.ComparisonResult
	Summary entity.InvoiceSummary
}

// CompareUseCase compara los ítems de una factura escaneada contra los precios
// activos del catálogo y calcula el ahorro potencial por ítem y agregado.
type CompareUseCase struct {
	standardizer *catalog.Standardizer
	prices       repository.PriceRecordRepository
	tolerance    decimal.Decimal
	log          *logger.Logger
}

// NewCompareUseCase construye el caso de uso de comparación.
func NewCompareUseCase(
	standardizer *catalog.Standardizer,
	prices repository.PriceRecordRepository,
	tolerance decimal.Decimal,
	log *logger.Logger,
) *CompareUseCase {
	return &CompareUseCase{
		standardizer: standardizer,
		prices:       prices,
		tolerance:    tolerance,
		log:          log,
	}
}

// Compare reconcilia cada ítem, lo canonicaliza y lo confronta con los
// registros activos de su llave. Los ítems sin match quedan como not_found y
// no aportan ahorro; el fallo de consulta de un ítem no tumba la factura.
func (uc *CompareUseCase) Compare(ctx context.Context, items []entity.RawLineItem) (*CompareReport, error) {
	report := &CompareReport{
		Results: make([]entity.ComparisonResult, 0, len(items)),
	}
	report.Summary.TotalItems = len(items)

	for _, raw := range items {
		rec := pricing.ReconcileItem(raw, uc.tolerance)
		res := uc.compareItem(ctx, rec)
		report.Results = append(report.Results, res)

		// TotalCurrent suma SIEMPRE el total de línea, nunca el unitario.
		report.Summary.TotalCurrent = report.Summary.TotalCurrent.Add(rec.TotalPrice)
		report.Summary.TotalSavings = report.Summary.TotalSavings.Add(res.TotalSavings)

		if !res.IsNew {
			report.Summary.FoundItems++
		}
		switch res.Status {
		case entity.ComparisonOverpriced:
			report.Summary.OverpricedItems++
		case entity.ComparisonBelowAverage, entity.ComparisonSuspiciouslyLow:
			report.Summary.GoodDeals++
		}
	}
	return report, nil
}

func (uc *CompareUseCase) compareItem(ctx context.Context, rec entity.ReconciledLineItem) entity.ComparisonResult {
	res := entity.ComparisonResult{
		InvoiceItem:  rec,
		Status:       entity.ComparisonNotFound,
		IsNew:        true,
		UnitSavings:  decimal.Zero,
		TotalSavings: decimal.Zero,
	}

	prod := uc.standardizer.Standardize(rec.Raw.RawName, rec.Raw.Unit)

	active, err := uc.prices.ActiveByKey(ctx, prod.Key())
	if err != nil {
		uc.log.Error().Err(err).Str("llave", prod.Key()).
			Msg("consulta de catálogo falló; el ítem queda como not_found")
		return res
	}
	if len(active) == 0 {
		return res
	}

	// MatchedProduct solo viaja cuando hubo match real: un not_found (sin
	// registros o por consulta degradada) no debe leerse como emparejado.
	res.IsNew = false
	res.MatchedProduct = &prod
	res.Analysis = analyze(rec.UnitPrice, active)
	res.Status = classify(rec.UnitPrice, res.Analysis)

	// UnitSavings nunca es negativo: comprar por debajo del mínimo no genera
	// ahorro pendiente.
	if rec.UnitPrice.GreaterThan(res.Analysis.MinPrice) {
		res.UnitSavings = rec.UnitPrice.Sub(res.Analysis.MinPrice)
		res.TotalSavings = res.UnitSavings.Mul(rec.Quantity)
	}
	return res
}

// analyze agrega los registros activos y arma la lista de mejores ofertas
// frente al precio escaneado.
func analyze(scanned decimal.Decimal, active []entity.PriceRecord) *entity.PriceAnalysis {
	a := &entity.PriceAnalysis{
		MinPrice:      active[0].Amount,
		MaxPrice:      active[0].Amount,
		SupplierCount: len(active),
	}

	sum := decimal.Zero
	for _, r := range active {
		sum = sum.Add(r.Amount)
		if r.Amount.LessThan(a.MinPrice) {
			a.MinPrice = r.Amount
		}
		if r.Amount.GreaterThan(a.MaxPrice) {
			a.MaxPrice = r.Amount
		}
	}
	a.AvgPrice = sum.Div(decimal.NewFromInt(int64(len(active)))).Round(2)

	if a.AvgPrice.Sign() > 0 {
		a.DeviationPct = scanned.Sub(a.AvgPrice).Div(a.AvgPrice).Mul(cien).Round(2)
	}

	cheaper := make([]entity.PriceRecord, 0, len(active))
	for _, r := range active {
		if r.Amount.LessThan(scanned) {
			cheaper = append(cheaper, r)
		}
	}
	sort.SliceStable(cheaper, func(i, j int) bool {
		if !cheaper[i].Amount.Equal(cheaper[j].Amount) {
			return cheaper[i].Amount.LessThan(cheaper[j].Amount)
		}
		return cheaper[i].SupplierID < cheaper[j].SupplierID
	})
	if len(cheaper) > maxBetterDeals {
		cheaper = cheaper[:maxBetterDeals]
	}
	for _, r := range cheaper {
		a.BetterDeals = append(a.BetterDeals, entity.BetterDeal{
			SupplierID: r.SupplierID,
			Amount:     r.Amount,
			Unit:       r.Unit,
		})
	}
	a.HasBetterDeals = len(a.BetterDeals) > 0
	a.IsBestPrice = !scanned.GreaterThan(a.MinPrice)
	return a
}

// classify ubica el precio escaneado en la banda de desviación. La banda
// sospechosa se evalúa primero para no reportar errores de captura como gangas.
func classify(scanned decimal.Decimal, a *entity.PriceAnalysis) entity.ComparisonStatus {
	if a.AvgPrice.Sign() > 0 {
		ratio := scanned.Div(a.AvgPrice).Mul(cien)
		if ratio.LessThan(pctSuspiciousLow) {
			return entity.ComparisonSuspiciouslyLow
		}
	}

	dev := a.DeviationPct
	switch {
	case dev.GreaterThanOrEqual(pctOverpriced):
		return entity.ComparisonOverpriced
	case dev.GreaterThanOrEqual(pctAboveAverage):
		return entity.ComparisonAboveAverage
	case dev.LessThanOrEqual(pctBelowAverage):
		return entity.ComparisonBelowAverage
	default:
		return entity.ComparisonNormal
	}
}
