package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// CompareItemRequest un ítem de factura escaneada a comparar. Los campos
// numéricos ausentes van en cero; la reconciliación los completa.
type CompareItemRequest struct {
	Name       string          `json:"name"`
	Unit       string          `json:"unit"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Quantity   decimal.Decimal `json:"quantity"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// CompareRequest cuerpo de POST /api/invoices/compare.
type CompareRequest struct {
	Items []CompareItemRequest `json:"items"`
}

// MatchedProductResponse producto canónico emparejado en el catálogo.
type MatchedProductResponse struct {
	CanonicalName    string  `json:"canonical_name"`
	CanonicalUnit    string  `json:"canonical_unit"`
	Category         string  `json:"category"`
	DetectedLanguage string  `json:"detected_language,omitempty"`
	Confidence       float64 `json:"confidence"`
}

// BetterDealResponse proveedor alternativo más barato que el precio escaneado.
type BetterDealResponse struct {
	SupplierID string          `json:"supplier_id"`
	Price      decimal.Decimal `json:"price"`
	Unit       string          `json:"unit"`
}

// PriceAnalysisResponse agregado de precios activos para la llave del ítem.
type PriceAnalysisResponse struct {
	MinPrice       decimal.Decimal      `json:"min_price"`
	MaxPrice       decimal.Decimal      `json:"max_price"`
	AvgPrice       decimal.Decimal      `json:"avg_price"`
	SupplierCount  int                  `json:"supplier_count"`
	DeviationPct   decimal.Decimal      `json:"deviation_pct"`
	BetterDeals    []BetterDealResponse `json:"better_deals"`
	HasBetterDeals bool                 `json:"has_better_deals"`
	IsBestPrice    bool                 `json:"is_best_price"`
}

// ComparisonItemResponse veredicto por ítem de la factura (esquema de salida
// de la comparación).
type ComparisonItemResponse struct {
	ProductName    string                  `json:"product_name"`
	ScannedPrice   decimal.Decimal         `json:"scanned_price"`
	Quantity       decimal.Decimal         `json:"quantity"`
	Status         string                  `json:"status"`
	IsNew          bool                    `json:"is_new"`
	MatchedProduct *MatchedProductResponse `json:"matched_product,omitempty"`
	PriceAnalysis  *PriceAnalysisResponse  `json:"price_analysis,omitempty"`
	UnitSavings    decimal.Decimal         `json:"unit_savings"`
	TotalSavings   decimal.Decimal         `json:"total_savings"`
}

// InvoiceSummaryResponse agregado de la factura completa.
type InvoiceSummaryResponse struct {
	TotalCurrent    decimal.Decimal `json:"total_current"`
	TotalSavings    decimal.Decimal `json:"total_savings"`
	TotalItems      int             `json:"total_items"`
	FoundItems      int             `json:"found_items"`
	OverpricedItems int             `json:"overpriced_items"`
	GoodDeals       int             `json:"good_deals"`
}

// CompareResponse respuesta completa de la comparación.
type CompareResponse struct {
	Results []ComparisonItemResponse `json:"results"`
	Summary InvoiceSummaryResponse   `json:"summary"`
}

// ComparisonItemFrom proyecta el resultado de dominio al esquema de salida.
func ComparisonItemFrom(r entity.ComparisonResult) ComparisonItemResponse {
	out := ComparisonItemResponse{
		ProductName:  r.InvoiceItem.Raw.RawName,
		ScannedPrice: r.InvoiceItem.UnitPrice,
		Quantity:     r.InvoiceItem.Quantity,
		Status:       string(r.Status),
		IsNew:        r.IsNew,
		UnitSavings:  r.UnitSavings,
		TotalSavings: r.TotalSavings,
	}
	if r.MatchedProduct != nil {
		out.MatchedProduct = &MatchedProductResponse{
			CanonicalName:    r.MatchedProduct.CanonicalName,
			CanonicalUnit:    r.MatchedProduct.CanonicalUnit,
			Category:         r.MatchedProduct.Category,
			DetectedLanguage: r.MatchedProduct.DetectedLanguage,
			Confidence:       r.MatchedProduct.Confidence,
		}
	}
	if r.Analysis != nil {
		pa := &PriceAnalysisResponse{
			MinPrice:       r.Analysis.MinPrice,
			MaxPrice:       r.Analysis.MaxPrice,
			AvgPrice:       r.Analysis.AvgPrice,
			SupplierCount:  r.Analysis.SupplierCount,
			DeviationPct:   r.Analysis.DeviationPct,
			BetterDeals:    make([]BetterDealResponse, 0, len(r.Analysis.BetterDeals)),
			HasBetterDeals: r.Analysis.HasBetterDeals,
			IsBestPrice:    r.Analysis.IsBestPrice,
		}
		for _, bd := range r.Analysis.BetterDeals {
			pa.BetterDeals = append(pa.BetterDeals, BetterDealResponse{
				SupplierID: bd.SupplierID,
				Price:      bd.Amount,
				Unit:       bd.Unit,
			})
		}
		out.PriceAnalysis = pa
	}
	return out
}

// PriceHistoryEntryResponse un registro del historial append-only.
type PriceHistoryEntryResponse struct {
	SupplierID string          `json:"supplier_id"`
	Amount     decimal.Decimal `json:"amount"`
	Unit       string          `json:"unit"`
	ValidFrom  string          `json:"valid_from"`
	ValidTo    string          `json:"valid_to,omitempty"`
	Active     bool            `json:"active"`
}
