package entity

import "github.com/shopspring/decimal"

// ComparisonStatus clasifica el precio escaneado frente al promedio del
// catálogo para el mismo producto canónico.
type ComparisonStatus string

const (
	ComparisonNotFound        ComparisonStatus = "not_found"
	ComparisonNormal          ComparisonStatus = "normal"
	ComparisonAboveAverage    ComparisonStatus = "above_average"
	ComparisonOverpriced      ComparisonStatus = "overpriced"
	ComparisonBelowAverage    ComparisonStatus = "below_average"
	ComparisonSuspiciouslyLow ComparisonStatus = "suspiciously_low"
)

// BetterDeal es un proveedor alternativo con precio unitario menor al escaneado.
type BetterDeal struct {
	SupplierID string
	Amount     decimal.Decimal
	Unit       string
}

// PriceAnalysis agrega los precios activos del catálogo para una llave canónica.
type PriceAnalysis struct {
	MinPrice       decimal.Decimal
	MaxPrice       decimal.Decimal
	AvgPrice       decimal.Decimal
	SupplierCount  int
	DeviationPct   decimal.Decimal // desviación del precio escaneado frente al promedio
	BetterDeals    []BetterDeal    // máximo 3, ascendente por precio
	HasBetterDeals bool
	IsBestPrice    bool
}

// ComparisonResult es el veredicto por ítem de factura.
type ComparisonResult struct {
	InvoiceItem    ReconciledLineItem
	MatchedProduct *StandardizedProduct
	IsNew          bool // sin match en catálogo; no se calculan ahorros
	Status         ComparisonStatus
	Analysis       *PriceAnalysis
	// UnitSavings = max(0, precio_unitario_escaneado − precio_mínimo).
	UnitSavings decimal.Decimal
	// TotalSavings = UnitSavings × cantidad. Siempre ponderado por cantidad.
	TotalSavings decimal.Decimal
}

// InvoiceSummary agrega la factura completa.
// Invariantes: TotalCurrent = Σ total_price (nunca Σ precio unitario) y
// TotalSavings = Σ TotalSavings por ítem (ponderado por cantidad).
type InvoiceSummary struct {
	TotalCurrent    decimal.Decimal
	TotalSavings    decimal.Decimal
	TotalItems      int
	FoundItems      int
	OverpricedItems int
	GoodDeals       int
}
