package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// CategoryRange rango plausible de precio unitario (COP) para una categoría.
// BulkOnly marca categorías que se venden al granel: un precio por "und"
// suelto es señal de error de extracción.
type CategoryRange struct {
	Min      decimal.Decimal
	Max      decimal.Decimal
	BulkOnly bool
}

// DefaultCategoryRanges rangos de plausibilidad por categoría del léxico.
// Valores en pesos colombianos por unidad de venta típica.
func DefaultCategoryRanges() map[string]CategoryRange {
	cop := decimal.NewFromInt
	return map[string]CategoryRange{
		"verduras":  {Min: cop(5_000), Max: cop(200_000)},
		"frutas":    {Min: cop(4_000), Max: cop(300_000)},
		"lacteos":   {Min: cop(15_000), Max: cop(800_000)},
		"quesos":    {Min: cop(50_000), Max: cop(5_000_000)},
		"carnes":    {Min: cop(30_000), Max: cop(2_000_000)},
		"granos":    {Min: cop(20_000), Max: cop(1_500_000), BulkOnly: true},
		"bebidas":   {Min: cop(2_000), Max: cop(500_000)},
		"panaderia": {Min: cop(1_000), Max: cop(100_000)},
		"huevos":    {Min: cop(10_000), Max: cop(120_000)},
		"aseo":      {Min: cop(3_000), Max: cop(400_000)},
	}
}

// Validator verifica plausibilidad de precio y unidad por categoría.
// Siempre consultivo: el resultado se adjunta al ítem y jamás lo bloquea.
type Validator struct {
	ranges map[string]CategoryRange
}

// NewValidator construye el validador; con nil usa los rangos por defecto.
func NewValidator(ranges map[string]CategoryRange) *Validator {
	if ranges == nil {
		ranges = DefaultCategoryRanges()
	}
	return &Validator{ranges: ranges}
}

// unidades sueltas incompatibles con categorías de granel
var looseUnits = map[string]bool{
	"und": true, "unidad": true, "un": true, "u": true, "pieza": true,
	"pza": true, "doc": true, "docena": true,
}

// Validate compara el precio unitario reconciliado contra el rango de su
// categoría y la granularidad de empaque esperada.
func (v *Validator) Validate(item entity.ReconciledLineItem, category string) entity.ValidationResult {
	r, ok := v.ranges[category]
	if !ok {
		return entity.ValidationResult{
			Status: entity.ValidationOK,
			Detail: fmt.Sprintf("categoría %q sin rango definido", category),
		}
	}

	price := item.UnitPrice
	switch {
	case price.Sign() > 0 && price.LessThan(r.Min):
		return entity.ValidationResult{
			Status: entity.ValidationSuspiciousLow,
			Detail: fmt.Sprintf("precio %s por debajo del mínimo %s de %s", price, r.Min, category),
		}
	case price.GreaterThan(r.Max):
		return entity.ValidationResult{
			Status: entity.ValidationSuspiciousHigh,
			Detail: fmt.Sprintf("precio %s por encima del máximo %s de %s", price, r.Max, category),
		}
	}

	if r.BulkOnly && looseUnits[item.Raw.Unit] {
		return entity.ValidationResult{
			Status: entity.ValidationUnitMismatch,
			Detail: fmt.Sprintf("categoría %s se vende al granel pero el ítem viene por %q", category, item.Raw.Unit),
		}
	}

	return entity.ValidationResult{Status: entity.ValidationOK}
}
