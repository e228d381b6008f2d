package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// DefaultTolerance tolerancia relativa por defecto (1 %) para la verificación
// de consistencia total ≈ unitario × cantidad.
var DefaultTolerance = decimal.NewFromFloat(0.01)

var uno = decimal.NewFromInt(1)

// Reconcile completa los campos unit_price, quantity y total_price de un ítem
// y verifica su coherencia interna. Reglas:
//
//   - cantidad ausente o ≤ 0 → 1.
//   - unitario ausente con total y cantidad presentes → unitario = total/cantidad.
//   - total ausente con unitario y cantidad presentes → total = unitario×cantidad.
//   - con unitario y total ambos explícitos, el total manda; si se desvía de
//     unitario×cantidad más allá de la tolerancia relativa se marca
//     consistent=false, pero ninguno de los dos valores se sobrescribe.
//
// Debe ejecutarse antes de calcular cualquier agregado: es el punto que
// corrige la clase de defecto "Total = Σ precio unitario".
func Reconcile(unitPrice, quantity, totalPrice, tolerance decimal.Decimal) (u, q, t decimal.Decimal, consistent bool) {
	q = quantity
	if q.Sign() <= 0 {
		q = uno
	}
	u = unitPrice
	t = totalPrice
	consistent = true

	hasUnit := u.Sign() > 0
	hasTotal := t.Sign() > 0

	switch {
	case !hasUnit && hasTotal:
		u = t.DivRound(q, 2)
	case hasUnit && !hasTotal:
		t = u.Mul(q)
	case hasUnit && hasTotal:
		expected := u.Mul(q)
		diff := t.Sub(expected).Abs()
		consistent = diff.LessThanOrEqual(expected.Mul(tolerance))
	}
	return u, q, t, consistent
}

// ReconcileItem aplica Reconcile sobre un RawLineItem y produce el registro
// derivado, conservando el crudo como procedencia.
func ReconcileItem(raw entity.RawLineItem, tolerance decimal.Decimal) entity.ReconciledLineItem {
	u, q, t, ok := Reconcile(raw.UnitPrice, raw.Quantity, raw.TotalPrice, tolerance)
	return entity.ReconciledLineItem{
		Raw:        raw,
		UnitPrice:  u,
		Quantity:   q,
		TotalPrice: t,
		Consistent: ok,
	}
}
