package pricing_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// TestReconcile_CompletaTotal: unitario y cantidad presentes, total ausente.
func TestReconcile_CompletaTotal(t *testing.T) {
	u, q, total, ok := pricing.Reconcile(d(10_000), d(3), decimal.Zero, pricing.DefaultTolerance)

	assert.True(t, u.Equal(d(10_000)))
	assert.True(t, q.Equal(d(3)))
	assert.True(t, total.Equal(d(30_000)), "total = 10000×3 = 30000, se obtuvo %s", total)
	assert.True(t, ok)
}

// TestReconcile_CompletaUnitario: total y cantidad presentes, unitario ausente.
func TestReconcile_CompletaUnitario(t *testing.T) {
	u, _, _, ok := pricing.Reconcile(decimal.Zero, d(2), d(10_000), pricing.DefaultTolerance)

	assert.True(t, u.Equal(d(5_000)), "unitario = 10000/2 = 5000, se obtuvo %s", u)
	assert.True(t, ok)
}

// TestReconcile_CantidadPorDefecto: cantidad ausente o no positiva vale 1.
func TestReconcile_CantidadPorDefecto(t *testing.T) {
	_, q, total, _ := pricing.Reconcile(d(8_000), decimal.Zero, decimal.Zero, pricing.DefaultTolerance)
	assert.True(t, q.Equal(d(1)), "cantidad ausente debe valer 1")
	assert.True(t, total.Equal(d(8_000)))

	_, q, _, _ = pricing.Reconcile(d(8_000), d(-4), decimal.Zero, pricing.DefaultTolerance)
	assert.True(t, q.Equal(d(1)), "cantidad negativa debe valer 1")
}

// TestReconcile_TotalExplicitoManda: con ambos valores explícitos el total no
// se sobrescribe aunque contradiga unitario×cantidad; solo se marca.
func TestReconcile_TotalExplicitoManda(t *testing.T) {
	u, _, total, ok := pricing.Reconcile(d(10_000), d(3), d(25_000), pricing.DefaultTolerance)

	assert.True(t, u.Equal(d(10_000)), "el unitario explícito no debe cambiar")
	assert.True(t, total.Equal(d(25_000)), "el total explícito no debe cambiar")
	assert.False(t, ok, "25000 difiere de 30000 en más del 1%: consistent=false")
}

// TestReconcile_ToleranciaRelativa: desviaciones dentro del 1% son consistentes.
func TestReconcile_ToleranciaRelativa(t *testing.T) {
	// 30.000 esperado; 30.200 se desvía 0,67% → consistente
	_, _, _, ok := pricing.Reconcile(d(10_000), d(3), d(30_200), pricing.DefaultTolerance)
	assert.True(t, ok, "desviación del 0,67%% está dentro de la tolerancia del 1%%")

	// 30.500 se desvía 1,67% → inconsistente
	_, _, _, ok = pricing.Reconcile(d(10_000), d(3), d(30_500), pricing.DefaultTolerance)
	assert.False(t, ok, "desviación del 1,67%% excede la tolerancia del 1%%")
}

func TestReconcileItem_ConservaProcedencia(t *testing.T) {
	raw := entity.RawLineItem{
		RawName:    "Tomate chonto x kilo",
		UnitPrice:  d(4_500),
		Quantity:   d(2),
		SourcePage: 3,
	}

	item := pricing.ReconcileItem(raw, pricing.DefaultTolerance)

	assert.Equal(t, raw, item.Raw, "el crudo debe conservarse intacto para auditoría")
	assert.True(t, item.TotalPrice.Equal(d(9_000)))
	assert.Equal(t, 3, item.Raw.SourcePage)
}
