package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// fakeStrategy estrategia de prueba con resultado fijo.
type fakeStrategy struct {
	name    string
	handles bool
	result  *ports.ExtractionResult
	err     error
	called  bool
}

func (f *fakeStrategy) Name() string                      { return f.name }
func (f *fakeStrategy) CanHandle(_ *entity.Document) bool { return f.handles }
func (f *fakeStrategy) Extract(_ context.Context, _ *entity.Document) (*ports.ExtractionResult, error) {
	f.called = true
	return f.result, f.err
}

func itemsDePrueba(n int) []entity.RawLineItem {
	out := make([]entity.RawLineItem, n)
	for i := range out {
		out[i] = entity.RawLineItem{RawName: "producto", UnitPrice: decimal.NewFromInt(10_000)}
	}
	return out
}

func TestDispatcher_AceptaLaPrimeraQueSuperaElUmbral(t *testing.T) {
	tabla := &fakeStrategy{name: "tabla", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(8), Completeness: 0.8}}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(3), Completeness: 0.9}}

	d := NewDispatcher([]ports.ExtractionStrategy{tabla, texto}, 0.5, logger.Nop())
	res, attempts, err := d.Extract(context.Background(), &entity.Document{})

	require.NoError(t, err)
	assert.Equal(t, 8, len(res.Items), "gana la primera estrategia sobre el umbral, no la de mayor completitud")
	assert.False(t, res.Incomplete)
	assert.False(t, texto.called, "no debe intentarse la siguiente estrategia tras una aceptación")
	assert.Len(t, attempts, 1)
}

// TestDispatcher_CaeALaSiguiente: tabla con completitud baja → se intenta
// patrón de texto.
func TestDispatcher_CaeALaSiguiente(t *testing.T) {
	tabla := &fakeStrategy{name: "tabla", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(1), Completeness: 0.1}}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(6), Completeness: 0.7}}

	d := NewDispatcher([]ports.ExtractionStrategy{tabla, texto}, 0.5, logger.Nop())
	res, attempts, err := d.Extract(context.Background(), &entity.Document{})

	require.NoError(t, err)
	assert.Equal(t, 6, len(res.Items))
	assert.Len(t, attempts, 2, "el diagnóstico registra ambos intentos")
}

// TestDispatcher_ErrorNoAborta: el error de una estrategia cae a la
// siguiente en vez de abortar el documento.
func TestDispatcher_ErrorNoAborta(t *testing.T) {
	tabla := &fakeStrategy{name: "tabla", handles: true, err: errors.New("xlsx corrupto")}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(4), Completeness: 0.6}}

	d := NewDispatcher([]ports.ExtractionStrategy{tabla, texto}, 0.5, logger.Nop())
	res, attempts, err := d.Extract(context.Background(), &entity.Document{})

	require.NoError(t, err)
	assert.Equal(t, 4, len(res.Items))
	require.Len(t, attempts, 2)
	assert.Contains(t, attempts[0].Err, "xlsx corrupto")
}

// TestDispatcher_MejorParcialMarcadoIncomplete: si ninguna estrategia alcanza
// el umbral se devuelve la de mayor completitud, marcada incomplete, y las
// etapas siguientes procesan el parcial.
func TestDispatcher_MejorParcialMarcadoIncomplete(t *testing.T) {
	tabla := &fakeStrategy{name: "tabla", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(2), Completeness: 0.2}}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(4), Completeness: 0.4}}

	d := NewDispatcher([]ports.ExtractionStrategy{tabla, texto}, 0.5, logger.Nop())
	res, _, err := d.Extract(context.Background(), &entity.Document{})

	require.NoError(t, err)
	assert.True(t, res.Incomplete)
	assert.Equal(t, 4, len(res.Items), "se queda la de mayor completitud")
}

// TestDispatcher_FalloSoloConCeroItems: el fallo a nivel de documento ocurre
// únicamente cuando toda estrategia produjo cero ítems utilizables.
func TestDispatcher_FalloSoloConCeroItems(t *testing.T) {
	tabla := &fakeStrategy{name: "tabla", handles: true, err: errors.New("sin encabezado")}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: nil, Completeness: 0}}

	d := NewDispatcher([]ports.ExtractionStrategy{tabla, texto}, 0.5, logger.Nop())
	_, attempts, err := d.Extract(context.Background(), &entity.Document{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrDocumentUnusable))
	assert.Contains(t, err.Error(), "sin encabezado", "el diagnóstico lleva el detalle de los intentos")
	assert.Len(t, attempts, 2)
}

func TestDispatcher_IgnoraEstrategiasQueNoAplican(t *testing.T) {
	vision := &fakeStrategy{name: "vision", handles: false}
	texto := &fakeStrategy{name: "texto", handles: true,
		result: &ports.ExtractionResult{Items: itemsDePrueba(5), Completeness: 0.8}}

	d := NewDispatcher([]ports.ExtractionStrategy{vision, texto}, 0.5, logger.Nop())
	_, attempts, err := d.Extract(context.Background(), &entity.Document{})

	require.NoError(t, err)
	assert.False(t, vision.called)
	assert.Len(t, attempts, 1)
}
