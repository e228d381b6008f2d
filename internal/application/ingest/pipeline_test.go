package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/catalog"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// memPriceRepo catálogo en memoria con semántica append-only de Supersede.
type memPriceRepo struct {
	mu      sync.Mutex
	records []entity.PriceRecord
}

func (m *memPriceRepo) ActiveByKey(_ context.Context, key string) ([]entity.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PriceRecord
	for _, r := range m.records {
		if r.ProductKey == key && r.Active() {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memPriceRepo) Supersede(_ context.Context, rec *entity.PriceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.records {
		if m.records[i].SupplierID == rec.SupplierID &&
			m.records[i].ProductKey == rec.ProductKey && m.records[i].Active() {
			t := rec.ValidFrom
			m.records[i].ValidTo = &t
		}
	}
	m.records = append(m.records, *rec)
	return nil
}

func (m *memPriceRepo) HistoryByKey(_ context.Context, key string, limit int) ([]entity.PriceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PriceRecord
	for _, r := range m.records {
		if r.ProductKey == key {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memPriceRepo) activos() []entity.PriceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.PriceRecord
	for _, r := range m.records {
		if r.Active() {
			out = append(out, r)
		}
	}
	return out
}

// fakeLLM devuelve sugerencias fijas y registra los lotes recibidos.
type fakeLLM struct {
	lotes       [][]ports.CanonicalRequest
	sugerencias map[string]ports.CanonicalSuggestion
}

func (f *fakeLLM) SuggestCanonical(_ context.Context, items []ports.CanonicalRequest) ([]ports.CanonicalSuggestion, error) {
	f.lotes = append(f.lotes, items)
	var out []ports.CanonicalSuggestion
	for _, it := range items {
		if s, ok := f.sugerencias[it.RawName]; ok {
			s.Index = it.Index
			out = append(out, s)
		}
	}
	return out, nil
}

func cfgDePrueba() config.PipelineConfig {
	return config.PipelineConfig{
		Workers:              1,
		BatchSize:            50,
		ConsistencyTolerance: 0.01,
		MinCompleteness:      0.5,
		MinAIConfidence:      0.4,
	}
}

func pipelineDePrueba(strategy ports.ExtractionStrategy, repo *memPriceRepo, llm ports.LLMService) *Pipeline {
	d := NewDispatcher([]ports.ExtractionStrategy{strategy}, 0.5, logger.Nop())
	return NewPipeline(d, catalog.NewStandardizer(nil), pricing.NewValidator(nil), repo, llm, cfgDePrueba(), logger.Nop())
}

func TestPipeline_DocumentoCompleto(t *testing.T) {
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: []entity.RawLineItem{
			{RawName: "Tomate chonto", Unit: "kg", UnitPrice: decimal.NewFromInt(8_000), Quantity: decimal.NewFromInt(3)},
			{RawName: "Queso campesino", Unit: "libra", TotalPrice: decimal.NewFromInt(60_000), Quantity: decimal.NewFromInt(2)},
		},
		Completeness: 0.9, RowsDetected: 2, RowsExtracted: 2,
	}}
	repo := &memPriceRepo{}

	p := pipelineDePrueba(strategy, repo, nil)
	report, err := p.Run(context.Background(), &entity.DocumentJob{ID: "j1", SupplierID: "prov-1"})

	require.NoError(t, err)
	assert.Equal(t, 2, report.ItemsExtracted)
	assert.Equal(t, "tabla", report.Strategy)
	assert.Zero(t, report.Inconsistent)

	// reconciliación antes de persistir: el queso llega sin unitario
	require.Len(t, report.Items, 2)
	assert.True(t, report.Items[1].Item.UnitPrice.Equal(decimal.NewFromInt(30_000)),
		"unitario del queso = 60000/2")

	activos := repo.activos()
	require.Len(t, activos, 2)
	assert.Equal(t, "tomate chonto|kg", activos[0].ProductKey)
	assert.Equal(t, "queso campesino|lb", activos[1].ProductKey)
}

// TestPipeline_InconsistenteSeConservaYSeMarca: un total explícito
// contradictorio no se corrige en silencio; se persiste el ítem y el reporte
// cuenta la inconsistencia.
func TestPipeline_InconsistenteSeConservaYSeMarca(t *testing.T) {
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: []entity.RawLineItem{
			{RawName: "Arroz", Unit: "bulto", UnitPrice: decimal.NewFromInt(10_000),
				Quantity: decimal.NewFromInt(3), TotalPrice: decimal.NewFromInt(25_000)},
		},
		Completeness: 1, RowsDetected: 1, RowsExtracted: 1,
	}}
	repo := &memPriceRepo{}

	report, err := pipelineDePrueba(strategy, repo, nil).Run(context.Background(), &entity.DocumentJob{SupplierID: "p"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Inconsistent)
	require.Len(t, report.Items, 1)
	assert.False(t, report.Items[0].Item.Consistent)
	assert.True(t, report.Items[0].Item.TotalPrice.Equal(decimal.NewFromInt(25_000)),
		"el total explícito se conserva para revisión manual")
	assert.Len(t, repo.activos(), 1, "la inconsistencia no bloquea la ingesta")
}

// TestPipeline_AdvertenciaNoBloquea: un precio fuera de rango se persiste
// igual; la validación es consultiva.
func TestPipeline_AdvertenciaNoBloquea(t *testing.T) {
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: []entity.RawLineItem{
			{RawName: "Lechuga", Unit: "kg", UnitPrice: decimal.NewFromInt(6_000_000)},
		},
		Completeness: 1, RowsDetected: 1, RowsExtracted: 1,
	}}
	repo := &memPriceRepo{}

	report, err := pipelineDePrueba(strategy, repo, nil).Run(context.Background(), &entity.DocumentJob{SupplierID: "p"})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Warnings)
	assert.Equal(t, entity.ValidationSuspiciousHigh, report.Items[0].Validation.Status)
	assert.Len(t, repo.activos(), 1, "ingesta exitosa pese a la advertencia")
}

// TestPipeline_SugerenciasSoloParaBajaConfianza: al LLM solo viajan los ítems
// bajo el umbral, y la sugerencia con más confianza reemplaza la local.
func TestPipeline_SugerenciasSoloParaBajaConfianza(t *testing.T) {
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: []entity.RawLineItem{
			{RawName: "Tomate", Unit: "kg", UnitPrice: decimal.NewFromInt(8_000)},
			{RawName: "Zzyrq Wmbo", Unit: "und", UnitPrice: decimal.NewFromInt(12_000)},
		},
		Completeness: 1, RowsDetected: 2, RowsExtracted: 2,
	}}
	repo := &memPriceRepo{}
	llm := &fakeLLM{sugerencias: map[string]ports.CanonicalSuggestion{
		"Zzyrq Wmbo": {CanonicalName: "jabon barra", CanonicalUnit: "unidad", Category: "aseo", Confidence: 0.8},
	}}

	report, err := pipelineDePrueba(strategy, repo, llm).Run(context.Background(), &entity.DocumentJob{SupplierID: "p"})

	require.NoError(t, err)
	require.Len(t, llm.lotes, 1, "un solo lote")
	require.Len(t, llm.lotes[0], 1, "solo el ítem de baja confianza viaja al LLM")
	assert.Equal(t, "Zzyrq Wmbo", llm.lotes[0][0].RawName)

	assert.Equal(t, "jabon barra", report.Items[1].Product.CanonicalName)
	assert.Equal(t, "und", report.Items[1].Product.CanonicalUnit)
	assert.Equal(t, "aseo", report.Items[1].Product.Category)
	assert.Equal(t, "tomate", report.Items[0].Product.CanonicalName, "el ítem confiable no se toca")
}

// rechazaEscrituras catálogo cuyo Supersede siempre falla.
type rechazaEscrituras struct{ memPriceRepo }

func (r *rechazaEscrituras) Supersede(context.Context, *entity.PriceRecord) error {
	return errors.New("catálogo fuera de línea")
}

// TestPipeline_PersistenciaParcialQuedaEnDiagnostico: los fallos de escritura
// por ítem no tumban el job, pero el diagnóstico durable los distingue de una
// corrida limpia.
func TestPipeline_PersistenciaParcialQuedaEnDiagnostico(t *testing.T) {
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: []entity.RawLineItem{
			{RawName: "Tomate", Unit: "kg", UnitPrice: decimal.NewFromInt(8_000)},
			{RawName: "Papa", Unit: "kg", UnitPrice: decimal.NewFromInt(3_200)},
		},
		Completeness: 1, RowsDetected: 2, RowsExtracted: 2,
	}}
	repo := &rechazaEscrituras{}
	d := NewDispatcher([]ports.ExtractionStrategy{strategy}, 0.5, logger.Nop())
	p := NewPipeline(d, catalog.NewStandardizer(nil), pricing.NewValidator(nil), repo, nil, cfgDePrueba(), logger.Nop())

	report, err := p.Run(context.Background(), &entity.DocumentJob{SupplierID: "prov-1"})

	require.NoError(t, err, "la persistencia parcial no es fallo de documento")
	assert.Equal(t, 2, report.PersistFailures)
	assert.Contains(t, report.Detail(), "persistencia parcial")
	assert.Contains(t, report.Detail(), "2 ítems")
}

// TestPipeline_SupersedeMantieneUnActivoPorLlave: re-ingerir la misma lista
// cierra el registro anterior en lugar de duplicar activos.
func TestPipeline_SupersedeMantieneUnActivoPorLlave(t *testing.T) {
	items := []entity.RawLineItem{{RawName: "Papa criolla", Unit: "kg", UnitPrice: decimal.NewFromInt(5_500)}}
	strategy := &fakeStrategy{name: "tabla", handles: true, result: &ports.ExtractionResult{
		Items: items, Completeness: 1, RowsDetected: 1, RowsExtracted: 1,
	}}
	repo := &memPriceRepo{}
	p := pipelineDePrueba(strategy, repo, nil)

	_, err := p.Run(context.Background(), &entity.DocumentJob{SupplierID: "prov-1"})
	require.NoError(t, err)
	_, err = p.Run(context.Background(), &entity.DocumentJob{SupplierID: "prov-1"})
	require.NoError(t, err)

	assert.Len(t, repo.activos(), 1, "un solo activo por (proveedor, llave)")
	assert.Len(t, repo.records, 2, "el historial conserva el registro superado")
}
