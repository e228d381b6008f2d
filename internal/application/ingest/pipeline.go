package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/catalog"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/internal/domain/repository"
	"github.com/jhoicas/precios-api/pkg/batch"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// ProcessedItem es un ítem al final del pipeline: reconciliado, canonicalizado
// y con su veredicto de validación adjunto. Cada etapa produjo su registro
// propio; el crudo sobrevive dentro de Item.Raw para auditoría.
type ProcessedItem struct {
	Item       entity.ReconciledLineItem
	Product    entity.StandardizedProduct
	Validation entity.ValidationResult
}

// RunReport resultado de la corrida de un documento.
type RunReport struct {
	Strategy        string
	ItemsDetected   int
	ItemsExtracted  int
	Incomplete      bool
	Inconsistent    int // ítems con total explícito contradictorio
	Warnings        int // validaciones distintas de ok
	PersistFailures int
	Attempts        []Attempt
	Items           []ProcessedItem
}

// Detail arma el diagnóstico durable del job: estrategias intentadas y, si la
// persistencia fue parcial, cuántos ítems quedaron sin escribir. Un job
// completed con escritura parcial se distingue de uno limpio por este texto.
func (r *RunReport) Detail() string {
	detail := DescribeAttempts(r.Attempts)
	if r.PersistFailures > 0 {
		detail = fmt.Sprintf("%s; persistencia parcial: %d ítems no escritos al catálogo",
			detail, r.PersistFailures)
	}
	return detail
}

// Pipeline orquesta la ingesta de un documento de lista de precios:
// extracción (con cadena de respaldo) → reconciliación → estandarización →
// sugerencias canónicas por lotes para ítems de baja confianza →
// validación consultiva → persistencia en el catálogo.
//
// Las etapas corren en secuencia sobre el documento completo; la concurrencia
// vive un nivel arriba, en el pool de workers por documento.
type Pipeline struct {
	dispatcher   *Dispatcher
	standardizer *catalog.Standardizer
	validator    *pricing.Validator
	prices       repository.PriceRecordRepository
	llm          ports.LLMService // opcional: nil desactiva la pasada de sugerencias
	cfg          config.PipelineConfig
	log          *logger.Logger
}

// NewPipeline construye el pipeline con sus colaboradores.
func NewPipeline(
	dispatcher *Dispatcher,
	standardizer *catalog.Standardizer,
	validator *pricing.Validator,
	prices repository.PriceRecordRepository,
	llm ports.LLMService,
	cfg config.PipelineConfig,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		dispatcher:   dispatcher,
		standardizer: standardizer,
		validator:    validator,
		prices:       prices,
		llm:          llm,
		cfg:          cfg,
		log:          log,
	}
}

// Run procesa el documento del job y persiste los precios extraídos.
// Devuelve error solo ante el fallo a nivel de documento (cero ítems en toda
// estrategia); todo lo demás degrada a parcial con diagnóstico en el reporte.
func (p *Pipeline) Run(ctx context.Context, job *entity.DocumentJob) (*RunReport, error) {
	doc := entity.DocumentFromJob(job)

	res, attempts, err := p.dispatcher.Extract(ctx, doc)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		ItemsDetected:  res.RowsDetected,
		ItemsExtracted: len(res.Items),
		Incomplete:     res.Incomplete,
		Attempts:       attempts,
	}
	if len(attempts) > 0 {
		report.Strategy = attempts[len(attempts)-1].Strategy
	}

	tol := decimal.NewFromFloat(p.cfg.ConsistencyTolerance)

	// Reconciliar SIEMPRE antes de cualquier agregado o persistencia.
	items := make([]ProcessedItem, 0, len(res.Items))
	for _, raw := range res.Items {
		rec := pricing.ReconcileItem(raw, tol)
		if !rec.Consistent {
			report.Inconsistent++
		}

		prod := p.standardizer.Standardize(raw.RawName, raw.Unit)
		if prod.Category == "otros" && raw.CategoryHint != "" {
			prod.Category = raw.CategoryHint
		}

		items = append(items, ProcessedItem{Item: rec, Product: prod})
	}

	p.suggestLowConfidence(ctx, items)

	for i := range items {
		items[i].Validation = p.validator.Validate(items[i].Item, items[i].Product.Category)
		if items[i].Validation.Status != entity.ValidationOK {
			report.Warnings++
			p.log.Debug().
				Str("producto", items[i].Product.CanonicalName).
				Str("estado", string(items[i].Validation.Status)).
				Str("detalle", items[i].Validation.Detail).
				Msg("advertencia de validación (consultiva)")
		}
	}

	report.PersistFailures = p.persist(ctx, job.SupplierID, items)
	report.Items = items
	return report, nil
}

// suggestLowConfidence envía al LLM, en lotes secuenciales, los ítems cuya
// estandarización local quedó por debajo del umbral de confianza, y adopta la
// sugerencia cuando llega con más confianza que la local.
func (p *Pipeline) suggestLowConfidence(ctx context.Context, items []ProcessedItem) {
	if p.llm == nil {
		return
	}

	var reqs []ports.CanonicalRequest
	for i := range items {
		if items[i].Product.Confidence < p.cfg.MinAIConfidence {
			reqs = append(reqs, ports.CanonicalRequest{
				Index:   i,
				RawName: items[i].Item.Raw.RawName,
				RawUnit: items[i].Item.Raw.Unit,
			})
		}
	}
	if len(reqs) == 0 {
		return
	}

	run := batch.Process(ctx, reqs, p.cfg.BatchSize, p.cfg.BatchDelay,
		func(ctx context.Context, lote []ports.CanonicalRequest) ([]ports.CanonicalSuggestion, error) {
			return p.llm.SuggestCanonical(ctx, lote)
		})

	for _, o := range run.Outcomes {
		if o.Status == batch.Failed {
			p.log.Warn().Int("lote", o.Index).Str("detalle", o.FailureDetail).
				Msg("lote de sugerencias canónicas falló; los demás lotes continúan")
		}
	}

	for _, s := range run.Aggregated {
		if s.Index < 0 || s.Index >= len(items) {
			continue
		}
		it := &items[s.Index]
		if s.Confidence <= it.Product.Confidence || s.CanonicalName == "" {
			continue
		}
		it.Product.CanonicalName = s.CanonicalName
		if s.CanonicalUnit != "" {
			it.Product.CanonicalUnit = catalog.NormalizeUnit(s.CanonicalUnit)
		}
		if s.Category != "" {
			it.Product.Category = s.Category
		}
		it.Product.Confidence = s.Confidence
	}
}

// persist escribe un PriceRecord activo por ítem con precio unitario positivo,
// superseding el registro vigente anterior de (proveedor, llave). Los fallos
// de persistencia se aíslan por ítem.
func (p *Pipeline) persist(ctx context.Context, supplierID string, items []ProcessedItem) int {
	failures := 0
	now := time.Now().UTC()

	for i := range items {
		if items[i].Item.UnitPrice.Sign() <= 0 {
			continue
		}
		rec := &entity.PriceRecord{
			ID:          uuid.NewString(),
			SupplierID:  supplierID,
			ProductKey:  items[i].Product.Key(),
			ProductName: items[i].Product.CanonicalName,
			Amount:      items[i].Item.UnitPrice,
			Unit:        items[i].Product.CanonicalUnit,
			ValidFrom:   now,
		}
		if err := p.prices.Supersede(ctx, rec); err != nil {
			failures++
			p.log.Error().Err(err).
				Str("llave", rec.ProductKey).
				Str("proveedor", supplierID).
				Msg("no se pudo persistir el precio; el resto de ítems continúa")
		}
	}
	if failures > 0 {
		p.log.Warn().Int("fallos", failures).Msg(fmt.Sprintf("persistencia parcial del catálogo (%d ítems afectados)", failures))
	}
	return failures
}
