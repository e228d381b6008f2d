package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// Attempt registro de un intento de estrategia, para el diagnóstico del job.
type Attempt struct {
	Strategy     string
	Completeness float64
	Items        int
	Err          string
}

// Dispatcher recorre las estrategias de extracción en orden decreciente de
// suposición estructural (tabla → patrón de texto → visión) y acepta la
// primera cuya completitud supere el umbral. Si ninguna califica, devuelve el
// mejor resultado marcado incomplete en vez de fallar el documento: las
// etapas siguientes procesan igual el parcial.
type Dispatcher struct {
	strategies      []ports.ExtractionStrategy
	minCompleteness float64
	log             *logger.Logger
}

// NewDispatcher construye el despachador con la lista ordenada de respaldo.
func NewDispatcher(strategies []ports.ExtractionStrategy, minCompleteness float64, log *logger.Logger) *Dispatcher {
	return &Dispatcher{strategies: strategies, minCompleteness: minCompleteness, log: log}
}

// Extract aplica la política de respaldo. Falla únicamente cuando todas las
// estrategias aplicables produjeron cero ítems (domain.ErrDocumentUnusable),
// con el detalle de intentos para el diagnóstico del job.
func (d *Dispatcher) Extract(ctx context.Context, doc *entity.Document) (*ports.ExtractionResult, []Attempt, error) {
	var attempts []Attempt
	var best *ports.ExtractionResult
	bestStrategy := ""

	for _, s := range d.strategies {
		if !s.CanHandle(doc) {
			continue
		}

		res, err := s.Extract(ctx, doc)
		if err != nil {
			// ExtractionFailure: se registra y se cae a la siguiente
			// estrategia; el primer fallo nunca aborta el documento.
			attempts = append(attempts, Attempt{Strategy: s.Name(), Err: err.Error()})
			d.log.Warn().Str("estrategia", s.Name()).Err(err).Msg("estrategia de extracción falló; se intenta la siguiente")
			continue
		}

		attempts = append(attempts, Attempt{
			Strategy:     s.Name(),
			Completeness: res.Completeness,
			Items:        len(res.Items),
		})

		if res.Completeness >= d.minCompleteness && len(res.Items) > 0 {
			d.log.Info().
				Str("estrategia", s.Name()).
				Float64("completitud", res.Completeness).
				Int("items", len(res.Items)).
				Msg("estrategia aceptada")
			return res, attempts, nil
		}

		if best == nil || betterResult(res, best) {
			best = res
			bestStrategy = s.Name()
		}
	}

	if best == nil || len(best.Items) == 0 {
		return nil, attempts, fmt.Errorf("%w: %s", domain.ErrDocumentUnusable, DescribeAttempts(attempts))
	}

	best.Incomplete = true
	d.log.Warn().
		Str("estrategia", bestStrategy).
		Float64("completitud", best.Completeness).
		Msg("ninguna estrategia alcanzó el umbral; se acepta la mejor marcada incomplete")
	return best, attempts, nil
}

// betterResult: más completitud gana; a igual completitud, más ítems.
func betterResult(a, b *ports.ExtractionResult) bool {
	if a.Completeness != b.Completeness {
		return a.Completeness > b.Completeness
	}
	return len(a.Items) > len(b.Items)
}

// DescribeAttempts arma el diagnóstico legible del job: estrategias
// intentadas con filas detectadas vs extraídas o su error.
func DescribeAttempts(attempts []Attempt) string {
	if len(attempts) == 0 {
		return "ninguna estrategia aplicable al tipo de documento"
	}
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		if a.Err != "" {
			parts = append(parts, fmt.Sprintf("%s: error (%s)", a.Strategy, a.Err))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %d ítems, completitud %.2f", a.Strategy, a.Items, a.Completeness))
	}
	return strings.Join(parts, "; ")
}
