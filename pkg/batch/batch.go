// Package batch implementa el coordinador de lotes secuenciales que comparte
// el pipeline de ingesta y las estrategias de extracción: partición ceil,
// pausa fija entre lotes y aislamiento de fallos por lote.
package batch

import (
	"context"
	"time"
)

// Status estado de un lote individual.
type Status string

const (
	Pending   Status = "pending"
	Succeeded Status = "succeeded"
	Failed    Status = "failed"
)

// Outcome resultado de un lote, con su procedencia (índice y tamaño).
type Outcome[R any] struct {
	Index         int // posición del lote en la partición original
	Size          int
	Status        Status
	Results       []R
	FailureDetail string
}

// Run agregado de una corrida por lotes. Aggregated conserva el orden
// original de los ítems: los resultados de los lotes exitosos, concatenados
// en orden de lote.
type Run[R any] struct {
	Outcomes   []Outcome[R]
	Aggregated []R
	Succeeded  int
	Failed     int
}

// Success: la corrida completa se considera exitosa si al menos un lote lo
// fue; solo falla del todo cuando fallaron todos.
func (r *Run[R]) Success() bool { return r.Succeeded > 0 }

// Process particiona items en ceil(len/batchSize) lotes ordenados y los
// procesa estrictamente en secuencia (nunca en paralelo: el colaborador de
// inferencia limita la tasa), con una pausa fija entre lotes. El fallo de un
// lote queda aislado en su Outcome; los lotes siguientes corren igual.
func Process[T, R any](
	ctx context.Context,
	items []T,
	batchSize int,
	delay time.Duration,
	process func(ctx context.Context, batch []T) ([]R, error),
) *Run[R] {
	if batchSize <= 0 {
		batchSize = 50
	}

	run := &Run[R]{}
	for start, idx := 0, 0; start < len(items); start, idx = start+batchSize, idx+1 {
		end := start + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[start:end]

		outcome := Outcome[R]{Index: idx, Size: len(batch), Status: Pending}

		if err := ctx.Err(); err != nil {
			outcome.Status = Failed
			outcome.FailureDetail = "contexto cancelado: " + err.Error()
			run.Outcomes = append(run.Outcomes, outcome)
			run.Failed++
			continue
		}

		if idx > 0 && delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}

		results, err := process(ctx, batch)
		if err != nil {
			outcome.Status = Failed
			outcome.FailureDetail = err.Error()
			run.Failed++
		} else {
			outcome.Status = Succeeded
			outcome.Results = results
			run.Aggregated = append(run.Aggregated, results...)
			run.Succeeded++
		}
		run.Outcomes = append(run.Outcomes, outcome)
	}
	return run
}
