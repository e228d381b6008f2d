package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/jhoicas/precios-api/internal/domain/repository"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// WorkerPool ejecuta pipelines de documento concurrentes, acotados a
// cfg.Workers goroutines. Los workers reclaman jobs del almacén durable (que
// serializa por id de job), así el estado sobrevive reinicios del proceso.
// Un reaper periódico marca como failed los jobs atascados en processing más
// allá del timeout de obsolescencia: ningún job queda ambiguo.
type WorkerPool struct {
	jobs     repository.JobRepository
	pipeline *Pipeline
	cfg      config.PipelineConfig
	log      *logger.Logger
	wg       sync.WaitGroup
}

// NewWorkerPool construye el pool.
func NewWorkerPool(jobs repository.JobRepository, pipeline *Pipeline, cfg config.PipelineConfig, log *logger.Logger) *WorkerPool {
	return &WorkerPool{jobs: jobs, pipeline: pipeline, cfg: cfg, log: log}
}

// Start lanza los workers y el reaper. Se detienen al cancelar ctx.
func (w *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < w.cfg.Workers; i++ {
		w.wg.Add(1)
		go w.runWorker(ctx, i)
	}
	w.wg.Add(1)
	go w.runReaper(ctx)
	w.log.Info().Int("workers", w.cfg.Workers).Msg("pool de ingesta iniciado")
}

// Wait bloquea hasta que todos los workers terminaron (tras cancelar ctx).
func (w *WorkerPool) Wait() { w.wg.Wait() }

func (w *WorkerPool) runWorker(ctx context.Context, id int) {
	defer w.wg.Done()

	for {
		if ctx.Err() != nil {
			return
		}

		job, err := w.jobs.ClaimNext(ctx)
		if err != nil {
			w.log.Error().Err(err).Int("worker", id).Msg("no se pudo reclamar job")
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}
		if job == nil {
			if !sleepCtx(ctx, w.cfg.PollInterval) {
				return
			}
			continue
		}

		w.log.Info().Int("worker", id).Str("job", job.ID).Str("archivo", job.Filename).Msg("procesando documento")

		report, err := w.pipeline.Run(ctx, job)
		if err != nil {
			// Fallo a nivel de documento: queda failed con diagnóstico y
			// elegible para reintento manual; nunca se reintenta en silencio
			// con entradas idénticas.
			if mErr := w.jobs.MarkFailed(ctx, job.ID, err.Error()); mErr != nil {
				w.log.Error().Err(mErr).Str("job", job.ID).Msg("no se pudo marcar el job como failed")
			}
			continue
		}

		job.Strategy = report.Strategy
		job.ItemsDetected = report.ItemsDetected
		job.ItemsExtracted = report.ItemsExtracted
		job.Incomplete = report.Incomplete
		job.Detail = report.Detail()
		if err := w.jobs.MarkCompleted(ctx, job); err != nil {
			w.log.Error().Err(err).Str("job", job.ID).Msg("no se pudo marcar el job como completed")
			continue
		}
		w.log.Info().
			Str("job", job.ID).
			Str("estrategia", report.Strategy).
			Int("items", report.ItemsExtracted).
			Int("inconsistentes", report.Inconsistent).
			Int("advertencias", report.Warnings).
			Bool("incompleto", report.Incomplete).
			Msg("documento procesado")
	}
}

// runReaper barre periódicamente los jobs obsoletos en processing.
func (w *WorkerPool) runReaper(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.jobs.FailStale(ctx, w.cfg.StaleAfter)
			if err != nil {
				w.log.Error().Err(err).Msg("barrida de jobs obsoletos falló")
				continue
			}
			if n > 0 {
				w.log.Warn().Int64("jobs", n).Msg("jobs obsoletos marcados como failed")
			}
		}
	}
}

// sleepCtx espera d o hasta la cancelación; false si el contexto terminó.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
