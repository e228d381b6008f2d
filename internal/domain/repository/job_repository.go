package repository

import (
	"context"
	"time"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// JobRepository puerto del almacén durable de estado de jobs de documento.
// El estado sobrevive reinicios del proceso; las transiciones se serializan
// por id de job en el almacén.
type JobRepository interface {
	Create(ctx context.Context, job *entity.DocumentJob) error
	GetByID(ctx context.Context, id string) (*entity.DocumentJob, error)

	// ClaimNext toma atómicamente el siguiente job en queued y lo pasa a
	// processing. Devuelve (nil, nil) cuando no hay trabajo pendiente.
	ClaimNext(ctx context.Context) (*entity.DocumentJob, error)

	// MarkCompleted cierra el job con el resultado de la corrida.
	MarkCompleted(ctx context.Context, job *entity.DocumentJob) error

	// MarkFailed cierra el job con el diagnóstico de fallo.
	MarkFailed(ctx context.Context, id, detail string) error

	// Requeue reencola un job en failed (reintento manual).
	// Devuelve domain.ErrJobNotRetryable si el job no está en failed.
	Requeue(ctx context.Context, id string) error

	// FailStale marca como failed los jobs atascados en processing más allá
	// del timeout de obsolescencia. Devuelve cuántos se marcaron.
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
