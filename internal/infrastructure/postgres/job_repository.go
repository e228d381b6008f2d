package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

var _ repository.JobRepository = (*JobRepo)(nil)

// JobRepo cola durable de jobs de documento sobre PostgreSQL. Todas las
// transiciones son sentencias únicas condicionadas por el estado actual: no
// hay ventana entre leer y transicionar.
type JobRepo struct {
	q Querier
}

// NewJobRepository construye el adaptador. Pasar pool o tx (Querier).
func NewJobRepository(q Querier) *JobRepo {
	return &JobRepo{q: q}
}

const jobColumns = `id, supplier_id, filename, mime, content, status, detail,
	strategy, items_detected, items_extracted, incomplete,
	created_at, updated_at, started_at`

// Create encola un job nuevo.
func (r *JobRepo) Create(ctx context.Context, job *entity.DocumentJob) error {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	job.Status = entity.JobQueued
	job.CreatedAt = now
	job.UpdatedAt = now

	_, err := r.q.Exec(ctx, `
		INSERT INTO document_jobs (id, supplier_id, filename, mime, content, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $7)`,
		job.ID, job.SupplierID, job.Filename, job.MIME, job.Content, job.Status, now)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("crear job: %w", err)
	}
	return nil
}

// GetByID obtiene un job por id. Devuelve domain.ErrNotFound si no existe.
func (r *JobRepo) GetByID(ctx context.Context, id string) (*entity.DocumentJob, error) {
	row := r.q.QueryRow(ctx, `SELECT `+jobColumns+` FROM document_jobs WHERE id = $1`, id)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ClaimNext reclama el job encolado más antiguo y lo pasa a processing.
// FOR UPDATE SKIP LOCKED evita que dos workers reclamen el mismo job sin
// bloquearse entre sí. Devuelve (nil, nil) sin trabajo pendiente.
func (r *JobRepo) ClaimNext(ctx context.Context) (*entity.DocumentJob, error) {
	row := r.q.QueryRow(ctx, `
		UPDATE document_jobs
		SET status = 'processing', started_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM document_jobs
			WHERE status = 'queued'
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING `+jobColumns)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// MarkCompleted cierra el job con el resultado de la corrida.
func (r *JobRepo) MarkCompleted(ctx context.Context, job *entity.DocumentJob) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE document_jobs
		SET status = 'completed', detail = $2, strategy = $3,
		    items_detected = $4, items_extracted = $5, incomplete = $6,
		    updated_at = now()
		WHERE id = $1 AND status = 'processing'`,
		job.ID, job.Detail, job.Strategy,
		job.ItemsDetected, job.ItemsExtracted, job.Incomplete)
	if err != nil {
		return fmt.Errorf("completar job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// El reaper lo marcó failed mientras corría; el resultado tardío no
		// revive el job.
		return domain.ErrNotFound
	}
	return nil
}

// MarkFailed cierra el job con su diagnóstico.
func (r *JobRepo) MarkFailed(ctx context.Context, id, detail string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE document_jobs
		SET status = 'failed', detail = $2, updated_at = now()
		WHERE id = $1 AND status = 'processing'`,
		id, detail)
	if err != nil {
		return fmt.Errorf("fallar job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Requeue reencola un job fallido para reintento manual.
func (r *JobRepo) Requeue(ctx context.Context, id string) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE document_jobs
		SET status = 'queued', detail = '', started_at = NULL, updated_at = now()
		WHERE id = $1 AND status = 'failed'`,
		id)
	if err != nil {
		return fmt.Errorf("reencolar job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// O no existe o no está en failed; distinguir para el handler.
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return domain.ErrJobNotRetryable
	}
	return nil
}

// FailStale marca failed los jobs atascados en processing más allá del
// timeout. Cubre workers muertos a mitad de documento.
func (r *JobRepo) FailStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE document_jobs
		SET status = 'failed',
		    detail = 'procesamiento obsoleto: el worker no reportó en ' || $1::text,
		    updated_at = now()
		WHERE status = 'processing' AND started_at < now() - $2::interval`,
		olderThan.String(), fmt.Sprintf("%f seconds", olderThan.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("marcar jobs obsoletos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanJob(row pgx.Row) (*entity.DocumentJob, error) {
	var j entity.DocumentJob
	err := row.Scan(
		&j.ID, &j.SupplierID, &j.Filename, &j.MIME, &j.Content, &j.Status, &j.Detail,
		&j.Strategy, &j.ItemsDetected, &j.ItemsExtracted, &j.Incomplete,
		&j.CreatedAt, &j.UpdatedAt, &j.StartedAt,
	)
	if err != nil {
		return nil, err
	}
	return &j, nil
}
