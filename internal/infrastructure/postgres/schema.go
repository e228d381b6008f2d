package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaDDL esquema mínimo de la aplicación. Idempotente: se aplica en cada
// arranque antes de aceptar tráfico.
//
// price_records es append-only; el índice parcial único garantiza a lo sumo
// un registro activo por (proveedor, llave canónica) aunque dos escritores
// compitan. document_jobs es la cola durable de ingesta: el estado sobrevive
// reinicios y los workers reclaman con SKIP LOCKED.
const schemaDDL = `
CREATE TABLE IF NOT EXISTS price_records (
	id           UUID PRIMARY KEY,
	supplier_id  TEXT NOT NULL,
	product_key  TEXT NOT NULL,
	product_name TEXT NOT NULL,
	amount       NUMERIC(14,2) NOT NULL CHECK (amount > 0),
	unit         TEXT NOT NULL DEFAULT 'und',
	valid_from   TIMESTAMPTZ NOT NULL,
	valid_to     TIMESTAMPTZ
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_price_records_active
	ON price_records (supplier_id, product_key)
	WHERE valid_to IS NULL;

CREATE INDEX IF NOT EXISTS ix_price_records_key
	ON price_records (product_key, valid_from DESC);

CREATE TABLE IF NOT EXISTS document_jobs (
	id              UUID PRIMARY KEY,
	supplier_id     TEXT NOT NULL,
	filename        TEXT NOT NULL DEFAULT '',
	mime            TEXT NOT NULL DEFAULT '',
	content         BYTEA,
	status          TEXT NOT NULL DEFAULT 'queued'
	                CHECK (status IN ('queued', 'processing', 'completed', 'failed')),
	detail          TEXT NOT NULL DEFAULT '',
	strategy        TEXT NOT NULL DEFAULT '',
	items_detected  INT NOT NULL DEFAULT 0,
	items_extracted INT NOT NULL DEFAULT 0,
	incomplete      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	started_at      TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS ix_document_jobs_queued
	ON document_jobs (created_at)
	WHERE status = 'queued';

CREATE INDEX IF NOT EXISTS ix_document_jobs_processing
	ON document_jobs (started_at)
	WHERE status = 'processing';
`

// EnsureSchema aplica el DDL idempotente.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaDDL); err != nil {
		return fmt.Errorf("aplicar esquema: %w", err)
	}
	return nil
}
