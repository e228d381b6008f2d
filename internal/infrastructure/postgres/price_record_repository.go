package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

var _ repository.PriceRecordRepository = (*PriceRecordRepo)(nil)

// PriceRecordRepo catálogo de precios sobre PostgreSQL. Necesita el pool (no
// un Querier) porque Supersede abre su propia transacción.
type PriceRecordRepo struct {
	pool *pgxpool.Pool
}

// NewPriceRecordRepository construye el adaptador del catálogo.
func NewPriceRecordRepository(pool *pgxpool.Pool) *PriceRecordRepo {
	return &PriceRecordRepo{pool: pool}
}

const priceRecordColumns = `id, supplier_id, product_key, product_name, amount, unit, valid_from, valid_to`

// ActiveByKey devuelve los precios vigentes de todos los proveedores para la
// llave canónica, ascendente por precio.
func (r *PriceRecordRepo) ActiveByKey(ctx context.Context, productKey string) ([]entity.PriceRecord, error) {
	query := `
		SELECT ` + priceRecordColumns + `
		FROM price_records
		WHERE product_key = $1 AND valid_to IS NULL
		ORDER BY amount ASC, supplier_id ASC`
	rows, err := r.pool.Query(ctx, query, productKey)
	if err != nil {
		return nil, fmt.Errorf("listar precios activos: %w", err)
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

// Supersede cierra el registro activo anterior de (proveedor, llave) y activa
// el nuevo, en una transacción serializada con un lock consultivo por llave.
// Dos documentos del mismo proveedor procesados a la vez no pueden dejar dos
// activos ni pisarse el cierre.
func (r *PriceRecordRepo) Supersede(ctx context.Context, record *entity.PriceRecord) error {
	if record.ID == "" {
		record.ID = uuid.New().String()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	lockKey := advisoryKey(record.SupplierID + "|" + record.ProductKey)
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
		return fmt.Errorf("lock de catálogo: %w", err)
	}

	_, err = tx.Exec(ctx, `
		UPDATE price_records
		SET valid_to = $3
		WHERE supplier_id = $1 AND product_key = $2 AND valid_to IS NULL`,
		record.SupplierID, record.ProductKey, record.ValidFrom)
	if err != nil {
		return fmt.Errorf("cerrar precio anterior: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO price_records (`+priceRecordColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULL)`,
		record.ID, record.SupplierID, record.ProductKey, record.ProductName,
		record.Amount, record.Unit, record.ValidFrom)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("precio activo duplicado para %s/%s: %w",
				record.SupplierID, record.ProductKey, err)
		}
		return fmt.Errorf("insertar precio: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// HistoryByKey devuelve el historial completo de la llave, del más reciente
// al más antiguo.
func (r *PriceRecordRepo) HistoryByKey(ctx context.Context, productKey string, limit int) ([]entity.PriceRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT ` + priceRecordColumns + `
		FROM price_records
		WHERE product_key = $1
		ORDER BY valid_from DESC, supplier_id ASC
		LIMIT $2`
	rows, err := r.pool.Query(ctx, query, productKey, limit)
	if err != nil {
		return nil, fmt.Errorf("historial de precios: %w", err)
	}
	defer rows.Close()
	return scanPriceRecords(rows)
}

func scanPriceRecords(rows pgx.Rows) ([]entity.PriceRecord, error) {
	var out []entity.PriceRecord
	for rows.Next() {
		var rec entity.PriceRecord
		if err := rows.Scan(
			&rec.ID, &rec.SupplierID, &rec.ProductKey, &rec.ProductName,
			&rec.Amount, &rec.Unit, &rec.ValidFrom, &rec.ValidTo,
		); err != nil {
			return nil, fmt.Errorf("scan price record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
