package repository

import (
	"context"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// PriceRecordRepository puerto del catálogo de precios. El catálogo es
// append-only: Supersede cierra el registro activo anterior (ValidTo) e
// inserta el nuevo; nunca borra historial.
type PriceRecordRepository interface {
	// ActiveByKey devuelve los registros vigentes de todos los proveedores
	// para una llave canónica.
	ActiveByKey(ctx context.Context, productKey string) ([]entity.PriceRecord, error)

	// Supersede serializa la escritura por (proveedor, llave): cierra el
	// registro activo previo del proveedor para esa llave y activa el nuevo.
	Supersede(ctx context.Context, record *entity.PriceRecord) error

	// HistoryByKey devuelve el historial (activos e históricos) de una llave,
	// del más reciente al más antiguo.
	HistoryByKey(ctx context.Context, productKey string, limit int) ([]entity.PriceRecord, error)
}
