package ports

import (
	"context"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// ExtractionResult es lo que produce una estrategia sobre un documento:
// ítems crudos más la razón de completitud que gobierna la cadena de respaldo.
type ExtractionResult struct {
	Items []entity.RawLineItem
	// Completeness = filas mapeadas ÷ filas candidatas detectadas (0..1).
	Completeness  float64
	RowsDetected  int
	RowsExtracted int
	// Incomplete lo marca el despachador cuando acepta el mejor resultado
	// por debajo del umbral en vez de fallar el documento completo.
	Incomplete bool
}

// ExtractionStrategy es el conjunto cerrado de variantes de extracción
// (tabla, patrón de texto, visión) detrás de una sola capacidad. El
// despachador las intenta en orden decreciente de suposición estructural.
type ExtractionStrategy interface {
	Name() string
	// CanHandle decide por tipo/contenido si la estrategia aplica al documento.
	CanHandle(doc *entity.Document) bool
	Extract(ctx context.Context, doc *entity.Document) (*ExtractionResult, error)
}
