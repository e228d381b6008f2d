package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// VisionItem es un ítem reportado por el colaborador multimodal para una
// página de documento.
type VisionItem struct {
	Name       string
	Price      decimal.Decimal
	Unit       string
	Category   string
	Confidence float64
}

// VisionPageResult resultado de una llamada de extracción por página.
// Truncated indica que la respuesta llegó al límite de ítems del colaborador,
// y el caller debe fragmentar con llamadas de continuación.
type VisionPageResult struct {
	Items     []VisionItem
	Truncated bool
}

// VisionModel puerto de salida hacia la capacidad de inferencia multimodal:
// recibe la imagen de una página más la instrucción de extracción y devuelve
// un arreglo acotado de ítems. offset omite los primeros N artículos de la
// página (llamadas de continuación tras una respuesta truncada).
// El contexto debe llevar timeout por página.
type VisionModel interface {
	ExtractPageItems(ctx context.Context, image []byte, mimeType string, offset int) (*VisionPageResult, error)
}

// CanonicalRequest un producto de baja confianza a revisar por el modelo.
type CanonicalRequest struct {
	Index   int // posición del ítem en el lote, para re-asociar la respuesta
	RawName string
	RawUnit string
}

// CanonicalSuggestion respuesta del modelo para un CanonicalRequest.
type CanonicalSuggestion struct {
	Index         int
	CanonicalName string
	CanonicalUnit string
	Category      string
	Confidence    float64
}

// LLMService puerto de sugerencias canónicas por lotes. Cualquier adaptador
// (Gemini, Anthropic, mock) debe implementar esta interfaz; la aplicación
// solo conoce el contrato.
type LLMService interface {
	SuggestCanonical(ctx context.Context, items []CanonicalRequest) ([]CanonicalSuggestion, error)
}
