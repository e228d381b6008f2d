package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/time/rate"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// Verificar en tiempo de compilación que GeminiService implementa ambos puertos.
var (
	_ ports.VisionModel = (*GeminiService)(nil)
	_ ports.LLMService  = (*GeminiService)(nil)
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s"

	// visionPrompt instruye la extracción por página. response_mime_type=
	// application/json obliga a Gemini a devolver JSON puro, sin bloques de
	// markdown que limpiar.
	visionPrompt = `Eres un digitador experto de listas de precios de proveedores de alimentos en Colombia.
La imagen es UNA página de una lista de precios. Devuelve ÚNICAMENTE un arreglo JSON (sin texto adicional) donde cada elemento es:
{
  "name": "<nombre del producto tal como aparece>",
  "price": "<precio unitario tal como aparece, ej: '8.500' o '179K'>",
  "unit": "<unidad si aparece: kg, libra, und, bulto, litro...>",
  "category": "<categoría si la página la agrupa, ej: verduras>",
  "confidence": <decimal entre 0.0 y 1.0>
}

Reglas:
- Transcribe el precio EXACTO, con sus puntos y sufijos; no lo conviertas.
- Omite títulos, teléfonos, totales y filas sin precio.
- Lista los artículos en el orden de la página, máximo %d por respuesta.
- Si te pido empezar desde el artículo N, omite los primeros N artículos.`

	canonicalPrompt = `Eres un catalogador de productos de alimentos en Colombia.
Recibes una lista numerada de nombres de producto crudos con su unidad. Para cada uno devuelve su forma canónica en español, en minúsculas y sin tildes.
Devuelve ÚNICAMENTE un arreglo JSON (sin texto adicional) donde cada elemento es:
{
  "index": <índice del ítem de entrada>,
  "canonical_name": "<nombre canónico, ej: 'queso campesino'>",
  "canonical_unit": "<unidad canónica: kg, lb, und, lt, bulto, doc...>",
  "category": "<una de: verduras, frutas, lacteos, quesos, carnes, granos, bebidas, panaderia, huevos, aseo, abarrotes, otros>",
  "confidence": <decimal entre 0.0 y 1.0>
}

Reglas:
- Conserva descriptores que cambian el producto (campesino, criolla, chonto).
- Descarta marcas, códigos y números de presentación.
- Si no reconoces el producto, usa category "otros" y confidence menor a 0.3.`
)

// Esquemas de validación de la salida del modelo. Un arreglo que no cumple el
// esquema se rechaza como respuesta corrupta antes de tocar el pipeline.
const (
	visionSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "price"],
    "properties": {
      "name":       {"type": "string"},
      "price":      {"type": "string"},
      "unit":       {"type": "string"},
      "category":   {"type": "string"},
      "confidence": {"type": "number"}
    }
  }
}`

	// Forma compacta: algunos modelos responden arreglos posicionales
	// [nombre, precio, unidad?, categoria?, confianza?] en vez de objetos.
	visionCompactSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "array",
    "minItems": 2,
    "prefixItems": [
      {"type": "string"},
      {"type": ["string", "number"]},
      {"type": "string"},
      {"type": "string"},
      {"type": "number"}
    ]
  }
}`

	canonicalSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["index", "canonical_name"],
    "properties": {
      "index":          {"type": "integer", "minimum": 0},
      "canonical_name": {"type": "string"},
      "canonical_unit": {"type": "string"},
      "category":       {"type": "string"},
      "confidence":     {"type": "number"}
    }
  }
}`
)

var (
	visionSchema        = jsonschema.MustCompileString("vision_items.json", visionSchemaJSON)
	visionCompactSchema = jsonschema.MustCompileString("vision_items_compact.json", visionCompactSchemaJSON)
	canonicalSchema     = jsonschema.MustCompileString("canonical_items.json", canonicalSchemaJSON)
)

// GeminiService adaptador REST de Google Gemini para los dos puertos de
// inferencia: extracción multimodal por página y sugerencias canónicas por
// lotes. Usa net/http directo; el SDK oficial no aporta nada sobre un POST.
type GeminiService struct {
	apiKey     string
	model      string
	baseURL    string // plantilla con %s para modelo y api key
	httpClient *http.Client
	limiter    *rate.Limiter
	maxItems   int
	maxRetries int
	log        *logger.Logger
}

// NewGeminiService construye el adaptador. model suele ser
// "gemini-1.5-flash"; la cuota se respeta con un limitador de tasa propio
// además de los reintentos ante 429.
func NewGeminiService(cfg config.AIConfig, log *logger.Logger) *GeminiService {
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 15
	}
	maxItems := cfg.MaxItemsPerCall
	if maxItems <= 0 {
		maxItems = 100
	}
	return &GeminiService{
		apiKey:     cfg.GeminiAPIKey,
		model:      cfg.GeminiModel,
		baseURL:    geminiBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second}, // timeout de red; el caller también pone WithTimeout
		limiter:    rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1),
		maxItems:   maxItems,
		maxRetries: cfg.MaxRetries,
		log:        log,
	}
}

// ── Estructuras internas para la API de Gemini ────────────────────────────────

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"system_instruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	GenerationConfig  genConfig       `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64 estándar
}

type genConfig struct {
	ResponseMIMEType string  `json:"responseMimeType"`
	Temperature      float32 `json:"temperature"`
	MaxOutputTokens  int     `json:"maxOutputTokens"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type visionPayloadItem struct {
	Name       string  `json:"name"`
	Price      string  `json:"price"`
	Unit       string  `json:"unit"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

type canonicalPayloadItem struct {
	Index         int     `json:"index"`
	CanonicalName string  `json:"canonical_name"`
	CanonicalUnit string  `json:"canonical_unit"`
	Category      string  `json:"category"`
	Confidence    float64 `json:"confidence"`
}

// ── Implementación de los puertos ─────────────────────────────────────────────

// ExtractPageItems extrae los artículos de la imagen de una página. Con
// offset > 0 pide continuar desde el artículo N tras una respuesta truncada.
func (s *GeminiService) ExtractPageItems(ctx context.Context, image []byte, mimeType string, offset int) (*ports.VisionPageResult, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: GEMINI_API_KEY no configurado")
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	userParts := []geminiPart{
		{InlineData: &inlineData{
			MIMEType: mimeType,
			Data:     base64.StdEncoding.EncodeToString(image),
		}},
	}
	instruction := "Extrae los artículos de esta página."
	if offset > 0 {
		instruction = fmt.Sprintf("Continúa la extracción: empieza desde el artículo %d (omite los primeros %d).", offset+1, offset)
	}
	userParts = append(userParts, geminiPart{Text: instruction})

	raw, finishReason, err := s.generate(ctx, fmt.Sprintf(visionPrompt, s.maxItems), userParts, 8192)
	if err != nil {
		return nil, err
	}

	payload, err := decodeVisionItems(raw)
	if err != nil {
		return nil, fmt.Errorf("AI: respuesta de visión inválida: %w", err)
	}

	res := &ports.VisionPageResult{
		// Al tope de ítems o cortado por tokens asumimos que la página sigue.
		Truncated: len(payload) >= s.maxItems || finishReason == "MAX_TOKENS",
	}
	for _, it := range payload {
		price, err := pricing.ParsePrice(it.Price)
		if err != nil {
			s.log.Debug().Str("texto", it.Price).Err(err).
				Msg("precio transcrito ilegible; el artículo se omite")
			continue
		}
		res.Items = append(res.Items, ports.VisionItem{
			Name:       strings.TrimSpace(it.Name),
			Price:      price,
			Unit:       it.Unit,
			Category:   it.Category,
			Confidence: clamp01(it.Confidence),
		})
	}
	return res, nil
}

// SuggestCanonical pide la forma canónica de un lote de nombres crudos.
// El índice devuelto re-asocia cada sugerencia con su ítem de entrada.
func (s *GeminiService) SuggestCanonical(ctx context.Context, items []ports.CanonicalRequest) ([]ports.CanonicalSuggestion, error) {
	if s.apiKey == "" {
		return nil, fmt.Errorf("AI: GEMINI_API_KEY no configurado")
	}
	if len(items) == 0 {
		return nil, nil
	}

	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. %q", i, it.RawName)
		if it.RawUnit != "" {
			fmt.Fprintf(&b, " (unidad: %s)", it.RawUnit)
		}
		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}

	raw, _, err := s.generate(ctx, canonicalPrompt, []geminiPart{{Text: b.String()}}, 4096)
	if err != nil {
		return nil, err
	}

	doc, err := decodeValidated(raw, canonicalSchema)
	if err != nil {
		return nil, fmt.Errorf("AI: respuesta canónica inválida: %w", err)
	}
	var payload []canonicalPayloadItem
	if err := reencode(doc, &payload); err != nil {
		return nil, fmt.Errorf("AI: respuesta canónica inválida: %w", err)
	}

	out := make([]ports.CanonicalSuggestion, 0, len(payload))
	for _, p := range payload {
		if p.Index < 0 || p.Index >= len(items) {
			continue // índice inventado por el modelo
		}
		out = append(out, ports.CanonicalSuggestion{
			// El índice del lote se traduce al índice global del caller.
			Index:         items[p.Index].Index,
			CanonicalName: strings.ToLower(strings.TrimSpace(p.CanonicalName)),
			CanonicalUnit: p.CanonicalUnit,
			Category:      p.Category,
			Confidence:    clamp01(p.Confidence),
		})
	}
	return out, nil
}

// ── Transporte ────────────────────────────────────────────────────────────────

// generate hace la llamada generateContent con limitación de tasa y reintentos
// con retroceso exponencial más jitter ante 429, 5xx y fallos de red.
func (s *GeminiService) generate(ctx context.Context, system string, userParts []geminiPart, maxTokens int) (text, finishReason string, err error) {
	payload := geminiRequest{
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: system}}},
		Contents: []geminiContent{
			{Role: "user", Parts: userParts},
		},
		GenerationConfig: genConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.2, // baja temperatura para transcripción determinista
			MaxOutputTokens:  maxTokens,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", fmt.Errorf("AI: serializar request: %w", err)
	}

	attempts := s.maxRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	backoff := 500 * time.Millisecond

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := backoff + time.Duration(rand.Int63n(int64(backoff)))
			backoff *= 2
			s.log.Warn().Int("intento", attempt+1).Dur("espera", wait).Msg("reintentando llamada a Gemini")
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", "", ctx.Err()
			}
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return "", "", err
		}

		var retryable bool
		text, finishReason, retryable, err = s.doCall(ctx, body)
		if err == nil || !retryable {
			return text, finishReason, err
		}
	}
	return "", "", fmt.Errorf("AI: reintentos agotados: %w", err)
}

func (s *GeminiService) doCall(ctx context.Context, body []byte) (text, finishReason string, retryable bool, err error) {
	url := fmt.Sprintf(s.baseURL, s.model, s.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", false, fmt.Errorf("AI: crear HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", "", false, fmt.Errorf("AI: timeout o cancelación: %w", ctx.Err())
		}
		return "", "", true, fmt.Errorf("AI: llamada HTTP fallida: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return "", "", true, fmt.Errorf("AI: leer respuesta: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		canRetry := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		var errResp geminiResponse
		if jsonErr := json.Unmarshal(rawBody, &errResp); jsonErr == nil && errResp.Error != nil {
			return "", "", canRetry, fmt.Errorf("AI: Gemini error %d: %s", errResp.Error.Code, errResp.Error.Message)
		}
		return "", "", canRetry, fmt.Errorf("AI: Gemini HTTP %d", resp.StatusCode)
	}

	var gemResp geminiResponse
	if err := json.Unmarshal(rawBody, &gemResp); err != nil {
		return "", "", false, fmt.Errorf("AI: deserializar respuesta Gemini: %w", err)
	}
	if len(gemResp.Candidates) == 0 || len(gemResp.Candidates[0].Content.Parts) == 0 {
		return "", "", true, fmt.Errorf("AI: Gemini devolvió respuesta vacía")
	}
	return gemResp.Candidates[0].Content.Parts[0].Text,
		gemResp.Candidates[0].FinishReason, false, nil
}

// ── Decodificación ────────────────────────────────────────────────────────────

// decodeValidated limpia posibles cercas de markdown, deserializa y valida
// contra el esquema. responseMimeType ya pide JSON puro; la limpieza cubre
// modelos que igual envuelven la respuesta.
func decodeValidated(raw string, schema *jsonschema.Schema) (interface{}, error) {
	cleaned := stripFences(raw)

	var doc interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("no es JSON válido: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("no cumple el esquema: %w", err)
	}
	return doc, nil
}

// decodeVisionItems acepta las dos formas que devuelve el colaborador:
// el arreglo de objetos del prompt o un arreglo posicional compacto
// [nombre, precio, unidad?, categoria?, confianza?].
func decodeVisionItems(raw string) ([]visionPayloadItem, error) {
	cleaned := stripFences(raw)

	var doc interface{}
	if err := json.Unmarshal([]byte(cleaned), &doc); err != nil {
		return nil, fmt.Errorf("no es JSON válido: %w", err)
	}

	rows, _ := doc.([]interface{})
	compact := len(rows) > 0
	for _, r := range rows {
		if _, ok := r.([]interface{}); !ok {
			compact = false
			break
		}
	}

	if !compact {
		if err := visionSchema.Validate(doc); err != nil {
			return nil, fmt.Errorf("no cumple el esquema: %w", err)
		}
		var payload []visionPayloadItem
		if err := reencode(doc, &payload); err != nil {
			return nil, err
		}
		return payload, nil
	}

	if err := visionCompactSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("no cumple el esquema compacto: %w", err)
	}
	payload := make([]visionPayloadItem, 0, len(rows))
	for _, r := range rows {
		fields := r.([]interface{})
		it := visionPayloadItem{Name: stringAt(fields, 0)}
		// El precio puede llegar como texto o como número.
		switch v := fields[1].(type) {
		case string:
			it.Price = v
		case float64:
			it.Price = strconv.FormatFloat(v, 'f', -1, 64)
		}
		it.Unit = stringAt(fields, 2)
		it.Category = stringAt(fields, 3)
		if len(fields) > 4 {
			if c, ok := fields[4].(float64); ok {
				it.Confidence = c
			}
		}
		payload = append(payload, it)
	}
	return payload, nil
}

func stringAt(fields []interface{}, i int) string {
	if i < len(fields) {
		if s, ok := fields[i].(string); ok {
			return s
		}
	}
	return ""
}

// reencode proyecta el documento ya validado sobre el tipo destino.
func reencode(doc interface{}, into interface{}) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, into)
}

// stripFences quita cercas ```json ... ``` y texto fuera del arreglo.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
		s = strings.TrimSpace(s)
	}
	if start := strings.IndexAny(s, "[{"); start > 0 {
		s = s[start:]
	}
	return s
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
