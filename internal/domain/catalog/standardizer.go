package catalog

import (
	"math"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// deaccent descompone y elimina marcas diacríticas: "brócoli" → "brocoli".
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// normalizeText minúsculas, sin tildes, solo [a-z0-9] y espacios colapsados.
func normalizeText(s string) string {
	out, _, err := transform.String(deaccent, strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		out = strings.ToLower(strings.TrimSpace(s))
	}
	var b strings.Builder
	for _, r := range out {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(tok) > 0
}

// maxDistFor distancia de edición permitida según la longitud del token:
// tokens cortos solo admiten una edición para no sobre-corregir.
func maxDistFor(tok string) int {
	if len(tok) <= 4 {
		return 1
	}
	return 2
}

// Standardizer produce la forma canónica de (nombre crudo, unidad cruda).
// Determinista dentro de una corrida: el resultado se memoriza por par de
// entrada, así que entradas idénticas siempre devuelven el mismo producto.
type Standardizer struct {
	lex *Lexicon

	mu    sync.Mutex
	cache map[string]entity.StandardizedProduct
}

// NewStandardizer construye el estandarizador; con nil usa el léxico incorporado.
func NewStandardizer(lex *Lexicon) *Standardizer {
	if lex == nil {
		lex = NewLexicon()
	}
	return &Standardizer{
		lex:   lex,
		cache: make(map[string]entity.StandardizedProduct),
	}
}

// Standardize canonicaliza un nombre y una unidad crudos. Pasos: normalizar
// mayúsculas/tildes/espacios, detectar idioma por pertenencia al léxico,
// corregir errores de digitación dentro de la distancia acotada, mapear
// categoría por palabra clave y calcular confianza a partir de cobertura y
// distancia total de corrección. Un nombre ya canónico es punto fijo.
func (s *Standardizer) Standardize(rawName, rawUnit string) entity.StandardizedProduct {
	cacheKey := rawName + "\x00" + rawUnit
	s.mu.Lock()
	if p, ok := s.cache[cacheKey]; ok {
		s.mu.Unlock()
		return p
	}
	s.mu.Unlock()

	tokens := strings.Fields(normalizeText(rawName))

	var (
		canonTokens []string
		esHits      int
		enHits      int
		matched     int
		considered  int
		totalDist   int
		category    string
	)

	for _, tok := range tokens {
		if isNumeric(tok) {
			// los números sueltos (presentaciones, gramajes) no aportan a la llave
			continue
		}
		considered++

		entry, ok := s.lex.Lookup(tok)
		dist := 0
		if !ok {
			entry, dist, ok = s.lex.Nearest(tok, maxDistFor(tok))
		}
		if !ok {
			canonTokens = append(canonTokens, tok)
			continue
		}

		matched++
		totalDist += dist
		if entry.Lang == LangES {
			esHits++
		} else {
			enHits++
		}
		if category == "" && entry.Category != "" {
			category = entry.Category
		}
		canonTokens = append(canonTokens, entry.Canonical)
	}

	name := strings.Join(canonTokens, " ")
	if name == "" {
		name = strings.Join(tokens, " ")
	}
	if category == "" {
		category = "otros"
	}

	lang := ""
	switch {
	case esHits == 0 && enHits == 0:
	case enHits > esHits:
		lang = LangEN
	default:
		lang = LangES
	}

	confidence := 0.0
	if considered > 0 {
		confidence = float64(matched)/float64(considered) - 0.1*float64(totalDist)
	}
	confidence = math.Round(math.Max(0, math.Min(1, confidence))*100) / 100

	p := entity.StandardizedProduct{
		CanonicalName:    name,
		CanonicalUnit:    NormalizeUnit(rawUnit),
		Category:         category,
		DetectedLanguage: lang,
		Confidence:       confidence,
	}

	s.mu.Lock()
	s.cache[cacheKey] = p
	s.mu.Unlock()
	return p
}
