package extraction

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// ╔══════════════════════════════════════════════════════════════╗
// ║  Estrategia de texto: listas semiestructuradas línea a       ║
// ║  línea, en texto plano o en la capa de texto de un PDF.      ║
// ╚══════════════════════════════════════════════════════════════╝

// lineItemRe reconoce "nombre precio[/unidad]" con los formatos de precio
// regionales: "Tomate chonto 8.500/kg", "Queso campesino $179K",
// "Arroz bulto x50: 316.350". El nombre debe contener al menos una letra.
var lineItemRe = regexp.MustCompile(
	`^(.*\p{L}.*?)[\s:]+\$?\s*(\d[\d.,]*[KkMm]?)\s*(?:/\s*(\p{L}+))?\s*$`)

// TextExtractor extrae ítems de texto semiestructurado. Segunda de la cadena:
// asume menos estructura que la tabla pero más que la visión.
type TextExtractor struct {
	log *logger.Logger
}

func NewTextExtractor(log *logger.Logger) *TextExtractor {
	return &TextExtractor{log: log}
}

var _ ports.ExtractionStrategy = (*TextExtractor)(nil)

func (e *TextExtractor) Name() string { return "texto" }

func (e *TextExtractor) CanHandle(doc *entity.Document) bool {
	if doc.MIME == "application/pdf" || strings.HasPrefix(doc.MIME, "text/") {
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".pdf", ".txt", ".md":
		return true
	}
	// Respaldo de la tabla: un csv que no mapeó columnas a veces sí parsea
	// línea a línea.
	return utf8Mostly(doc.Content)
}

func (e *TextExtractor) Extract(ctx context.Context, doc *entity.Document) (*ports.ExtractionResult, error) {
	if isPDF(doc) {
		return e.extractPDF(ctx, doc)
	}

	res := &ports.ExtractionResult{}
	e.extractLines(string(doc.Content), 1, res)
	finishCompleteness(res)
	return res, nil
}

func (e *TextExtractor) extractPDF(ctx context.Context, doc *entity.Document) (*ports.ExtractionResult, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, fmt.Errorf("abriendo pdf %s: %w", doc.Filename, err)
	}

	res := &ports.ExtractionResult{}
	for page := 1; page <= r.NumPage(); page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(page)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			// PDF escaneado sin capa de texto: la página queda para la
			// estrategia de visión.
			e.log.Debug().Int("pagina", page).Err(err).Msg("página pdf sin texto extraíble")
			continue
		}
		e.extractLines(text, page, res)
	}
	finishCompleteness(res)
	return res, nil
}

// extractLines acumula sobre res las líneas de la página que parsean como
// ítem. Una línea con dígitos que no parsea cuenta como candidata perdida.
func (e *TextExtractor) extractLines(text string, page int, res *ports.ExtractionResult) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.ContainsAny(line, "0123456789") {
			continue
		}
		res.RowsDetected++

		m := lineItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		price, err := pricing.ParsePrice(m[2])
		if err != nil || price.Sign() <= 0 {
			continue
		}
		name := strings.Trim(strings.TrimSpace(m[1]), ".-:")
		if name == "" {
			continue
		}
		res.Items = append(res.Items, entity.RawLineItem{
			RawName:    name,
			UnitPrice:  price,
			Unit:       m[3],
			SourcePage: page,
		})
		res.RowsExtracted++
	}
}

func finishCompleteness(res *ports.ExtractionResult) {
	if res.RowsDetected > 0 {
		res.Completeness = float64(res.RowsExtracted) / float64(res.RowsDetected)
	}
}

func isPDF(doc *entity.Document) bool {
	return doc.MIME == "application/pdf" ||
		strings.EqualFold(filepath.Ext(doc.Filename), ".pdf") ||
		bytes.HasPrefix(doc.Content, []byte("%PDF"))
}

// utf8Mostly descarta binarios: una muestra con bytes de control no es texto.
func utf8Mostly(content []byte) bool {
	sample := content
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	if len(sample) == 0 {
		return false
	}
	control := 0
	for _, b := range sample {
		if b < 0x09 || (b > 0x0d && b < 0x20) {
			control++
		}
	}
	return control*20 < len(sample)
}
