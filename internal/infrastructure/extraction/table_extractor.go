package extraction

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// ╔══════════════════════════════════════════════════════════════╗
// ║  Estrategia de tabla: xlsx / csv / tsv con detección difusa  ║
// ║  de encabezados. Primera de la cadena de respaldo.           ║
// ╚══════════════════════════════════════════════════════════════╝

// headerCandidates sinónimos por columna lógica, en español e inglés y en
// forma normalizada (minúscula, sin tildes). El match es por contains para
// tolerar encabezados como "PRECIO UNITARIO ($)".
var headerCandidates = map[string][]string{
	"name":     {"nombre", "producto", "descripcion", "articulo", "item", "name", "description"},
	"price":    {"precio", "price", "valor", "unitario", "vlr"},
	"quantity": {"cantidad", "cant", "qty", "quantity"},
	"unit":     {"unidad", "unit", "medida", "presentacion", "und", "um"},
	"total":    {"total", "importe", "subtotal", "amount"},
	"category": {"categoria", "category", "grupo", "linea"},
}

// headerScanRows filas iniciales donde puede vivir el encabezado; las listas
// reales suelen traer título y datos del proveedor antes de la tabla.
const headerScanRows = 10

type columnMap struct {
	name, price, quantity, unit, total, category int
	headerRow                                    int
}

func (c columnMap) usable() bool { return c.name >= 0 && c.price >= 0 }

// TableExtractor extrae ítems de documentos tabulares. Asume la estructura
// más fuerte de las tres estrategias, por eso va primera en la cadena.
type TableExtractor struct {
	log *logger.Logger
}

func NewTableExtractor(log *logger.Logger) *TableExtractor {
	return &TableExtractor{log: log}
}

// Compile-time check
var _ ports.ExtractionStrategy = (*TableExtractor)(nil)

func (e *TableExtractor) Name() string { return "tabla" }

func (e *TableExtractor) CanHandle(doc *entity.Document) bool {
	switch doc.MIME {
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-excel", "text/csv", "text/tab-separated-values":
		return true
	}
	switch strings.ToLower(filepath.Ext(doc.Filename)) {
	case ".xlsx", ".xls", ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (e *TableExtractor) Extract(_ context.Context, doc *entity.Document) (*ports.ExtractionResult, error) {
	rows, err := e.readRows(doc)
	if err != nil {
		return nil, fmt.Errorf("leyendo tabla de %s: %w", doc.Filename, err)
	}
	return e.extractRows(rows), nil
}

func (e *TableExtractor) readRows(doc *entity.Document) ([][]string, error) {
	ext := strings.ToLower(filepath.Ext(doc.Filename))
	if ext == ".xlsx" || ext == ".xls" ||
		strings.Contains(doc.MIME, "spreadsheet") || strings.Contains(doc.MIME, "ms-excel") {
		return readWorkbook(doc.Content)
	}
	return readDelimited(doc.Content)
}

func readWorkbook(content []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("el libro no tiene hojas")
	}
	// La lista de precios vive en la primera hoja; las demás suelen ser
	// notas del proveedor.
	return f.GetRows(sheets[0])
}

func readDelimited(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = sniffDelimiter(content)
	r.FieldsPerRecord = -1 // filas desiguales son normales en listas reales
	r.LazyQuotes = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

// sniffDelimiter elige el separador más frecuente en las primeras líneas.
// El punto y coma gana en empate con la coma: los CSV regionales con coma
// decimal usan ';' como separador de campo.
func sniffDelimiter(content []byte) rune {
	sample := content
	if len(sample) > 4096 {
		sample = sample[:4096]
	}
	counts := map[rune]int{';': 0, ',': 0, '\t': 0, '|': 0}
	for _, b := range sample {
		if _, ok := counts[rune(b)]; ok {
			counts[rune(b)]++
		}
	}
	best, bestN := ',', -1
	for _, d := range []rune{';', '\t', '|', ','} {
		if counts[d] > bestN {
			best, bestN = d, counts[d]
		}
	}
	return best
}

func (e *TableExtractor) extractRows(rows [][]string) *ports.ExtractionResult {
	cols := detectColumns(rows)
	if !cols.usable() {
		cols = positionalColumns(rows)
	}

	res := &ports.ExtractionResult{}
	if !cols.usable() {
		return res
	}

	for i := cols.headerRow + 1; i < len(rows); i++ {
		row := rows[i]
		name := cell(row, cols.name)
		priceText := cell(row, cols.price)
		if name == "" && priceText == "" {
			continue // fila en blanco, no cuenta como candidata
		}
		res.RowsDetected++

		if name == "" || priceText == "" {
			continue
		}
		price, err := pricing.ParsePrice(priceText)
		if err != nil {
			e.log.Debug().Int("fila", i+1).Str("texto", priceText).Err(err).
				Msg("precio ilegible; la fila se omite")
			continue
		}

		item := entity.RawLineItem{
			RawName:      name,
			UnitPrice:    price,
			Unit:         cell(row, cols.unit),
			CategoryHint: strings.ToLower(cell(row, cols.category)),
			SourcePage:   i + 1,
		}
		if q := cell(row, cols.quantity); q != "" {
			if qty, err := decimal.NewFromString(strings.ReplaceAll(q, ",", ".")); err == nil {
				item.Quantity = qty
			}
		}
		if tt := cell(row, cols.total); tt != "" {
			if total, err := pricing.ParsePrice(tt); err == nil {
				item.TotalPrice = total
			}
		}
		res.Items = append(res.Items, item)
		res.RowsExtracted++
	}

	if res.RowsDetected > 0 {
		res.Completeness = float64(res.RowsExtracted) / float64(res.RowsDetected)
	}
	return res
}

// detectColumns busca en las primeras filas una que nombre al menos las
// columnas de producto y precio.
func detectColumns(rows [][]string) columnMap {
	limit := len(rows)
	if limit > headerScanRows {
		limit = headerScanRows
	}
	for i := 0; i < limit; i++ {
		cols := columnMap{name: -1, price: -1, quantity: -1, unit: -1, total: -1, category: -1, headerRow: i}
		for j, raw := range rows[i] {
			h := normalizeHeader(raw)
			if h == "" {
				continue
			}
			switch {
			case cols.name < 0 && matchesAny(h, headerCandidates["name"]):
				cols.name = j
			case cols.total < 0 && matchesAny(h, headerCandidates["total"]):
				// total antes que price: "precio total" no debe capturar la
				// columna de unitario
				cols.total = j
			case cols.price < 0 && matchesAny(h, headerCandidates["price"]):
				cols.price = j
			case cols.quantity < 0 && matchesAny(h, headerCandidates["quantity"]):
				cols.quantity = j
			case cols.unit < 0 && matchesAny(h, headerCandidates["unit"]):
				cols.unit = j
			case cols.category < 0 && matchesAny(h, headerCandidates["category"]):
				cols.category = j
			}
		}
		if cols.usable() {
			return cols
		}
	}
	return columnMap{name: -1, price: -1, quantity: -1, unit: -1, total: -1, category: -1}
}

// positionalColumns respaldo para tablas sin encabezado: nombre en la primera
// columna y precio en la primera columna numérica de la primera fila con datos.
func positionalColumns(rows [][]string) columnMap {
	cols := columnMap{name: 0, price: -1, quantity: -1, unit: -1, total: -1, category: -1, headerRow: -1}
	for _, row := range rows {
		for j := 1; j < len(row); j++ {
			if _, err := pricing.ParsePrice(row[j]); err == nil {
				cols.price = j
				return cols
			}
		}
	}
	return cols
}

func normalizeHeader(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	return strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n").Replace(s)
}

func matchesAny(header string, candidates []string) bool {
	for _, c := range candidates {
		if strings.Contains(header, c) {
			return true
		}
	}
	return false
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
