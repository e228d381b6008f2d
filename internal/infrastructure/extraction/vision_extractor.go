package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/pkg/batch"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

// ╔══════════════════════════════════════════════════════════════╗
// ║  Estrategia de visión: fotos y escaneos sin capa de texto,   ║
// ║  vía el colaborador multimodal. Última de la cadena.         ║
// ╚══════════════════════════════════════════════════════════════╝

// maxContinuations tope de llamadas de continuación por página ante
// respuestas truncadas. Una lista real no pasa de unos cientos de ítems por
// página; más allá es el modelo repitiéndose.
const maxContinuations = 20

type visionPage struct {
	index int // 1-based, orden del documento
	image []byte
	mime  string
}

type visionPageItems struct {
	page  int
	items []entity.RawLineItem
}

// VisionExtractor extrae ítems de imágenes de página con el modelo
// multimodal. Las páginas viajan en lotes secuenciales con pausa entre lotes
// para respetar la cuota del proveedor de inferencia.
type VisionExtractor struct {
	model ports.VisionModel
	cfg   config.PipelineConfig
	log   *logger.Logger
}

func NewVisionExtractor(model ports.VisionModel, cfg config.PipelineConfig, log *logger.Logger) *VisionExtractor {
	return &VisionExtractor{model: model, cfg: cfg, log: log}
}

var _ ports.ExtractionStrategy = (*VisionExtractor)(nil)

func (e *VisionExtractor) Name() string { return "vision" }

func (e *VisionExtractor) CanHandle(doc *entity.Document) bool {
	if e.model == nil {
		return false
	}
	// Los PDF escaneados sin capa de texto llegan aquí tras fallar el texto;
	// sus páginas se derivan del propio contenido del documento.
	return len(doc.PageImages) > 0 || strings.HasPrefix(doc.MIME, "image/") || isPDF(doc)
}

func (e *VisionExtractor) Extract(ctx context.Context, doc *entity.Document) (*ports.ExtractionResult, error) {
	pages, err := e.pagesOf(doc)
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return &ports.ExtractionResult{}, nil
	}

	run := batch.Process(ctx, pages, e.cfg.BatchSize, e.cfg.BatchDelay,
		func(ctx context.Context, lote []visionPage) ([]visionPageItems, error) {
			out := make([]visionPageItems, 0, len(lote))
			for _, p := range lote {
				items, err := e.extractPage(ctx, p)
				if err != nil {
					// La página perdida no tumba el lote; el documento queda
					// parcial y el despachador decide.
					e.log.Warn().Int("pagina", p.index).Err(err).
						Msg("página de visión falló; el resto continúa")
					continue
				}
				out = append(out, visionPageItems{page: p.index, items: items})
			}
			return out, nil
		})

	res := &ports.ExtractionResult{}
	done := 0
	// Aggregated conserva el orden de páginas del documento.
	for _, pr := range run.Aggregated {
		done++
		for _, it := range pr.items {
			res.RowsDetected++
			if it.RawName == "" || it.UnitPrice.Sign() <= 0 {
				continue
			}
			res.Items = append(res.Items, it)
			res.RowsExtracted++
		}
	}

	if res.RowsDetected > 0 {
		res.Completeness = float64(res.RowsExtracted) / float64(res.RowsDetected)
		// Penalizar páginas perdidas: el documento no está completo aunque
		// las páginas que sí llegaron hayan mapeado bien.
		res.Completeness *= float64(done) / float64(len(pages))
	}
	return res, nil
}

func (e *VisionExtractor) pagesOf(doc *entity.Document) ([]visionPage, error) {
	if len(doc.PageImages) > 0 {
		pages := make([]visionPage, 0, len(doc.PageImages))
		for i, img := range doc.PageImages {
			pages = append(pages, visionPage{index: i + 1, image: img, mime: "image/png"})
		}
		return pages, nil
	}
	if strings.HasPrefix(doc.MIME, "image/") && len(doc.Content) > 0 {
		return []visionPage{{index: 1, image: doc.Content, mime: doc.MIME}}, nil
	}
	if isPDF(doc) {
		return pdfPageImages(doc.Content)
	}
	return nil, nil
}

// pdfPageImages extrae las imágenes embebidas de un PDF escaneado (una por
// página en un escaneo típico) en orden de documento. Un PDF con capa de
// texto y sin imágenes produce cero páginas; el despachador lo descarta.
func pdfPageImages(content []byte) ([]visionPage, error) {
	raw, err := pdfapi.ExtractImagesRaw(bytes.NewReader(content), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("extrayendo imágenes del pdf: %w", err)
	}

	var pages []visionPage
	for _, byObj := range raw {
		for _, img := range byObj {
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			pages = append(pages, visionPage{
				index: img.PageNr,
				image: data,
				mime:  imageMIME(img.FileType),
			})
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].index < pages[j].index })
	return pages, nil
}

func imageMIME(fileType string) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "tif", "tiff":
		return "image/tiff"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}

// extractPage pide los ítems de una página con timeout propio y fragmenta con
// llamadas de continuación mientras el modelo reporte truncamiento.
func (e *VisionExtractor) extractPage(ctx context.Context, p visionPage) ([]entity.RawLineItem, error) {
	pctx := ctx
	if e.cfg.PageTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, e.cfg.PageTimeout)
		defer cancel()
	}

	var items []entity.RawLineItem
	offset := 0
	for call := 0; call <= maxContinuations; call++ {
		page, err := e.model.ExtractPageItems(pctx, p.image, p.mime, offset)
		if err != nil {
			return nil, err
		}
		for _, vi := range page.Items {
			items = append(items, entity.RawLineItem{
				RawName:      vi.Name,
				UnitPrice:    vi.Price,
				Unit:         vi.Unit,
				CategoryHint: strings.ToLower(vi.Category),
				SourcePage:   p.index,
			})
		}
		if !page.Truncated || len(page.Items) == 0 {
			return items, nil
		}
		offset += len(page.Items)
		e.log.Debug().Int("pagina", p.index).Int("offset", offset).
			Msg("respuesta truncada; llamada de continuación")
	}
	e.log.Warn().Int("pagina", p.index).Int("items", len(items)).
		Msg("tope de continuaciones alcanzado; la página queda parcial")
	return items, nil
}
