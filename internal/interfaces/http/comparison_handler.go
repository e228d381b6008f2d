package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/precios-api/internal/application/comparison"
	"github.com/jhoicas/precios-api/internal/application/dto"
	"github.com/jhoicas/precios-api/internal/application/ingest"
	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

// ComparisonHandler compara facturas escaneadas contra el catálogo y expone
// el historial de precios por producto canónico.
type ComparisonHandler struct {
	compare    *comparison.CompareUseCase
	dispatcher *ingest.Dispatcher
	reports    comparison.ReportGenerator
	prices     repository.PriceRecordRepository
}

// NewComparisonHandler construye el handler.
func NewComparisonHandler(
	compare *comparison.CompareUseCase,
	dispatcher *ingest.Dispatcher,
	reports comparison.ReportGenerator,
	prices repository.PriceRecordRepository,
) *ComparisonHandler {
	return &ComparisonHandler{
		compare:    compare,
		dispatcher: dispatcher,
		reports:    reports,
		prices:     prices,
	}
}

// Compare godoc
// @Summary      Comparar los ítems de una factura contra el catálogo
// @Description  Recibe los ítems ya digitados. Con ?format=pdf devuelve el
//
//	informe de ahorros en PDF en lugar de JSON.
//
// @Tags         invoices
// @Accept       json
// @Produce      json
// @Param        format  query  string  false  "pdf para el informe en PDF"
// @Param        body    body   dto.CompareRequest  true  "Ítems de la factura"
// @Success      200  {object}  dto.CompareResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/invoices/compare [post]
func (h *ComparisonHandler) Compare(c *fiber.Ctx) error {
	var in dto.CompareRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if len(in.Items) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "la factura no trae ítems"})
	}

	items := make([]entity.RawLineItem, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, entity.RawLineItem{
			RawName:    it.Name,
			Unit:       it.Unit,
			UnitPrice:  it.UnitPrice,
			Quantity:   it.Quantity,
			TotalPrice: it.TotalPrice,
		})
	}

	report, err := h.compare.Compare(c.Context(), items)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return h.respond(c, report)
}

// CompareDocument godoc
// @Summary      Comparar una factura desde su documento
// @Description  Extrae los ítems del documento (imagen, pdf o texto) con la
//
//	misma cadena de estrategias de la ingesta y los compara en línea. El
//	documento NO se ingesta al catálogo.
//
// @Tags         invoices
// @Accept       octet-stream
// @Produce      json
// @Param        format      query   string  false  "pdf para el informe en PDF"
// @Param        X-Filename  header  string  false  "Nombre del archivo original"
// @Success      200  {object}  dto.CompareResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/invoices/compare/document [post]
func (h *ComparisonHandler) CompareDocument(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "EMPTY_BODY", Message: "documento vacío"})
	}
	content := make([]byte, len(body))
	copy(content, body)

	doc := &entity.Document{
		Filename: c.Get("X-Filename"),
		MIME:     c.Get(fiber.HeaderContentType),
		Content:  content,
	}

	res, attempts, err := h.dispatcher.Extract(c.Context(), doc)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentUnusable) {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{
				Code:    "DOCUMENT_UNUSABLE",
				Message: ingest.DescribeAttempts(attempts),
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	report, err := h.compare.Compare(c.Context(), res.Items)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return h.respond(c, report)
}

// respond serializa el informe como JSON o como PDF según ?format.
func (h *ComparisonHandler) respond(c *fiber.Ctx, report *comparison.CompareReport) error {
	if c.Query("format") == "pdf" && h.reports != nil {
		pdfBytes, err := h.reports.GenerateSavingsReport(c.Context(), report)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "PDF", Message: err.Error()})
		}
		c.Set(fiber.HeaderContentType, "application/pdf")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="informe-ahorros.pdf"`)
		return c.Send(pdfBytes)
	}

	out := dto.CompareResponse{
		Results: make([]dto.ComparisonItemResponse, 0, len(report.Results)),
		Summary: dto.InvoiceSummaryResponse{
			TotalCurrent:    report.Summary.TotalCurrent,
			TotalSavings:    report.Summary.TotalSavings,
			TotalItems:      report.Summary.TotalItems,
			FoundItems:      report.Summary.FoundItems,
			OverpricedItems: report.Summary.OverpricedItems,
			GoodDeals:       report.Summary.GoodDeals,
		},
	}
	for _, r := range report.Results {
		out.Results = append(out.Results, dto.ComparisonItemFrom(r))
	}
	return c.JSON(out)
}

// PriceHistory godoc
// @Summary      Historial de precios de un producto canónico
// @Tags         products
// @Produce      json
// @Param        key    path   string  true   "Llave canónica (nombre|unidad)"
// @Param        limit  query  int     false  "Máximo de registros (default 100)"
// @Success      200  {array}   dto.PriceHistoryEntryResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/products/{key}/prices [get]
func (h *ComparisonHandler) PriceHistory(c *fiber.Ctx) error {
	key, err := urlDecode(c.Params("key"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "llave inválida"})
	}

	records, err := h.prices.HistoryByKey(c.Context(), key, c.QueryInt("limit", 100))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	out := make([]dto.PriceHistoryEntryResponse, 0, len(records))
	for _, rec := range records {
		entry := dto.PriceHistoryEntryResponse{
			SupplierID: rec.SupplierID,
			Amount:     rec.Amount,
			Unit:       rec.Unit,
			ValidFrom:  rec.ValidFrom.Format("2006-01-02T15:04:05Z07:00"),
			Active:     rec.Active(),
		}
		if rec.ValidTo != nil {
			entry.ValidTo = rec.ValidTo.Format("2006-01-02T15:04:05Z07:00")
		}
		out = append(out, entry)
	}
	return c.JSON(out)
}
