package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/precios-api/internal/application/dto"
	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/entity"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

// maxUploadBytes tope del documento de lista de precios (20 MB cubre fotos de
// celular sin comprimir).
const maxUploadBytes = 20 * 1024 * 1024

// PricelistHandler recibe listas de precios y las encola para ingesta
// asíncrona: la extracción puede tardar minutos en documentos con visión.
type PricelistHandler struct {
	jobs repository.JobRepository
}

// NewPricelistHandler construye el handler.
func NewPricelistHandler(jobs repository.JobRepository) *PricelistHandler {
	return &PricelistHandler{jobs: jobs}
}

// Upload godoc
// @Summary      Encolar una lista de precios de proveedor
// @Description  Recibe el documento crudo (xlsx, csv, pdf, txt o imagen) y
//
//	devuelve el id del job para consultar el avance.
//
// @Tags         pricelists
// @Accept       octet-stream
// @Produce      json
// @Param        supplier_id  query   string  true   "Identificador del proveedor"
// @Param        X-Filename   header  string  false  "Nombre del archivo original"
// @Success      202  {object}  dto.UploadResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      413  {object}  dto.ErrorResponse
// @Router       /api/pricelists [post]
func (h *PricelistHandler) Upload(c *fiber.Ctx) error {
	supplierID := c.Query("supplier_id")
	if supplierID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "supplier_id es obligatorio"})
	}

	body := c.Body()
	if len(body) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "EMPTY_BODY", Message: "documento vacío"})
	}
	if len(body) > maxUploadBytes {
		return c.Status(fiber.StatusRequestEntityTooLarge).JSON(dto.ErrorResponse{Code: "TOO_LARGE", Message: "documento supera el tamaño máximo"})
	}

	// Copia propia: Fiber recicla el buffer del body al terminar el request.
	content := make([]byte, len(body))
	copy(content, body)

	job := &entity.DocumentJob{
		SupplierID: supplierID,
		Filename:   c.Get("X-Filename"),
		MIME:       c.Get(fiber.HeaderContentType),
		Content:    content,
	}
	if err := h.jobs.Create(c.Context(), job); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "job duplicado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}

	return c.Status(fiber.StatusAccepted).JSON(dto.UploadResponse{
		JobID:  job.ID,
		Status: string(job.Status),
	})
}
