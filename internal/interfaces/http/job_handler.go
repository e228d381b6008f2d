package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/precios-api/internal/application/dto"
	"github.com/jhoicas/precios-api/internal/domain"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

// JobHandler expone el estado de los jobs de ingesta y sus operaciones de
// mantenimiento.
type JobHandler struct {
	jobs       repository.JobRepository
	staleAfter time.Duration
}

// NewJobHandler construye el handler.
func NewJobHandler(jobs repository.JobRepository, staleAfter time.Duration) *JobHandler {
	return &JobHandler{jobs: jobs, staleAfter: staleAfter}
}

// GetByID godoc
// @Summary      Consultar un job de ingesta
// @Tags         jobs
// @Produce      json
// @Param        id  path  string  true  "ID del job"
// @Success      200  {object}  dto.JobResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/jobs/{id} [get]
func (h *JobHandler) GetByID(c *fiber.Ctx) error {
	job, err := h.jobs.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "job no encontrado"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.JobResponseFrom(job))
}

// Retry godoc
// @Summary      Reencolar un job fallido
// @Description  Solo se reintentan jobs en failed; el documento original se
//
//	conserva en el almacén y vuelve a la cola tal cual.
//
// @Tags         jobs
// @Produce      json
// @Param        id  path  string  true  "ID del job"
// @Success      202  {object}  dto.UploadResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/jobs/{id}/retry [post]
func (h *JobHandler) Retry(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.jobs.Requeue(c.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "job no encontrado"})
		}
		if errors.Is(err, domain.ErrJobNotRetryable) {
			return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "NOT_RETRYABLE", Message: "solo los jobs en failed se pueden reintentar"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(dto.UploadResponse{JobID: id, Status: "queued"})
}

// Reap godoc
// @Summary      Barrer jobs de procesamiento obsoletos
// @Description  Marca failed los jobs atascados en processing más allá del
//
//	timeout. El reaper interno corre solo; este endpoint fuerza la barrida.
//
// @Tags         jobs
// @Produce      json
// @Success      200  {object}  dto.ReapResponse
// @Failure      500  {object}  dto.ErrorResponse
// @Router       /api/jobs/reap [post]
func (h *JobHandler) Reap(c *fiber.Ctx) error {
	n, err := h.jobs.FailStale(c.Context(), h.staleAfter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(dto.ReapResponse{Reaped: n})
}
