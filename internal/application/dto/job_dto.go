package dto

import (
	"time"

	"github.com/jhoicas/precios-api/internal/domain/entity"
)

// UploadResponse respuesta al encolar una lista de precios.
type UploadResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse estado de un job de ingesta.
type JobResponse struct {
	ID             string    `json:"id"`
	SupplierID     string    `json:"supplier_id"`
	Filename       string    `json:"filename"`
	Status         string    `json:"status"`
	Detail         string    `json:"detail,omitempty"`
	Strategy       string    `json:"strategy,omitempty"`
	ItemsDetected  int       `json:"items_detected"`
	ItemsExtracted int       `json:"items_extracted"`
	Incomplete     bool      `json:"incomplete"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobResponseFrom arma la respuesta desde la entidad.
func JobResponseFrom(j *entity.DocumentJob) JobResponse {
	return JobResponse{
		ID:             j.ID,
		SupplierID:     j.SupplierID,
		Filename:       j.Filename,
		Status:         string(j.Status),
		Detail:         j.Detail,
		Strategy:       j.Strategy,
		ItemsDetected:  j.ItemsDetected,
		ItemsExtracted: j.ItemsExtracted,
		Incomplete:     j.Incomplete,
		CreatedAt:      j.CreatedAt,
		UpdatedAt:      j.UpdatedAt,
	}
}

// ReapResponse resultado de la barrida de jobs obsoletos.
type ReapResponse struct {
	Reaped int64 `json:"reaped"`
}
