package entity

import "time"

// JobStatus ciclo de vida de un job de documento: queued → processing →
// {completed | failed}. Un job en processing más allá del timeout de
// obsolescencia se marca failed; nunca queda ambiguo.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// DocumentJob es el estado durable de la ingesta de una lista de precios.
// Content guarda los bytes crudos que entregó la capa de intake; el control
// de tamaño y tipo ocurre antes de llegar aquí.
type DocumentJob struct {
	ID         string
	SupplierID string
	Filename   string
	MIME       string
	Content    []byte
	// PageImages: imágenes por página para la estrategia de visión, si la
	// capa de intake las preparó (p. ej. fotos de la lista).
	PageImages [][]byte

	Status JobStatus
	Detail string // diagnóstico en failed: filas detectadas vs extraídas, estrategias intentadas

	// Resultado de la última ejecución.
	Strategy       string
	ItemsDetected  int
	ItemsExtracted int
	Incomplete     bool

	CreatedAt time.Time
	UpdatedAt time.Time
	StartedAt *time.Time
}

// Document es la vista de solo lectura que consumen las estrategias de
// extracción.
type Document struct {
	Filename   string
	MIME       string
	Content    []byte
	PageImages [][]byte
}

// DocumentFromJob arma el documento a extraer desde el job durable.
func DocumentFromJob(j *DocumentJob) *Document {
	return &Document{
		Filename:   j.Filename,
		MIME:       j.MIME,
		Content:    j.Content,
		PageImages: j.PageImages,
	}
}
