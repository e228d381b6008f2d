package http

import (
	"net/url"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/precios-api/internal/application/comparison"
	"github.com/jhoicas/precios-api/internal/application/ingest"
	"github.com/jhoicas/precios-api/internal/domain/repository"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Jobs       repository.JobRepository
	Prices     repository.PriceRecordRepository
	CompareUC  *comparison.CompareUseCase
	Dispatcher *ingest.Dispatcher
	Reports    comparison.ReportGenerator
	StaleAfter time.Duration
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Ingesta de listas de precios (asíncrona, vía cola durable)
	pricelists := api.Group("/pricelists")
	pricelistHandler := NewPricelistHandler(deps.Jobs)
	pricelists.Post("/", pricelistHandler.Upload)

	// Jobs de ingesta
	jobs := api.Group("/jobs")
	jobHandler := NewJobHandler(deps.Jobs, deps.StaleAfter)
	jobs.Post("/reap", jobHandler.Reap) // antes de /:id para no capturarlo como id
	jobs.Get("/:id", jobHandler.GetByID)
	jobs.Post("/:id/retry", jobHandler.Retry)

	// Comparación de facturas (síncrona)
	invoices := api.Group("/invoices")
	comparisonHandler := NewComparisonHandler(deps.CompareUC, deps.Dispatcher, deps.Reports, deps.Prices)
	invoices.Post("/compare", comparisonHandler.Compare)
	invoices.Post("/compare/document", comparisonHandler.CompareDocument)

	// Catálogo
	products := api.Group("/products")
	products.Get("/:key/prices", comparisonHandler.PriceHistory)
}

// urlDecode decodifica un segmento de ruta ("tomate%7Ckg" → "tomate|kg").
func urlDecode(segment string) (string, error) {
	return url.PathUnescape(segment)
}
