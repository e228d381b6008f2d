package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/precios-api/internal/application/comparison"
	"github.com/jhoicas/precios-api/internal/application/ingest"
	"github.com/jhoicas/precios-api/internal/application/ports"
	"github.com/jhoicas/precios-api/internal/domain/catalog"
	"github.com/jhoicas/precios-api/internal/domain/pricing"
	infraai "github.com/jhoicas/precios-api/internal/infrastructure/ai"
	"github.com/jhoicas/precios-api/internal/infrastructure/extraction"
	infrapdf "github.com/jhoicas/precios-api/internal/infrastructure/pdf"
	"github.com/jhoicas/precios-api/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/precios-api/internal/interfaces/http"
	"github.com/jhoicas/precios-api/pkg/config"
	"github.com/jhoicas/precios-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("esquema de base de datos")
	}

	priceRepo := postgres.NewPriceRecordRepository(pool)
	jobRepo := postgres.NewJobRepository(pool)

	// Inferencia: un solo adaptador sirve visión (extracción de páginas) y
	// sugerencias canónicas. Sin API key la cadena sigue funcionando con
	// tabla y texto.
	var visionModel ports.VisionModel
	var llm ports.LLMService
	if cfg.AI.GeminiAPIKey != "" {
		gemini := infraai.NewGeminiService(cfg.AI, log)
		visionModel = gemini
		llm = gemini
	} else {
		log.Warn().Msg("GEMINI_API_KEY ausente: sin estrategia de visión ni sugerencias canónicas")
	}

	standardizer := catalog.NewStandardizer(nil)
	validator := pricing.NewValidator(nil)

	dispatcher := ingest.NewDispatcher([]ports.ExtractionStrategy{
		extraction.NewTableExtractor(log),
		extraction.NewTextExtractor(log),
		extraction.NewVisionExtractor(visionModel, cfg.Pipeline, log),
	}, cfg.Pipeline.MinCompleteness, log)

	pipeline := ingest.NewPipeline(dispatcher, standardizer, validator, priceRepo, llm, cfg.Pipeline, log)

	workers := ingest.NewWorkerPool(jobRepo, pipeline, cfg.Pipeline, log)
	workers.Start(ctx)

	compareUC := comparison.NewCompareUseCase(
		standardizer, priceRepo,
		decimal.NewFromFloat(cfg.Pipeline.ConsistencyTolerance), log,
	)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    25 * 1024 * 1024, // por encima del tope propio de subida
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Precios API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Jobs:       jobRepo,
		Prices:     priceRepo,
		CompareUC:  compareUC,
		Dispatcher: dispatcher,
		Reports:    infrapdf.NewSavingsReportGenerator(),
		StaleAfter: cfg.Pipeline.StaleAfter,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Los workers terminan el documento en curso antes de salir.
	workers.Wait()
	log.Info().Msg("aplicación detenida")
}
