package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/dualgen/api/internal/client"
	"github.com/dualgen/api/internal/config"
	"github.com/dualgen/api/internal/handler"
	"github.com/dualgen/api/internal/prompt"
	"github.com/dualgen/api/internal/registry"
	"github.com/dualgen/api/internal/results"
	"github.com/dualgen/api/internal/service"
	"github.com/dualgen/api/internal/worker"
	ws "github.com/dualgen/api/internal/websocket"
	"github.com/dualgen/api/pkg/response"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	endpoints := cfg.ModelEndpoints()
	if len(endpoints) == 0 {
		log.Fatal("No rendering endpoints configured")
	}

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	llmClient := client.NewLLMClient(&cfg.LLM)
	renderClient := client.NewRenderClient(&cfg.Generation, cfg.Output.Dir)
	promptGen := prompt.NewGenerator(llmClient)
	resultsLog := results.NewLogger(filepath.Join(cfg.Output.Dir, cfg.Output.ResultsLog))

	// Initialize the job core: registry, run executor, job runner, scheduler
	reg := registry.New(endpoints)
	executor := worker.NewRunExecutor(reg, renderClient, resultsLog, endpoints, hub)
	runner := worker.NewJobRunner(reg, executor, promptGen, endpoints, hub)
	scheduler := worker.NewScheduler(reg, runner, cfg.Queue.Size, hub)

	// Initialize services and handlers
	generateService := service.NewGenerateService(reg, scheduler, cfg.Generation)
	generateHandler := handler.NewGenerateHandler(generateService, validate)
	galleryHandler := handler.NewGalleryHandler(endpoints, cfg.Output.Dir)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    16 * 1024 * 1024, // 16MB, fits a 10MB image upload
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"llm":       llmClient.IsConfigured(),
				"endpoints": len(endpoints),
			},
		})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/generate", generateHandler.Generate)
	api.Get("/status/:jobId", generateHandler.Status)
	api.Get("/jobs", generateHandler.Jobs)
	api.Get("/queue", generateHandler.Queue)
	api.Delete("/queue/:jobId", generateHandler.Cancel)
	api.Post("/queue/clear", generateHandler.Clear)
	api.Get("/endpoints", galleryHandler.Endpoints)
	api.Get("/gallery", galleryHandler.Gallery)

	// Downloaded images
	app.Static("/images", cfg.Output.Dir)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start the queue worker
	workerCtx, stopWorker := context.WithCancel(context.Background())
	go scheduler.Run(workerCtx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		stopWorker()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := cfg.Server.Host + ":" + cfg.Server.Port
	log.Printf("Server starting on %s (%d rendering endpoints)", addr, len(endpoints))
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(response.ErrorResponse{
		Error: response.ErrorDetail{
			Code:    response.CodeServiceError,
			Message: message,
		},
	})
}
