package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/scoreaudio/api/internal/artifact"
	"github.com/scoreaudio/api/internal/client"
	"github.com/scoreaudio/api/internal/config"
	"github.com/scoreaudio/api/internal/handler"
	"github.com/scoreaudio/api/internal/middleware"
	"github.com/scoreaudio/api/internal/registry"
	"github.com/scoreaudio/api/internal/service"
	"github.com/scoreaudio/api/internal/worker"
	ws "github.com/scoreaudio/api/internal/websocket"
)

// @title          SCORE API
// @version        1.0
// @description    Backend API for SCORE — audio-to-sheet-music transcription.
// @host           localhost:8000
// @BasePath       /
// @schemes        http https
func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Job registry and artifact store, owned here and injected below
	jobRegistry := registry.New()
	store, err := artifact.New(cfg.Storage.UploadDir, cfg.Storage.OutputDir)
	if err != nil {
		log.Fatalf("Failed to initialize artifact store: %v", err)
	}

	// Stage collaborators: HTTP tools service, or the local fallback
	var runner client.StageRunner
	toolsClient := client.NewToolsClient(&cfg.Tools)
	if toolsClient.IsConfigured() {
		runner = toolsClient
	} else {
		log.Println("Info: tools service not configured, using local fallback runner")
		runner = client.NewLocalRunner()
	}

	// Initialize object storage mirror (optional - continues if not configured)
	var objectClient client.StorageClient
	if cfg.S3.AccessKeyID != "" && cfg.S3.SecretAccessKey != "" {
		oc, err := client.NewObjectClient(&cfg.S3)
		if err != nil {
			log.Printf("Warning: object storage not initialized: %v", err)
		} else {
			objectClient = oc
		}
	} else {
		log.Println("Info: object storage not configured, serving artifacts locally")
	}

	// Initialize services and handlers
	pipelineService := service.NewPipelineService(jobRegistry, store, asynqClient)
	uploadHandler := handler.NewUploadHandler(pipelineService, validate)
	jobHandler := handler.NewJobHandler(pipelineService, validate)

	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    200 * 1024 * 1024, // 200MB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
			"services": fiber.Map{
				"redis": redisClient.Ping(c.Context()).Err() == nil,
				"tools": toolsClient.IsConfigured(),
				"s3":    objectClient != nil,
			},
			"jobs": jobRegistry.Len(),
		})
	})

	// API routes
	api := app.Group("/api")
	api.Post("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), uploadHandler.Upload)
	api.Get("/status/:jobId", jobHandler.Status)
	api.Get("/result/:jobId", jobHandler.Result)
	api.Get("/download/:jobId/:artifactKind", jobHandler.Download)
	api.Post("/cancel/:jobId", jobHandler.Cancel)

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

	// Start Asynq worker server in-process; the registry lives in this
	// process, so the worker must too.
	go startWorkerServer(cfg, jobRegistry, store, runner, objectClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	jobRegistry *registry.Registry,
	store *artifact.Store,
	runner client.StageRunner,
	objectClient client.StorageClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				service.QueueTranscription: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	pipelineWorker := worker.NewPipelineWorker(jobRegistry, store, runner, objectClient, hub)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeTranscription, pipelineWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
