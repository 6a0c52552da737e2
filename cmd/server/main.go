package main

import (
	"context"
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
	log "github.com/sirupsen/logrus"

	"github.com/adreel/api/internal/client"
	"github.com/adreel/api/internal/config"
	"github.com/adreel/api/internal/handler"
	"github.com/adreel/api/internal/middleware"
	"github.com/adreel/api/internal/service"
	"github.com/adreel/api/internal/store"
	"github.com/adreel/api/internal/style"
	ws "github.com/adreel/api/internal/websocket"
	"github.com/adreel/api/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	setupLogging(cfg)

	ctx := context.Background()

	catalog, err := style.Load(cfg.Styles.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load style catalog: %v", err)
	}

	// Redis backs the queue, the locker and rate limiting for every backend
	// except memory
	var redisClient *redis.Client
	if cfg.Store.Backend != config.StoreMemory {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("Redis not available")
		}
	}

	jobStore, locker, err := openStore(cfg, redisClient)
	if err != nil {
		log.Fatalf("Failed to open job store: %v", err)
	}

	var storage client.StorageClient
	var memoryStorage *client.MemoryStorage
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Fatalf("Failed to initialize R2 client: %v", err)
		}
		storage = r2Client
	} else {
		log.Info("R2 storage not configured, using in-memory storage")
		memoryStorage = client.NewMemoryStorage("http://localhost:" + cfg.Server.Port + "/media")
		storage = memoryStorage
	}

	var videoModel client.VideoModel
	if cfg.Gemini.APIKey != "" {
		veo, err := client.NewVeoClient(ctx, &cfg.Gemini)
		if err != nil {
			log.WithError(err).Warn("Veo client not initialized, scene generation disabled")
		} else {
			defer veo.Close()
			videoModel = veo
		}
	} else {
		log.Info("Gemini API key not set, scene generation disabled")
	}
	groqClient := client.NewGroqClient(&cfg.Groq)

	validate := validator.New()

	hub := ws.NewHub()
	go hub.Run()

	generationService := service.NewGenerationService(
		jobStore, locker, storage,
		service.NewModelSceneGenerator(videoModel, storage),
		catalog, hub,
		service.GenerationOptions{
			LockTTL:      cfg.Generation.LockTTL,
			SceneTimeout: cfg.Generation.SceneTimeout,
		},
	)
	generationWorker := worker.NewGenerationWorker(generationService)
	mux := asynq.NewServeMux()
	generationWorker.Register(mux)

	var queue service.TaskEnqueuer
	var workerServer *asynq.Server
	if redisClient != nil {
		asynqClient := asynq.NewClient(redisOpt(cfg))
		defer asynqClient.Close()
		queue = asynqClient
		workerServer = newWorkerServer(cfg)
	} else {
		log.Info("Running generation tasks in-process")
		queue = worker.NewInlineQueue(mux, cfg.Generation.LockTTL)
	}

	videoService := service.NewVideoService(jobStore, storage, catalog, queue, hub, cfg.Generation.SignedURLTTL, cfg.Generation.RenderMaxBytes)
	compositionService := service.NewCompositionService(jobStore, storage, catalog, hub, cfg.Generation.SignedURLTTL)
	captionService := service.NewCaptionService(groqClient)
	uploadService := service.NewUploadService(storage, cfg.Generation.SignedURLTTL)

	videoHandler := handler.NewVideoHandler(videoService, compositionService, captionService, validate)
	uploadHandler := handler.NewUploadHandler(uploadService)
	stylesHandler := handler.NewStylesHandler(catalog)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    20 * 1024 * 1024,
	})

	app.Use(recover.New())
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams}\n"
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"store":  cfg.Store.Backend,
				"veo":    videoModel != nil,
				"groq":   groqClient.IsConfigured(),
				"r2":     memoryStorage == nil,
				"queue":  redisClient != nil,
				"styles": len(catalog.Styles()),
			},
		})
	})

	if memoryStorage != nil {
		app.Get("/media/*", func(c *fiber.Ctx) error {
			data, contentType, err := memoryStorage.Download(c.UserContext(), c.Params("*"))
			if err != nil {
				return fiber.ErrNotFound
			}
			c.Set(fiber.HeaderContentType, contentType)
			return c.Send(data)
		})
	}

	api := app.Group("/api", authMiddleware.Authenticate())

	api.Get("/styles", stylesHandler.List)

	upload := api.Group("/upload", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour))
	upload.Post("/image", uploadHandler.Image)
	upload.Delete("/image/*", uploadHandler.DeleteImage)

	videos := api.Group("/videos")
	videos.Post("/", videoHandler.Create)
	videos.Get("/", videoHandler.List)
	videos.Get("/:id", videoHandler.Get)
	videos.Post("/:id/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), videoHandler.Generate)
	videos.Patch("/:id/overlay", videoHandler.UpdateOverlay)
	videos.Post("/:id/compose", rateLimiter.ComposeLimit(cfg.RateLimit.ComposePerHour), videoHandler.Compose)
	videos.Get("/:id/timeline", videoHandler.Timeline)
	videos.Get("/:id/timeline/frames/:frame", videoHandler.Frame)
	videos.Post("/:id/captions/suggest", rateLimiter.CaptionsLimit(cfg.RateLimit.CaptionsPerMin), videoHandler.SuggestCaptions)
	videos.Post("/:id/rendered", videoHandler.AttachRendered)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/videos/:id", authMiddleware.Authenticate(), func(c *fiber.Ctx) error {
		if _, err := videoService.GetJob(c.UserContext(), middleware.GetUserID(c), c.Params("id")); err != nil {
			return fiber.ErrNotFound
		}
		return c.Next()
	}, websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("id"))
	}))

	if workerServer != nil {
		go func() {
			if err := workerServer.Run(mux); err != nil {
				log.WithError(err).Error("Asynq worker error")
			}
		}()
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server...")
		if workerServer != nil {
			workerServer.Shutdown()
		}
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Error("Server shutdown error")
		}
	}()

	addr := ":" + cfg.Server.Port
	log.WithFields(log.Fields{"addr": addr, "store": cfg.Store.Backend}).Info("Server starting")
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Server.Env == "production" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

func openStore(cfg *config.Config, redisClient *redis.Client) (store.JobStore, store.Locker, error) {
	switch cfg.Store.Backend {
	case config.StorePostgres:
		db, err := store.OpenPostgres(cfg.Store.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		gormStore, err := store.NewGormStore(db)
		if err != nil {
			return nil, nil, err
		}
		return gormStore, store.NewRedisLocker(redisClient), nil
	case config.StoreMemory:
		log.Warn("Using in-memory job store, jobs are lost on restart")
		return store.NewMemoryStore(), store.NewMemoryLocker(), nil
	default:
		return store.NewRedisStore(redisClient, cfg.Store.JobTTL), store.NewRedisLocker(redisClient), nil
	}
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

func newWorkerServer(cfg *config.Config) *asynq.Server {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	return asynq.NewServer(
		redisOpt(cfg),
		asynq.Config{
			Concurrency: cfg.Generation.Concurrency,
			Queues: map[string]int{
				service.QueueGeneration: 1,
			},
			LogLevel: asynqLogLevel,
			Logger:   log.StandardLogger(),
		},
	)
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
