package app

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"visionboard-backend/internal/config"
	"visionboard-backend/internal/db"
	"visionboard-backend/internal/handlers"
	"visionboard-backend/internal/models"
	"visionboard-backend/internal/services"
	"visionboard-backend/internal/storage"
	"visionboard-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func Run() {
	// Load Env
	if err := utils.LoadEnv(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg := config.Load()
	slogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	// Init DB
	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.CloseDB()

	if err := db.RunMigrations(context.Background(), cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Object store
	store, err := storage.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to init object store: %v", err)
	}

	// Services
	userService := services.NewUserService(db.Pool)
	boardService := services.NewBoardService(db.Pool, store, slogger)
	photoService := services.NewPhotoService(db.Pool, store, slogger)
	montageService := services.NewMontageService(db.Pool)

	// Fiber App
	app := fiber.New(fiber.Config{
		BodyLimit: (cfg.MaxVideoMB + 1) * 1024 * 1024,
	})

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	// Routes
	api := app.Group("/api")

	// Public Routes
	api.Post("/register", func(c *fiber.Ctx) error {
		var req models.RegisterRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		user, err := userService.Register(c.Context(), req)
		if err != nil {
			if errors.Is(err, services.ErrUserExists) {
				return c.Status(400).JSON(fiber.Map{"error": err.Error()})
			}
			return c.Status(500).JSON(fiber.Map{"error": err.Error()})
		}
		return c.Status(201).JSON(user)
	})

	api.Post("/login", func(c *fiber.Ctx) error {
		var req models.LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request"})
		}
		res, err := userService.Login(c.Context(), req)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}
		return c.JSON(res)
	})

	// Protected Routes
	protected := api.Group("/")
	protected.Use(handlers.AuthMiddleware)

	// Boards
	protected.Get("/boards", handlers.GetBoardsHandler(boardService))
	protected.Post("/boards", handlers.CreateBoardHandler(boardService))
	protected.Get("/boards/:id", handlers.GetBoardHandler(boardService, photoService, montageService))
	protected.Patch("/boards/:id", handlers.UpdateBoardHandler(boardService))
	protected.Delete("/boards/:id", handlers.DeleteBoardHandler(boardService))
	protected.Put("/boards/:id/crystals", handlers.ReplaceCrystalsHandler(boardService))
	protected.Get("/boards/:id/montage-settings", handlers.GetMontageSettingsHandler(boardService, montageService))
	protected.Put("/boards/:id/montage-settings", handlers.UpsertMontageSettingsHandler(montageService))
	protected.Post("/boards/:id/montage-video", handlers.UploadMontageVideoHandler(boardService, store, cfg.MaxVideoMB))
	protected.Post("/boards/:id/montage-music", handlers.UploadMontageMusicHandler(boardService, store, cfg.MaxUploadMB))

	// Photos
	protected.Get("/photos", handlers.ListPhotosHandler(photoService))
	protected.Post("/photos/upload", handlers.UploadPhotoHandler(photoService, boardService, store, cfg.MaxUploadMB))
	protected.Post("/photos/reorder", handlers.ReorderPhotosHandler(photoService))
	protected.Post("/photos/bulk-delete", handlers.BulkDeletePhotosHandler(photoService))
	protected.Get("/photos/:id", handlers.GetPhotoHandler(photoService))
	protected.Patch("/photos/:id", handlers.UpdatePhotoHandler(photoService))
	protected.Delete("/photos/:id", handlers.DeletePhotoHandler(photoService))
	protected.Post("/photos/:id/crop", handlers.CropPhotoHandler(photoService, store, cfg.MaxUploadMB))

	// Crystal catalog and dashboard counters
	protected.Get("/crystals", handlers.ListCrystalsHandler(boardService))
	protected.Get("/stats", handlers.StatsHandler(boardService, photoService))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Start Server
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Panic(err)
		}
	}()

	// Graceful Shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c // Block until signal
	log.Println("Gracefully shutting down...")
	_ = app.Shutdown()
	log.Println("Server shutdown complete")
}
