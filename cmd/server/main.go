package main

import (
	"context"
	"log"

	"siteguard/internal/api"
	"siteguard/internal/config"
	"siteguard/internal/database"
	"siteguard/internal/engine"
	"siteguard/internal/migrate"
	"siteguard/internal/rollover"
	"siteguard/internal/scheduler"
	"siteguard/internal/services"
	"siteguard/internal/stats"
	"siteguard/internal/storage"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("config/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	if err := database.InitDB(&cfg.Database); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	log.Println("Database initialized successfully")

	store, err := storage.NewSQLiteGateway(database.GetDB())
	if err != nil {
		log.Fatalf("Failed to initialize storage gateway: %v", err)
	}

	// One-time legacy schema migration; a no-op when nothing is there
	if err := migrate.Run(context.Background(), store); err != nil {
		log.Printf("Legacy migration failed: %v", err)
	}

	// Initialize services
	rolloverService := rollover.NewService(store, nil)
	recorder := stats.NewRecorder(store, nil)
	badgeService := services.NewBadgeService()
	notifyService := services.NewNotifyService(&cfg.Notifications)
	authService := services.NewAuthService(cfg.Auth.JWTSecret)

	// The browser shim applies redirects from decision responses, so no
	// server-side tab controller is wired.
	eng := engine.New(engine.Options{
		Store:        store,
		Rollover:     rolloverService,
		Recorder:     recorder,
		Badge:        badgeService,
		Notifier:     notifyService,
		QuotePageURL: cfg.Blocker.QuotePageURL,
		TickInterval: cfg.Blocker.TickDuration(),
		Debounce:     cfg.Blocker.DebounceDuration(),
		Thresholds:   cfg.Blocker.Thresholds(),
	})
	defer eng.StopTiming()

	// Initialize scheduler for history retention
	sched := scheduler.NewScheduler(recorder)
	if err := sched.Start(cfg.History.PruneSchedule, cfg.History.RetentionDays); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Setup Gin
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	// Enable CORS for the extension shim
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Setup API routes
	handler := api.NewHandler(store, eng, recorder, badgeService, authService)
	api.SetupRoutes(r, handler)

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := r.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
