package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kmoganti/stock-trading-system-sub001/config"
	"github.com/kmoganti/stock-trading-system-sub001/controllers"
	"github.com/kmoganti/stock-trading-system-sub001/middleware"
	"github.com/kmoganti/stock-trading-system-sub001/models"
	"github.com/kmoganti/stock-trading-system-sub001/routes"
	"github.com/kmoganti/stock-trading-system-sub001/scheduler"
	"github.com/kmoganti/stock-trading-system-sub001/services/analysis"
	"github.com/kmoganti/stock-trading-system-sub001/services/archive"
	"github.com/kmoganti/stock-trading-system-sub001/services/localstore"
	"github.com/kmoganti/stock-trading-system-sub001/services/marketdata"
	"github.com/kmoganti/stock-trading-system-sub001/services/notify"
	"github.com/kmoganti/stock-trading-system-sub001/services/scanner"
	"github.com/kmoganti/stock-trading-system-sub001/services/sigstore"
	"github.com/kmoganti/stock-trading-system-sub001/services/stream"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func main() {
	log.Println("==============================================")
	log.Println("  Stock Scan Scheduler - Starting...")
	log.Println("==============================================")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Config load failed: %v", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tz, err := time.LoadLocation(cfg.MarketTimezone)
	if err != nil {
		log.Printf("Warning: unknown timezone %q, falling back to UTC: %v", cfg.MarketTimezone, err)
		tz = time.UTC
	}

	// Storage: Postgres when configured, SQLite file otherwise.
	var (
		db       *gorm.DB
		store    scanner.SignalStore
		signals  controllers.SignalReader
		closers  []io.Closer
		archives archive.Fanout
	)
	if cfg.DBHost != "" {
		db, err = config.InitDB(cfg)
		if err != nil {
			log.Fatalf("Database connection failed: %v", err)
		}
		if err := models.MigrateScannerModels(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		if err := models.MigrateAdminModels(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		if err := models.SeedDefaultAdminUser(db, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Printf("Warning: could not seed admin user: %v", err)
		}
		gormStore := sigstore.NewStore(db)
		store = gormStore
		signals = gormStore
		archives = append(archives, gormStore)
	} else {
		local, err := localstore.Open(cfg.LocalStorePath)
		if err != nil {
			log.Fatalf("Local store open failed: %v", err)
		}
		log.Printf("No DB_HOST configured, persisting to %s", cfg.LocalStorePath)
		store = local
		signals = local
		archives = append(archives, local)
		closers = append(closers, local)
	}

	if cfg.MongoURI != "" {
		mongoArchive, err := archive.NewMongoArchive(cfg.MongoURI)
		if err != nil {
			log.Printf("Warning: Mongo archive unavailable: %v", err)
		} else {
			archives = append(archives, mongoArchive)
			closers = append(closers, mongoArchive)
		}
	}

	// Notification fan-out: websocket dashboard clients plus Telegram.
	hub := stream.NewHub()
	notifier := notify.NewMultiNotifier(
		hub,
		notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID),
	)

	// Scan engine.
	fetcher := marketdata.NewClient(cfg.BrokerBaseURL, cfg.BrokerAccessToken)
	analyzer := analysis.NewStrategyAnalyzer()
	cache := scanner.NewSymbolDataCache(cfg.CacheTTL)
	gate := scanner.NewConcurrencyGate(cfg.ScanConcurrency)
	registry := scanner.NewCategoryRegistry(config.LoadCategoryProfiles(cfg.CategoriesFile))
	processor := scanner.NewSymbolProcessor(cache, gate, fetcher, analyzer, cfg.AnalysisTimeout)
	stats := scanner.NewStatsTracker()

	coordinator := scanner.NewUnifiedScanCoordinator(registry, processor, store, notifier, stats, cfg.ScanTimeout)
	coordinator.Ready = fetcher.Ready
	coordinator.Archiver = archives

	// Scheduler.
	schedules := scheduler.NewScheduleRegistry(tz, coordinator)
	if err := scheduler.RegisterDefaultJobs(schedules); err != nil {
		log.Fatalf("Job registration failed: %v", err)
	}
	schedules.Start()

	// HTTP layer.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(requestLogger())

	limiter := middleware.NewLoginRateLimiter(5, 15*time.Minute, 30*time.Minute)
	ctrl := routes.Controllers{
		Scanner: controllers.NewScannerController(coordinator, cache, stats, registry, schedules, hub),
		Signals: controllers.NewSignalController(signals),
	}
	if db != nil && cfg.JWTSecret != "" {
		ctrl.Auth = controllers.NewAuthController(db, cfg.JWTSecret, limiter)
	} else {
		log.Println("Warning: auth disabled (requires Postgres and JWT_SECRET)")
	}
	routes.SetupRoutes(router, ctrl, cfg.JWTSecret, limiter)

	server := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		log.Printf("Server listening on 0.0.0.0:%s", cfg.Port)
		log.Println("==============================================")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	gracefulShutdown(server, schedules, db, closers)
}

// corsMiddleware returns a CORS middleware handler.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" {
			origin = "*"
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Requested-With")
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// requestLogger returns a request logging middleware.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if path == "/health" {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)

		if c.Writer.Status() >= 400 || duration > 1*time.Second {
			log.Printf("%s %s %d %v", c.Request.Method, path, c.Writer.Status(), duration)
		}
	}
}

// gracefulShutdown waits for SIGINT/SIGTERM, stops the scheduler, drains
// the HTTP server, and closes storage.
func gracefulShutdown(server *http.Server, schedules *scheduler.ScheduleRegistry, db *gorm.DB, closers []io.Closer) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("Received signal %v, shutting down gracefully...", sig)

	schedules.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	for _, closer := range closers {
		if err := closer.Close(); err != nil {
			log.Printf("Warning: close failed: %v", err)
		}
	}
	if db != nil {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
			log.Println("Database connection closed")
		}
	}

	log.Println("Server shutdown completed")
}
