package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/catcha-app/geotag/internal/api"
	"github.com/catcha-app/geotag/internal/auth"
	"github.com/catcha-app/geotag/internal/catchapi"
	"github.com/catcha-app/geotag/internal/config"
	"github.com/catcha-app/geotag/internal/csvexport"
	"github.com/catcha-app/geotag/internal/geotag"
	"github.com/catcha-app/geotag/internal/livetrack"
	"github.com/catcha-app/geotag/internal/platform"
	"github.com/catcha-app/geotag/internal/state"
	"github.com/catcha-app/geotag/internal/storage"
	"github.com/catcha-app/geotag/internal/transport"
	"github.com/catcha-app/geotag/pkg/logger"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize logger
	appLogger := logger.NewLogger(os.Getenv("ENV"))
	appLogger.Info("Starting geotag daemon...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		appLogger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize storage
	store, err := openStore(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to open storage", "error", err, "driver", cfg.Storage.Driver)
		os.Exit(1)
	}
	defer store.Close()

	facade := state.NewFacade(store, appLogger)
	tokens := auth.NewTokenStore(store, cfg.API.Token, appLogger)

	// Remote clients
	apiClient := transport.NewClient(cfg.API.BaseURL, tokens, nil, cfg.API.LiveTracksForceAPI, appLogger)
	liveTracks := livetrack.NewClient(apiClient, facade, appLogger)
	catches := catchapi.NewClient(apiClient)

	// Location provider
	provider := platform.NewGPSDProvider(cfg.Location.GPSDAddr, appLogger)

	// Core geo service
	geoService := geotag.NewService(provider, facade, appLogger)

	// CSV export recorder consumes watch samples
	exporter := csvexport.NewService(facade, csvexport.NewOSFileSink(appLogger),
		cfg.Export.DocumentDir, cfg.Export.CacheDir, appLogger)
	geoService.SetRecorder(exporter)
	geoService.SetStreamer(liveTracks)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Resume an interrupted live track session
	if handle := liveTracks.GetSavedLiveTrack(ctx); handle != nil {
		appLogger.Info("Resuming live track session", "publicId", handle.PublicID)
		geoService.SetStreaming(true)
	}

	if cfg.Location.AutoWatch {
		geoService.SetRecording(true)
		if geoService.StartLocationWatch(ctx, nil) {
			appLogger.Info("Auto watch started")
		} else {
			appLogger.Warn("Auto watch could not start", "gpsd", cfg.Location.GPSDAddr)
		}
	}

	// Setup Gin router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add logging middleware
	router.Use(func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		appLogger.Info("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", duration,
			"ip", c.ClientIP(),
		)
	})

	// Setup routes
	apiHandler := api.NewHandler(geoService, exporter, liveTracks, catches, tokens,
		cfg.API.BaseURL, cfg.API.WebCreateURL, appLogger)
	api.SetupRoutes(router, apiHandler)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		appLogger.Info("Server starting", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down...")

	// Stop tracking before the process exits so the stored state is consistent
	geoService.StopLocationWatch()
	geoService.StopWayfareTracking(context.Background())

	cancel()

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", "error", err)
	}

	appLogger.Info("Server stopped")
}

func openStore(cfg *config.Config, appLogger logger.Logger) (storage.Store, error) {
	switch cfg.Storage.Driver {
	case "redis":
		appLogger.Info("Using Redis storage", "address", cfg.RedisAddr())
		return storage.NewRedisStore(storage.RedisOptions{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	case "memory":
		appLogger.Info("Using in-memory storage")
		return storage.NewMemoryStore(), nil
	default:
		appLogger.Info("Using SQLite storage", "path", cfg.Storage.Path)
		return storage.NewSQLiteStore(cfg.Storage.Path)
	}
}
