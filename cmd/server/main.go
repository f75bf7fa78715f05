package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/andresuchdata/salesbot/internal/api"
	"github.com/andresuchdata/salesbot/internal/cache"
	"github.com/andresuchdata/salesbot/internal/config"
	"github.com/andresuchdata/salesbot/internal/history"
	"github.com/andresuchdata/salesbot/internal/service"
	"github.com/andresuchdata/salesbot/internal/storage"
	"github.com/andresuchdata/salesbot/pkg/logger"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("warning: could not load .env file: %v", err)
	}

	cfg := config.Load()
	logger.Setup(cfg.Logging.Level, cfg.Logging.Path)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	var store history.Store
	if cfg.Database.URL != "" {
		pg, err := history.NewPostgresStore(cfg.Database.URL)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open history database")
		}
		defer pg.Close()
		store = pg
	} else {
		store = history.NewCSVStore(cfg.Data.HistoryPath)
	}

	dashCache, err := cache.NewDashboardCache(cfg.Cache)
	if err != nil {
		logger.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		dashCache = cache.NewNoopCache()
	}

	var objStore storage.ObjectStorage
	if cfg.Storage.Endpoint != "" {
		objStore, err = storage.NewMinioClient(cfg.Storage)
		if err != nil {
			logger.Warn().Err(err).Msg("Object storage unavailable, model listing disabled")
			objStore = nil
		}
	}

	dashService := service.NewDashboardService(cfg, store, dashCache, objStore)
	router := api.NewRouter(&api.Services{Dashboard: dashService}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exiting")
}
