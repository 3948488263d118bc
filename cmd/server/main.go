// backend-go/cmd/server/main.go
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
	"github.com/ukryl/stock-projection-app/backend-go/internal/api"
	"github.com/ukryl/stock-projection-app/backend-go/internal/cache"
	"github.com/ukryl/stock-projection-app/backend-go/internal/config"
	"github.com/ukryl/stock-projection-app/backend-go/internal/pipeline"
	"github.com/ukryl/stock-projection-app/backend-go/internal/repository/postgres"
	"github.com/ukryl/stock-projection-app/backend-go/internal/service"
	"github.com/ukryl/stock-projection-app/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	projectionCache, err := cache.NewProjectionCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("cache unavailable, falling back to direct reads")
		projectionCache = cache.NewNoopProjectionCache()
	}

	repo := postgres.NewProjectionRepository(db)
	runner := pipeline.NewRunner(cfg.Projection.WorkerCount)
	projectionService := service.NewProjectionService(repo, projectionCache, runner)

	router := api.NewRouter(&api.Services{ProjectionService: projectionService}, cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
