// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ukryl/stock-projection-app/backend-go/internal/api/handlers"
	"github.com/ukryl/stock-projection-app/backend-go/internal/api/middleware"
	"github.com/ukryl/stock-projection-app/backend-go/internal/config"
	"github.com/ukryl/stock-projection-app/backend-go/internal/service"
)

type Services struct {
	ProjectionService *service.ProjectionService
}

func NewRouter(services *Services, cfg *config.Config) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.Server.AllowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(cfg.Server.AllowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ProjectionService != nil {
		projectionHandler := handlers.NewProjectionHandler(services.ProjectionService, cfg.Projection)
		projectionGroup := apiGroup.Group("/projection")
		{
			projectionGroup.GET("/flows", projectionHandler.GetFlows)
			projectionGroup.GET("/recommendations", projectionHandler.GetRecommendations)
			projectionGroup.GET("/kpis", projectionHandler.GetKPIs)
			projectionGroup.GET("/groups", projectionHandler.GetGroups)
			projectionGroup.GET("/runs/latest", projectionHandler.GetLatestRun)
			projectionGroup.POST("/run", projectionHandler.Run)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
