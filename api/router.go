package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/renderbridge/api/handler"
	"github.com/use-agent/renderbridge/api/middleware"
	"github.com/use-agent/renderbridge/cache"
	"github.com/use-agent/renderbridge/config"
	"github.com/use-agent/renderbridge/fetch"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health stays outside auth so monitoring probes always work.
func NewRouter(r handler.Renderer, f *fetch.Fetcher, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(gin.Logger())

	v1 := e.Group("/api/v1")

	v1.GET("/health", handler.Health(r, startTime))

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/render", handler.Render(r, f, cc))

	return e
}
