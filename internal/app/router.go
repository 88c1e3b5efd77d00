package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"faregate/internal/handler"
	"faregate/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	VerifyHandler *handler.VerifyHandler
	RedisClient   *redis.Client
	NewRelicApp   *newrelic.Application
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Single action-dispatched verification endpoint, kept shape-compatible
	// with the conductor client.
	router.POST("/verify", deps.VerifyHandler.Post)
	router.GET("/verify", deps.VerifyHandler.Get)
	router.PUT("/verify", deps.VerifyHandler.Put)

	return router
}
