package api

import (
	"context"
	"net/http"
	"time"

	checkHandler "alercheck-api/internal/api/handlers/check"
	"alercheck-api/internal/api/handlers/health"
	"alercheck-api/internal/api/middleware"
	"alercheck-api/internal/core/ai/cache"
	checkService "alercheck-api/internal/core/check"
	"alercheck-api/internal/infrastructure/config"
	"alercheck-api/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Outer bound for one check; the Ollama client has its own timeout below
	// this.
	timeoutDuration = 180 * time.Second
	// 25MB, photos arrive base64-encoded in the JSON body.
	maxBodySize = 25 << 20
)

// SetupRouter builds the gin engine with all middleware and routes.
func SetupRouter(cfg *config.Config, store cache.Store) (*gin.Engine, error) {
	common.LogInfo("starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New())

	// The mobile app talks to this API from whatever origin Expo serves it on.
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.Use(middleware.BodySizeLimit(maxBodySize))

	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}
	router.Use(middleware.Deduplication(cfg))

	common.LogInfo("initializing services",
		zap.Bool("cache_enabled", cfg.Cache.Enabled),
		zap.String("ollama_base_url", cfg.Ollama.BaseURL),
		zap.String("model", cfg.Ollama.Model),
		zap.String("vision_model", cfg.Ollama.VisionModel),
	)

	service := checkService.NewService(cfg, store)

	router.Use(requestContext(cfg, store, timeoutDuration))

	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	api := router.Group("/api")
	{
		handler := checkHandler.NewHandler(service)
		api.POST("/allergen-check", handler.HandleAllergenCheck)
	}

	common.LogInfo("router setup completed",
		zap.String("version", cfg.App.Version),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}

// requestContext bounds each request with a deadline and exposes the config
// and cache counters to the health handlers. The 504 is only written when the
// handler has not already responded on the deadline-exceeded path.
func requestContext(cfg *config.Config, store cache.Store, timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		if stats, ok := store.(health.CacheStats); ok {
			c.Set("cache_stats", stats)
		}

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeout),
			)
			if !c.Writer.Written() {
				c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
					"error": "request timeout",
					"code":  "REQUEST_TIMEOUT",
				})
			}
		}
	}
}
