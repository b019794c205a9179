package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/handler"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Health      *handler.HealthHandler
	Practice    *handler.PracticeSessionHandler
	Sample      *handler.SampleSessionHandler
	Explanation *handler.ExplanationHandler
	WS          *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	auth middleware.TokenValidator,
	limiter middleware.Consumer,
	handlers *Handlers,
	cfg *config.Config,
	log zerolog.Logger,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", middleware.HeaderClientID}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.Brotli(middleware.BrotliConfig{
		MinLength: middleware.DefaultBrotliConfig.MinLength,
		SkipPaths: []string{"/metrics"},
	}))

	probes := router.Group("", middleware.CacheControl(middleware.CacheNoCache))
	probes.GET("/health", handlers.Health.Live)
	probes.GET("/ready", handlers.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ─── Practice API (per-IP throttled) ───────────────────────────────
	api := router.Group("/api/v1/practice")
	api.Use(
		middleware.CacheControl(middleware.CachePrivateNoStore),
		middleware.RateLimitByIP(limiter, cfg.APIRateLimit, cfg.APIRateWindow, log),
	)
	{
		authed := api.Group("")
		authed.Use(middleware.RequireJWT(auth))
		{
			authed.POST("/exams/:slug/sessions", handlers.Practice.StartSession)
			authed.GET("/sessions/:id", handlers.Practice.GetSession)
			authed.GET("/sessions/:id/view", handlers.Practice.GetSessionView)
			authed.PATCH("/sessions/:id", handlers.Practice.ApplyOperation)
			authed.POST("/explanations", handlers.Explanation.RequestExplanation)
		}

		sample := api.Group("/sample")
		sample.Use(middleware.OptionalJWT(auth), middleware.RequireClientID())
		{
			sample.GET("/:slug", handlers.Sample.LoadSample)
			sample.PATCH("/:slug", handlers.Sample.ApplySample)
			sample.DELETE("/:slug", handlers.Sample.ResetSample)
		}
	}

	// ─── WebSocket (token in query) ────────────────────────────────────
	wsGroup := router.Group("/ws/v1/practice")
	wsGroup.Use(middleware.RequireWSAuth(auth))
	{
		wsGroup.GET("/sessions/:id/stream", handlers.WS.SessionStream)
	}

	return router
}
