package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/PratikDhanave/game-event-tracking/internal/auth"
	"github.com/PratikDhanave/game-event-tracking/internal/config"
	"github.com/PratikDhanave/game-event-tracking/internal/handlers"
	"github.com/PratikDhanave/game-event-tracking/internal/logging"
	"github.com/PratikDhanave/game-event-tracking/internal/metrics"
)

// Pinger is a backend the readiness probe can check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are everything the router needs. Metrics and Checks are optional.
type Dependencies struct {
	Config   config.Config
	Pipeline handlers.Acceptor
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Checks   map[string]Pinger
}

// NewRouter wires public endpoints and authenticated APIs.
// Public: /health, /ready, /metrics
// Authenticated when an API key is configured: /v1/events/*
func NewRouter(deps Dependencies) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	if deps.Logger != nil {
		r.Use(logging.RequestLogger(deps.Logger))
	}

	// Liveness: confirms the process is running.
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness: confirms external dedup/sink backends are reachable.
	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		for name, check := range deps.Checks {
			if err := check.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":  "not_ready",
					"backend": name,
					"error":   err.Error(),
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	// Without a key the ingestion group is open (local development).
	events := r.Group("/")
	if deps.Config.AuthEnabled() {
		events.Use(auth.BearerMiddleware(deps.Config.APIKey))
	}
	handlers.RegisterEventRoutes(events, deps.Pipeline)

	return r
}
