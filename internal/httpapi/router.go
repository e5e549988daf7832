// Package httpapi exposes the adaptive engine over HTTP.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/abhisek/quizadapt/internal/logger"
	"github.com/abhisek/quizadapt/internal/metrics"
)

// Options configure the router. Engine is required.
type Options struct {
	Engine  Engine
	Metrics *metrics.Metrics
	Logger  *logger.Logger

	// Health reports readiness, typically a database ping.
	Health func(context.Context) error

	ServiceName    string
	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(opts Options) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	h := &handler{engine: opts.Engine, health: opts.Health, log: log}

	r := gin.New()
	r.Use(RequestID(), Recovery(log), AccessLog(log))
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware())
	}
	r.Use(otelgin.Middleware(serviceName(opts.ServiceName)))
	r.Use(corsMiddleware(opts.CORSOrigins))

	r.GET("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics.Handler()))
	}

	v1 := r.Group("/v1", RateLimit(opts.RateLimitRPS, opts.RateLimitBurst), Timeout(opts.RequestTimeout), RequireLearner())
	{
		v1.POST("/sessions", h.startSession)
		v1.GET("/sessions/:id/next", h.nextInSession)
		v1.POST("/sessions/:id/end", h.endSession)
		v1.GET("/topics/:id/next", h.nextForTopic)
		v1.POST("/responses", h.submitResponse)
		v1.GET("/learners/me", h.profile)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "not_found", nil)
	})
	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Content-Type", HeaderLearnerID, HeaderRequestID},
		ExposeHeaders: []string{HeaderRequestID},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cors.New(cfg)
}

func serviceName(s string) string {
	if s == "" {
		return "quizadapt"
	}
	return s
}
