// Package router wires the gin engine and owns the HTTP server lifecycle.
package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/internal/interfaces/http/handlers"
	"github.com/graphbind/graphbind/internal/interfaces/http/middleware"
	"github.com/graphbind/graphbind/pkg/logger"
)

// Router owns the gin engine and the HTTP server.
type Router struct {
	engine              *gin.Engine
	config              *config.Config
	logger              logger.Logger
	metrics             *monitoring.Metrics
	registry            *prometheus.Registry
	webhookHandler      *handlers.WebhookHandler
	subscriptionHandler *handlers.SubscriptionHandler
	healthHandler       *handlers.HealthHandler
	server              *http.Server
}

// Dependencies collects everything the router needs.
type Dependencies struct {
	Config              *config.Config
	Logger              logger.Logger
	Metrics             *monitoring.Metrics
	MetricsRegistry     *prometheus.Registry
	WebhookHandler      *handlers.WebhookHandler
	SubscriptionHandler *handlers.SubscriptionHandler
	HealthHandler       *handlers.HealthHandler
}

// NewRouter creates the router.
func NewRouter(deps Dependencies) *Router {
	gin.SetMode(gin.ReleaseMode)
	return &Router{
		engine:              gin.New(),
		config:              deps.Config,
		logger:              deps.Logger,
		metrics:             deps.Metrics,
		registry:            deps.MetricsRegistry,
		webhookHandler:      deps.WebhookHandler,
		subscriptionHandler: deps.SubscriptionHandler,
		healthHandler:       deps.HealthHandler,
	}
}

// SetupRoutes installs middleware and routes.
func (r *Router) SetupRoutes() {
	r.engine.Use(gin.Recovery())
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logging(r.logger))
	r.engine.Use(middleware.Observability(r.metrics))

	r.engine.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	r.engine.GET("/health/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/health/ready", r.healthHandler.ReadinessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	if r.config.Monitoring.PprofEnabled {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		// Graph calls the webhook endpoint with GET for the validation
		// handshake and POST for notification delivery.
		v1.GET("/webhook", r.webhookHandler.Handle)
		v1.POST("/webhook", r.webhookHandler.Handle)

		v1.POST("/subscriptions", r.subscriptionHandler.Execute)
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Engine exposes the underlying gin engine for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start runs the HTTP server; it blocks until the server stops.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:         addr,
		Handler:      r.engine,
		ReadTimeout:  r.config.Server.ReadTimeout,
		WriteTimeout: r.config.Server.WriteTimeout,
		IdleTimeout:  r.config.Server.IdleTimeout,
	}

	r.logger.Info(context.Background(), "http server listening", logger.Fields{"addr": addr})
	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (r *Router) Shutdown(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	return r.server.Shutdown(ctx)
}
