package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	appservice "github.com/graphbind/graphbind/internal/application/service"
	"github.com/graphbind/graphbind/internal/config"
	"github.com/graphbind/graphbind/internal/domain/models"
	"github.com/graphbind/graphbind/internal/infrastructure/auth"
	"github.com/graphbind/graphbind/internal/infrastructure/monitoring"
	"github.com/graphbind/graphbind/internal/infrastructure/persistence/file"
	"github.com/graphbind/graphbind/internal/interfaces/http/handlers"
	"github.com/graphbind/graphbind/internal/interfaces/http/router"
	"github.com/graphbind/graphbind/internal/trigger"
	"github.com/graphbind/graphbind/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	appLogger, err := monitoring.NewZapLogger(&cfg.Log)
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}

	ctx := context.Background()

	// One shared HTTP client for every outbound call; its lifetime is the
	// process lifetime.
	httpClient := &http.Client{Timeout: 30 * time.Second}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.TokenStore.RedisAddress,
		Password: cfg.TokenStore.RedisPassword,
		DB:       cfg.TokenStore.RedisDB,
	})
	defer redisClient.Close()

	metricsRegistry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(metricsRegistry)

	// Token acquisition and client caching
	aadClient := auth.NewAADClient(&cfg.Auth, httpClient, appLogger)
	tokenStore := auth.NewRedisTokenStore(redisClient, &cfg.TokenStore, httpClient, appLogger)
	tokenProvider := auth.NewTokenProvider(aadClient, tokenStore, metrics, appLogger)
	clientCache := auth.NewClientCache(tokenProvider, httpClient, cfg.Graph.BaseURL, metrics, appLogger)

	// Subscription persistence and lifecycle
	subscriptionStore := file.NewSubscriptionStore(cfg.Subscriptions.StorePath, appLogger)
	subscriptionService := appservice.NewSubscriptionAppService(
		clientCache, subscriptionStore, cfg.Subscriptions.NotificationURL, metrics, appLogger)

	// Trigger wiring. Consumers register here at startup; the wildcard
	// logging trigger keeps unclaimed notifications visible.
	registry := trigger.NewRegistry(appLogger)
	if err := registry.Register("", logTrigger(appLogger)); err != nil {
		appLogger.Fatal(ctx, "failed to register default trigger", err)
	}

	notificationService := appservice.NewNotificationAppService(
		subscriptionStore, clientCache, registry, metrics, appLogger)

	r := router.NewRouter(router.Dependencies{
		Config:              cfg,
		Logger:              appLogger,
		Metrics:             metrics,
		MetricsRegistry:     metricsRegistry,
		WebhookHandler:      handlers.NewWebhookHandler(notificationService, appLogger),
		SubscriptionHandler: handlers.NewSubscriptionHandler(subscriptionService),
		HealthHandler:       handlers.NewHealthHandler(redisClient, appLogger),
	})

	// Periodic subscription refresh. The lifecycle manager never schedules
	// itself; this ticker is the scheduler.
	refreshCtx, stopRefresh := context.WithCancel(ctx)
	if cfg.Subscriptions.RefreshInterval > 0 {
		go runRefresher(refreshCtx, cfg.Subscriptions.RefreshInterval, subscriptionService, appLogger)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			appLogger.Fatal(ctx, "http server failed", err)
		}
	case sig := <-sigCh:
		appLogger.Info(ctx, "shutting down", logger.Fields{"signal": sig.String()})
	}

	stopRefresh()

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := r.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(ctx, "error during shutdown", err)
	}

	// Let detached notification dispatches finish before exiting.
	notificationService.Wait()
}

func runRefresher(ctx context.Context, interval time.Duration, svc appservice.SubscriptionAppService, log logger.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.RefreshAll(ctx); err != nil {
				log.Error(ctx, "subscription refresh cycle failed", err)
			}
		}
	}
}

func logTrigger(log logger.Logger) trigger.Handler {
	log = log.WithComponent("default_trigger")
	return func(ctx context.Context, payload models.DispatchPayload) error {
		log.Info(ctx, "notification received", logger.Fields{
			"subscription_id": payload.SubscriptionID,
			"resource_type":   payload.ResourceType,
			"resource":        payload.Resource,
			"bytes":           len(payload.Data),
		})
		return nil
	}
}
