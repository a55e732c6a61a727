package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/cache"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/events"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/messaging"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/search"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/storage"
	"github.com/servicemapcy/servicemap/backend/internal/api/handlers"
	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/api/routes"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/kafka"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/redis"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/s3"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/typesense"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
	"github.com/servicemapcy/servicemap/backend/pkg/secrets"
)

func main() {
	if _, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv("servicemap/api")); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load vault secrets: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(observability.LoggerConfig{
		Service: cfg.OTEL.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Warn().Err(err).Msg("failed to shut down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize metrics")
	}

	// PostgreSQL
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to PostgreSQL")
	}
	defer pgClient.Close()
	log.Info().Msg("connected to PostgreSQL")

	// Redis backs the rate limiter, the category cache and the session bus.
	var cacheProvider providers.CacheProvider
	var sessionBus providers.SessionBus
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without shared cache")
		} else {
			defer redisClient.Close()
			cacheProvider = cache.NewRedisAdapter(redisClient)
			sessionBus = events.NewRedisSessionBus(redisClient)
			log.Info().Msg("connected to Redis")
		}
	}

	// Typesense
	var searchIndex repositories.ProviderSearchIndex
	if cfg.Typesense.Enabled {
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Typesense, search falls back to name match")
		} else {
			searchIndex = search.NewProviderIndex(tsClient)
			log.Info().Msg("connected to Typesense")
		}
	}

	// Object storage
	s3Client, err := s3.NewClient(ctx, &cfg.Storage)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure object storage")
	}
	objectStorage := storage.NewS3Storage(s3Client.Client(), &cfg.Storage)

	// Sign-in link delivery
	var sender providers.MagicLinkSender
	if len(cfg.Kafka.Brokers) > 0 {
		writer, err := kafka.NewWriter(&cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure Kafka writer")
		}
		sender = messaging.NewKafkaMagicLinkSender(writer)
	} else {
		log.Warn().Msg("no Kafka brokers configured, sign-in links are only logged")
		sender = messaging.NewLogMagicLinkSender()
	}
	defer func() {
		if err := sender.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close sign-in link sender")
		}
	}()

	// Repositories
	var categoryRepo repositories.CategoryRepository = database.NewCategoryAdapter(pgClient)
	if cacheProvider != nil {
		cached := database.NewCachedCategoryAdapter(categoryRepo, cacheProvider)
		if err := cached.Warm(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to warm category cache")
		}
		categoryRepo = cached
	}
	providerRepo := database.NewProviderAdapter(pgClient)
	nearbyRepo := database.NewNearbyAdapter(pgClient)
	reviewRepo := database.NewReviewAdapter(pgClient)
	profileRepo := database.NewProfileAdapter(pgClient)
	userRepo := database.NewUserAdapter(pgClient)
	sessionRepo := database.NewSessionAdapter(pgClient)
	linkRepo := database.NewMagicLinkAdapter(pgClient)

	// Session store
	sessionStore := services.NewSessionStore()
	defer sessionStore.Close()
	if sessionBus != nil {
		if err := sessionStore.AttachBus(sessionBus); err != nil {
			log.Warn().Err(err).Msg("failed to attach session bus")
		}
		defer func() {
			if err := sessionBus.Close(); err != nil {
				log.Warn().Err(err).Msg("failed to close session bus")
			}
		}()
	}

	// Services
	reviewService := services.NewReviewService(reviewRepo, profileRepo)
	discoveryService := services.NewDiscoveryService(
		categoryRepo, providerRepo, nearbyRepo, reviewService, searchIndex, cfg.Discovery.DefaultRadiusKm,
	)
	profileService := services.NewProfileService(profileRepo, objectStorage)
	authService := services.NewAuthService(userRepo, sessionRepo, linkRepo, profileRepo, sender, sessionStore, cfg.Auth)

	// HTTP
	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
	}

	router := routes.NewRouter(
		routes.Handlers{
			Discovery:     handlers.NewDiscoveryHandler(discoveryService),
			Reviews:       handlers.NewReviewHandler(reviewService, cacheProvider),
			Profile:       handlers.NewProfileHandler(profileService),
			Auth:          handlers.NewAuthHandler(authService),
			SessionEvents: handlers.NewSessionEventsHandler(authService),
		},
		authService,
		profileRepo,
		cacheMiddleware,
		cfg.Server.AllowedOrigins,
		metrics,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           router.SetupRoutes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Closing the store first ends open session streams so Shutdown does
	// not wait on them.
	sessionStore.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}
