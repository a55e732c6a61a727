package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/search"
	"github.com/servicemapcy/servicemap/backend/internal/application/services"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/typesense"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
	"github.com/servicemapcy/servicemap/backend/pkg/secrets"
)

func main() {
	var reset bool
	var intervalFlag string
	flag.BoolVar(&reset, "reset", false, "delete the providers collection before reindexing")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.Parse()

	if _, err := secrets.Apply(context.Background(), secrets.ConfigFromEnv("servicemap/indexer")); err != nil {
		log.Fatal().Err(err).Msg("failed to load vault secrets")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(observability.LoggerConfig{
		Service: "servicemap-indexer",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil || interval <= 0 {
			log.Fatal().Str("interval", intervalValue).Msg("interval must be a positive duration")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset); err != nil {
			log.Error().Err(err).Msg("reindex failed")
		}

		if interval <= 0 {
			return
		}
		reset = false
		log.Info().Dur("interval", interval).Msg("reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("reindexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset {
		if err := tsClient.DropSchema(ctx); err != nil {
			return err
		}
	}
	if err := tsClient.InitSchema(ctx); err != nil {
		return err
	}

	discovery := services.NewDiscoveryService(
		nil,
		database.NewProviderAdapter(pgClient),
		nil,
		nil,
		search.NewProviderIndex(tsClient),
		cfg.Discovery.DefaultRadiusKm,
	)

	count, err := discovery.ReindexProviders(ctx)
	if err != nil {
		return err
	}
	log.Info().Int("providers", count).Msg("provider index rebuilt")
	return nil
}
