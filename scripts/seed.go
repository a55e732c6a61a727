package main

import (
	"context"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/cache"
	"github.com/servicemapcy/servicemap/backend/internal/adapters/database"
	"github.com/servicemapcy/servicemap/backend/internal/api/middleware"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/postgres"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/redis"
	"github.com/servicemapcy/servicemap/backend/internal/infrastructure/observability"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
)

type seedCategory struct {
	id, name, nameEn, icon string
}

type seedProvider struct {
	category, name, phone, address string
	lat, lng                       float64
}

var categories = []seedCategory{
	{"electricians", "Ηλεκτρολόγοι", "Electricians", "⚡"},
	{"plumbers", "Υδραυλικοί", "Plumbers", "🔧"},
	{"air-conditioning", "Κλιματισμός", "Air conditioning", "❄️"},
	{"cleaning", "Καθαρισμός", "Cleaning", "🧹"},
	{"gardening", "Κηπουρική", "Gardening", "🌿"},
	{"painters", "Ελαιοχρωματιστές", "Painters", "🎨"},
	{"carpenters", "Ξυλουργοί", "Carpenters", "🪚"},
	{"locksmiths", "Κλειδαράδες", "Locksmiths", "🔑"},
	{"movers", "Μετακομίσεις", "Movers", "🚚"},
	{"pool-services", "Συντήρηση πισίνας", "Pool services", "🏊"},
}

var sampleProviders = []seedProvider{
	{"plumbers", "Old Town Plumbing", "+35799100001", "Agiou Andreou 120, Limassol", 34.6786, 33.0413},
	{"electricians", "Germasogeia Electric", "+35799100002", "Germasogeia, Limassol", 34.7150, 33.0900},
	{"air-conditioning", "Coastal Cooling", "+35799100003", "Makariou III 45, Larnaca", 34.9182, 33.6290},
	{"cleaning", "Strovolos Home Care", "+35799100004", "Strovolos, Nicosia", 35.1430, 33.3440},
	{"pool-services", "Kato Paphos Pools", "+35799100005", "Poseidonos Ave, Paphos", 34.7580, 32.4150},
	{"locksmiths", "Ledra Locks", "+35799100006", "Ledras 88, Nicosia", 35.1725, 33.3617},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	observability.InitLogger(observability.LoggerConfig{
		Service: "servicemap-seed",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pgClient.Close()

	db := goqu.New("postgres", pgClient.DB())

	if os.Getenv("RESET_DB") == "true" {
		log.Warn().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx,
			`TRUNCATE TABLE reviews, providers, categories RESTART IDENTITY CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("failed to reset tables")
		}
	}

	now := time.Now().UTC()

	rows := make([]interface{}, 0, len(categories))
	for _, c := range categories {
		rows = append(rows, goqu.Record{
			"id": c.id, "name": c.name, "name_en": c.nameEn, "icon": c.icon, "created_at": now,
		})
	}
	if err := exec(ctx, db.Insert("categories").Rows(rows...).OnConflict(goqu.DoNothing())); err != nil {
		log.Fatal().Err(err).Msg("failed to seed categories")
	}
	log.Info().Int("count", len(categories)).Msg("seeded categories")

	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, cached categories expire on their own")
		} else {
			defer redisClient.Close()
			if err := invalidateTaxonomy(ctx, cache.NewRedisAdapter(redisClient), database.NewCategoryAdapter(pgClient)); err != nil {
				log.Warn().Err(err).Msg("failed to invalidate cached categories")
			} else {
				log.Info().Msg("cached categories invalidated")
			}
		}
	}

	if os.Getenv("SEED_SAMPLE_PROVIDERS") != "true" {
		return
	}

	owner := uuid.New().String()
	rows = rows[:0]
	for _, p := range sampleProviders {
		rows = append(rows, goqu.Record{
			"id":            uuid.New().String(),
			"user_id":       owner,
			"category_id":   p.category,
			"business_name": p.name,
			"phone":         p.phone,
			"address":       p.address,
			"latitude":      p.lat,
			"longitude":     p.lng,
			"is_approved":   true,
			"is_active":     true,
			"created_at":    now,
			"updated_at":    now,
		})
	}
	if err := exec(ctx, db.Insert("providers").Rows(rows...)); err != nil {
		log.Fatal().Err(err).Msg("failed to seed sample providers")
	}
	log.Info().Int("count", len(sampleProviders)).Msg("seeded sample providers")
}

// invalidateTaxonomy drops both cached copies of the category list, the
// repository entry and the GET /api/categories response
func invalidateTaxonomy(ctx context.Context, cp providers.CacheProvider, repo repositories.CategoryRepository) error {
	if err := database.NewCachedCategoryAdapter(repo, cp).Invalidate(ctx); err != nil {
		return err
	}
	return middleware.NewCacheMiddleware(cp, nil).Invalidate(ctx, "/api/categories")
}

func exec(ctx context.Context, ds *goqu.InsertDataset) error {
	_, err := ds.Prepared(true).Executor().ExecContext(ctx)
	return err
}
