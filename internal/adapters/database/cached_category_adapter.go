package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
)

const (
	categoriesCacheKey = "categories:all"
	categoriesCacheTTL = 30 * time.Minute
)

// CachedCategoryAdapter wraps a CategoryRepository with a cache-aside layer.
// The taxonomy changes only through seeding, so a stale read lasts at most
// one TTL.
type CachedCategoryAdapter struct {
	adapter repositories.CategoryRepository
	cache   providers.CacheProvider
	ttl     time.Duration
}

// NewCachedCategoryAdapter creates a new cached category adapter
func NewCachedCategoryAdapter(adapter repositories.CategoryRepository, cache providers.CacheProvider) *CachedCategoryAdapter {
	return &CachedCategoryAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     categoriesCacheTTL,
	}
}

// List returns the cached taxonomy, loading it on a miss
func (a *CachedCategoryAdapter) List(ctx context.Context) ([]*entities.Category, error) {
	if cached, err := a.cache.Get(ctx, categoriesCacheKey); err == nil {
		var categories []*entities.Category
		if err := json.Unmarshal(cached, &categories); err == nil {
			return categories, nil
		}
		log.Warn().Err(err).Msg("discarding undecodable cached categories")
	}

	categories, err := a.adapter.List(ctx)
	if err != nil {
		return nil, err
	}
	a.store(ctx, categories)
	return categories, nil
}

// Warm loads the taxonomy into the cache so the first request is a hit
func (a *CachedCategoryAdapter) Warm(ctx context.Context) error {
	categories, err := a.adapter.List(ctx)
	if err != nil {
		return err
	}
	a.store(ctx, categories)
	log.Info().Int("count", len(categories)).Msg("category cache warmed")
	return nil
}

// Invalidate drops the cached taxonomy
func (a *CachedCategoryAdapter) Invalidate(ctx context.Context) error {
	return a.cache.Delete(ctx, categoriesCacheKey)
}

// store failures only cost a later miss
func (a *CachedCategoryAdapter) store(ctx context.Context, categories []*entities.Category) {
	data, err := json.Marshal(categories)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode categories for cache")
		return
	}
	if err := a.cache.Set(ctx, categoriesCacheKey, data, a.ttl); err != nil {
		log.Warn().Err(err).Msg("failed to cache categories")
	}
}
