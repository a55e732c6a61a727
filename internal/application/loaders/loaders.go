// Package loaders batches per-request lookups. A fresh set of loaders is
// attached to each request so cached values never outlive it.
package loaders

import (
	"context"
	"net/http"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
)

type ctxKey string

const loadersKey ctxKey = "dataloaders"

// Loaders contains all the dataloaders for the application
type Loaders struct {
	ProfileLoader *dataloader.Loader[string, *entities.Profile]
}

// NewLoaders creates a new instance of Loaders
func NewLoaders(profileRepo repositories.ProfileRepository) *Loaders {
	return &Loaders{
		ProfileLoader: dataloader.NewBatchedLoader(func(ctx context.Context, keys []string) []*dataloader.Result[*entities.Profile] {
			results := make([]*dataloader.Result[*entities.Profile], len(keys))
			profiles, err := profileRepo.GetByIDs(ctx, keys)

			profileMap := make(map[string]*entities.Profile, len(profiles))
			if err == nil {
				for _, p := range profiles {
					profileMap[p.ID] = p
				}
			}

			// A user without a profile row yields a nil profile, not an error.
			for i, key := range keys {
				if err != nil {
					results[i] = &dataloader.Result[*entities.Profile]{Error: err}
				} else {
					results[i] = &dataloader.Result[*entities.Profile]{Data: profileMap[key]}
				}
			}
			return results
		}),
	}
}

// For returns the loaders attached to ctx, or nil
func For(ctx context.Context) *Loaders {
	l, _ := ctx.Value(loadersKey).(*Loaders)
	return l
}

// WithLoaders returns a new context with the loaders attached
func WithLoaders(ctx context.Context, loaders *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, loaders)
}

// Middleware attaches fresh loaders to every request
func Middleware(profileRepo repositories.ProfileRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := WithLoaders(r.Context(), NewLoaders(profileRepo))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
