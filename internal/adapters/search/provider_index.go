package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/servicemapcy/servicemap/backend/internal/domain/entities"
	"github.com/servicemapcy/servicemap/backend/internal/domain/repositories"
	tsclient "github.com/servicemapcy/servicemap/backend/internal/infrastructure/clients/typesense"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const defaultSearchLimit = 20

// ProviderIndex implements provider text search using Typesense
type ProviderIndex struct {
	client *tsclient.Client
}

var _ repositories.ProviderSearchIndex = (*ProviderIndex)(nil)

// NewProviderIndex creates a new Typesense provider index
func NewProviderIndex(client *tsclient.Client) *ProviderIndex {
	return &ProviderIndex{client: client}
}

// Index upserts a provider document
func (i *ProviderIndex) Index(ctx context.Context, provider *entities.Provider) error {
	_, err := i.client.Client().Collection(tsclient.ProvidersCollection).Documents().Upsert(ctx, buildProviderDocument(provider))
	if err != nil {
		return fmt.Errorf("failed to index provider: %w", err)
	}
	return nil
}

// Delete removes a provider from the index. A provider that was never
// indexed is not an error.
func (i *ProviderIndex) Delete(ctx context.Context, id string) error {
	_, err := i.client.Client().Collection(tsclient.ProvidersCollection).Document(id).Delete(ctx)
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete provider from index: %w", err)
	}
	return nil
}

// Search returns matching provider ids ordered by relevance
func (i *ProviderIndex) Search(ctx context.Context, params repositories.ProviderSearchParams) ([]string, error) {
	result, err := i.client.Client().Collection(tsclient.ProvidersCollection).Documents().Search(ctx, buildSearchParams(params))
	if err != nil {
		return nil, fmt.Errorf("failed to search providers: %w", err)
	}

	ids := make([]string, 0)
	if result.Hits == nil {
		return ids, nil
	}
	for _, hit := range *result.Hits {
		if hit.Document == nil {
			continue
		}
		if id, ok := (*hit.Document)["id"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func isNotFound(err error) bool {
	var httpErr *typesense.HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

func buildProviderDocument(p *entities.Provider) map[string]interface{} {
	doc := map[string]interface{}{
		"id":            p.ID,
		"business_name": p.BusinessName,
		"category_id":   p.CategoryID,
		"created_at":    p.CreatedAt.Unix(),
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.Address != nil {
		doc["address"] = *p.Address
	}
	if c := p.Coordinates(); c != nil {
		doc["location"] = []float64{c.Latitude, c.Longitude}
	}
	return doc
}

func buildSearchParams(params repositories.ProviderSearchParams) *api.SearchCollectionParams {
	q := strings.TrimSpace(params.Query)
	if q == "" {
		q = "*"
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	sp := &api.SearchCollectionParams{
		Q:       pointer.String(q),
		QueryBy: pointer.String("business_name,description,address"),
		PerPage: pointer.Int(limit),
	}
	if params.CategoryID != nil {
		sp.FilterBy = pointer.String(fmt.Sprintf("category_id:=%s", escapeFilterValue(*params.CategoryID)))
	}
	return sp
}

// escapeFilterValue wraps a value in backticks so ids with filter syntax
// characters are matched literally.
func escapeFilterValue(v string) string {
	return "`" + strings.ReplaceAll(v, "`", "") + "`"
}
