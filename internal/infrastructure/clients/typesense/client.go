package typesense

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
	"github.com/servicemapcy/servicemap/backend/pkg/retry"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"
)

const (
	ProvidersCollection = "providers"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.Do(ctx, retry.DefaultConfig(), "typesense", func(ctx context.Context) error {
		healthCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, err := client.Health(healthCtx, 2*time.Second)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// InitSchema ensures the providers collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == ProvidersCollection {
			return nil
		}
	}

	schema := &api.CollectionSchema{
		Name: ProvidersCollection,
		Fields: []api.Field{
			{Name: "id", Type: "string"},
			{Name: "business_name", Type: "string"},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "address", Type: "string", Optional: pointer.True()},
			{Name: "category_id", Type: "string", Facet: pointer.True()},
			{Name: "location", Type: "geopoint", Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}

	if _, err := c.client.Collections().Create(ctx, schema); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", ProvidersCollection).Msg("created Typesense collection")
	return nil
}

// DropSchema deletes the providers collection. A missing collection is not
// an error.
func (c *Client) DropSchema(ctx context.Context) error {
	if _, err := c.client.Collection(ProvidersCollection).Delete(ctx); err != nil {
		var httpErr *typesense.HTTPError
		if errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("failed to drop collection: %w", err)
	}
	log.Info().Str("collection", ProvidersCollection).Msg("dropped Typesense collection")
	return nil
}
