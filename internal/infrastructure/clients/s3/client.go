package s3

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
)

// Client wraps an S3 client bound to the avatar bucket
type Client struct {
	client *s3.Client
	bucket string
}

// NewClient builds an S3 client from the default AWS credential chain. A
// custom endpoint enables S3-compatible stores such as MinIO.
func NewClient(ctx context.Context, cfg *config.StorageConfig) (*Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS SDK config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Client{client: client, bucket: cfg.Bucket}, nil
}

// Client returns the underlying S3 client
func (c *Client) Client() *s3.Client {
	return c.client
}

// Bucket returns the configured bucket name
func (c *Client) Bucket() string {
	return c.bucket
}
