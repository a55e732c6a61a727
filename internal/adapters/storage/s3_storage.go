package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"github.com/servicemapcy/servicemap/backend/internal/domain/providers"
	"github.com/servicemapcy/servicemap/backend/pkg/config"
	apperrors "github.com/servicemapcy/servicemap/backend/pkg/errors"
)

// PutObjectAPI is the subset of the S3 client used for uploads
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage implements ObjectStorage on an S3 bucket
type S3Storage struct {
	api     PutObjectAPI
	bucket  string
	baseURL string
}

// NewS3Storage creates an object storage adapter for cfg.Bucket. Objects are
// addressed under PublicBaseURL when set, otherwise the virtual-hosted S3 URL.
func NewS3Storage(api PutObjectAPI, cfg *config.StorageConfig) providers.ObjectStorage {
	baseURL := strings.TrimRight(cfg.PublicBaseURL, "/")
	if baseURL == "" {
		baseURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
	return &S3Storage{api: api, bucket: cfg.Bucket, baseURL: baseURL}
}

// Upload writes data at path. Without overwrite the write is conditional on
// the key being absent.
func (s *S3Storage) Upload(ctx context.Context, path string, data []byte, contentType string, overwrite bool) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(path),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}
	if !overwrite {
		input.IfNoneMatch = aws.String("*")
	}

	if _, err := s.api.PutObject(ctx, input); err != nil {
		return apperrors.NewRemoteWriteError("failed to upload object", err)
	}

	log.Debug().Str("bucket", s.bucket).Str("key", path).Int("bytes", len(data)).Msg("uploaded object")
	return nil
}

// PublicURL returns the public address of the object at path
func (s *S3Storage) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}
