package providers

import (
	"context"
)

// ObjectStorage stores binary objects such as avatars
type ObjectStorage interface {
	// Upload writes data at path. Without overwrite an existing object is an error.
	Upload(ctx context.Context, path string, data []byte, contentType string, overwrite bool) error

	// PublicURL returns the public address of the object at path
	PublicURL(path string) string
}
