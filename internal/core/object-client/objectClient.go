package objectclient

import (
	"context"
)

// ObjectClient defines interactions with S3 or any object storage.
// It’s abstract so you can replace AWS with MinIO, GCP, etc. easily.
// The bucket is fixed at construction; callers deal in keys only.
type ObjectClient interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// URL returns the public address of an uploaded object.
	URL(key string) string
}
