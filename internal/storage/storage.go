// ABOUTME: Object storage abstraction for task attachments.
// ABOUTME: Handlers depend on ObjectStorage; S3 is the only production backend.
package storage

import (
	"context"
	"io"
)

// ObjectStorage stores and removes attachment blobs. Put returns the public
// URL the stored object is reachable at.
type ObjectStorage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (string, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
