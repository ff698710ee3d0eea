// Package assets is the object-store façade used by the content service.
package assets

import (
	"context"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

// Store puts and removes binary assets.
//
// Remove is idempotent: a missing key is not an error. A failure on one key
// never stops the rest of the batch; failed keys come back as a
// *content.AssetOperationError.
type Store interface {
	Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (content.AssetRef, error)
	Remove(ctx context.Context, bucket string, keys []string) error
}

// Object is one listed object.
type Object struct {
	Key          string
	LastModified time.Time
}

// Lister enumerates objects under a prefix; used by the orphan sweep.
type Lister interface {
	List(ctx context.Context, bucket, prefix string) ([]Object, error)
}

// NewKey builds a fresh object key under prefix, keeping the file extension.
func NewKey(prefix, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if len(ext) > 10 {
		ext = ""
	}
	return prefix + uuid.NewString() + ext
}
