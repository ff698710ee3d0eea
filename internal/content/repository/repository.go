package repository

import (
	"context"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

// Repository persists content items. It never touches the object store:
// asset cleanup belongs to the caller.
type Repository interface {
	Insert(ctx context.Context, it *content.Item) (*content.Item, error)
	Get(ctx context.Context, kind content.Kind, id string) (*content.Item, error)
	List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error)
	// Update applies a shallow patch and returns the documents before and after it.
	Update(ctx context.Context, kind content.Kind, id string, p content.Patch) (prev, next *content.Item, err error)
	// Delete removes the document and returns it so callers can inspect its assets.
	Delete(ctx context.Context, kind content.Kind, id string) (*content.Item, error)
	// ReferencedKeys returns which of keys in bucket are still referenced by
	// a live item other than exceptID.
	ReferencedKeys(ctx context.Context, bucket string, keys []string, exceptID string) (map[string]bool, error)
	// KeysUnder returns every referenced key in bucket starting with prefix.
	KeysUnder(ctx context.Context, bucket, prefix string) (map[string]bool, error)
}

func notFound(kind content.Kind, id string) error {
	return &content.NotFoundError{Kind: kind, ID: id}
}
