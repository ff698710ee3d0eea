// Package quota guards the featured flag with a per-(kind, bucket) capacity.
package quota

import (
	"context"
	"fmt"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/schedule"
	"github.com/tribehub/tribehub/backend/content-service/pkg/metrics"
)

// Lister is the slice of the repository the enforcer reads.
type Lister interface {
	List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error)
}

// Enforcer decides whether an item may become featured.
type Enforcer struct {
	registry   content.Registry
	items      Lister
	classifier *schedule.Classifier
	locker     Locker
}

func NewEnforcer(registry content.Registry, items Lister, classifier *schedule.Classifier, locker Locker) *Enforcer {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Enforcer{registry: registry, items: items, classifier: classifier, locker: locker}
}

// BucketOf re-derives the candidate's bucket from its schedule. Promotable
// kinds without a schedule always fall in the upcoming bucket.
func (e *Enforcer) BucketOf(it *content.Item) content.TimeBucket {
	if b, ok := e.classifier.Bucket(it); ok {
		return b
	}
	return content.BucketUpcoming
}

// Check counts the featured items sharing the candidate's bucket, the
// candidate itself excluded, and fails when no slot is left.
func (e *Enforcer) Check(ctx context.Context, cand *content.Item) error {
	cfg, err := e.registry.Lookup(cand.Kind)
	if err != nil {
		return err
	}
	if !cfg.Promotable() {
		return &content.ValidationError{Field: "featured", Reason: fmt.Sprintf("%s items cannot be featured", cand.Kind)}
	}
	bucket := e.BucketOf(cand)
	limit := cfg.Quota[bucket]

	featured := true
	items, err := e.items.List(ctx, cand.Kind, content.Filter{Featured: &featured})
	if err != nil {
		return &content.PersistenceError{Op: "count featured", Err: err}
	}
	count := 0
	for _, it := range items {
		if it.ID == cand.ID {
			continue
		}
		if e.BucketOf(it) == bucket {
			count++
		}
	}
	if count >= limit {
		metrics.QuotaRejected.WithLabelValues(string(cand.Kind), string(bucket)).Inc()
		return &content.QuotaExceededError{Kind: cand.Kind, Bucket: bucket, Count: count, Limit: limit}
	}
	return nil
}

// Promote holds the (kind, bucket) lock across Check and write, so two
// concurrent promotions cannot both take the last slot.
func (e *Enforcer) Promote(ctx context.Context, cand *content.Item, write func(context.Context) error) error {
	name := fmt.Sprintf("quota:%s:%s", cand.Kind, e.BucketOf(cand))
	release, err := e.locker.Acquire(ctx, name)
	if err != nil {
		return fmt.Errorf("acquire %s: %w", name, err)
	}
	defer release()

	if err := e.Check(ctx, cand); err != nil {
		return err
	}
	return write(ctx)
}
