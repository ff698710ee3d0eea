// Package reclaim removes assets an item no longer references.
package reclaim

import (
	"context"
	"errors"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// Referencer answers whether live items still point at a key.
type Referencer interface {
	ReferencedKeys(ctx context.Context, bucket string, keys []string, exceptID string) (map[string]bool, error)
}

// Orphans returns the refs in prev whose (bucket, key) is absent from next.
// Position and URL are ignored, so reordering or re-signing URLs never
// produces an orphan. The result keeps prev's order without duplicates.
func Orphans(prev, next []content.AssetRef) []content.AssetRef {
	live := make(map[string]bool, len(next))
	for _, a := range next {
		live[a.ID()] = true
	}
	seen := map[string]bool{}
	var out []content.AssetRef
	for _, a := range prev {
		if a.Key == "" || live[a.ID()] || seen[a.ID()] {
			continue
		}
		seen[a.ID()] = true
		out = append(out, a)
	}
	return out
}

// Result describes one reclaim cycle.
type Result struct {
	Removed []content.AssetRef
	// Shared are orphans kept because a live item still references them.
	Shared []content.AssetRef
	Failed []content.AssetRef
}

// Reclaimer runs reclaim cycles against an asset store.
type Reclaimer struct {
	store assets.Store
	refs  Referencer
}

// New returns a Reclaimer. refs may be nil to skip the cross-item check.
func New(store assets.Store, refs Referencer) *Reclaimer {
	return &Reclaimer{store: store, refs: refs}
}

// Reclaim removes every asset in prev that next no longer references.
// It must run only after the document write for itemID has committed.
// Orphans are checked against every live document, itemID's included: a
// concurrent write may have restored a ref since prev and next were read.
// Failures are returned as *content.AssetOperationError values joined
// together; the caller decides how loudly to report them.
func (r *Reclaimer) Reclaim(ctx context.Context, itemID string, prev, next []content.AssetRef) (Result, error) {
	var res Result
	orphans := Orphans(prev, next)
	if len(orphans) == 0 {
		return res, nil
	}

	byBucket := map[string][]content.AssetRef{}
	var order []string
	for _, a := range orphans {
		if _, ok := byBucket[a.Bucket]; !ok {
			order = append(order, a.Bucket)
		}
		byBucket[a.Bucket] = append(byBucket[a.Bucket], a)
	}

	var errs []error
	for _, bucket := range order {
		refs := byBucket[bucket]
		keys := make([]string, 0, len(refs))
		for _, a := range refs {
			keys = append(keys, a.Key)
		}

		if r.refs != nil {
			shared, err := r.refs.ReferencedKeys(ctx, bucket, keys, "")
			if err != nil {
				// without the check a removal could break another item
				res.Failed = append(res.Failed, refs...)
				errs = append(errs, &content.AssetOperationError{Bucket: bucket, Keys: keys, Err: err})
				continue
			}
			if len(shared) > 0 {
				kept := refs[:0:0]
				keys = keys[:0]
				for _, a := range refs {
					if shared[a.Key] {
						res.Shared = append(res.Shared, a)
						logger.Warnf("asset %s dropped by %s is still referenced; not removed", a.ID(), itemID)
						continue
					}
					kept = append(kept, a)
					keys = append(keys, a.Key)
				}
				refs = kept
			}
		}
		if len(keys) == 0 {
			continue
		}

		err := r.store.Remove(ctx, bucket, keys)
		if err == nil {
			res.Removed = append(res.Removed, refs...)
			continue
		}
		var aerr *content.AssetOperationError
		if !errors.As(err, &aerr) {
			aerr = &content.AssetOperationError{Bucket: bucket, Keys: keys, Err: err}
		}
		failed := make(map[string]bool, len(aerr.Keys))
		for _, k := range aerr.Keys {
			failed[k] = true
		}
		for _, a := range refs {
			if failed[a.Key] {
				res.Failed = append(res.Failed, a)
			} else {
				res.Removed = append(res.Removed, a)
			}
		}
		errs = append(errs, aerr)
	}
	return res, errors.Join(errs...)
}
