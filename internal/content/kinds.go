package content

import (
	"fmt"
	"strings"
)

// KindConfig is the per-kind configuration driving the generic lifecycle:
// where the kind's assets live and how many items may be featured per bucket.
type KindConfig struct {
	Kind   Kind
	Bucket string
	// Prefix partitions the bucket; keys of different kinds never overlap.
	Prefix string
	// Quota maps a time bucket to its featured capacity. An empty map means
	// the kind cannot be featured.
	Quota map[TimeBucket]int
}

// Promotable reports whether the kind supports the featured flag.
func (c KindConfig) Promotable() bool { return len(c.Quota) > 0 }

// Owns reports whether ref lives in this kind's partition of the object store.
func (c KindConfig) Owns(ref AssetRef) bool {
	return ref.Bucket == c.Bucket && strings.HasPrefix(ref.Key, c.Prefix)
}

// Registry holds the configuration of every kind.
type Registry map[Kind]KindConfig

// DefaultRegistry mirrors the bucket layout of the public site.
func DefaultRegistry() Registry {
	return Registry{
		KindEvent:   {Kind: KindEvent, Bucket: "events", Prefix: "posters/", Quota: map[TimeBucket]int{BucketUpcoming: 2, BucketPast: 3}},
		KindPartner: {Kind: KindPartner, Bucket: "partners", Prefix: "logos/"},
		KindCircle:  {Kind: KindCircle, Bucket: "community", Prefix: "circles/"},
		KindGallery: {Kind: KindGallery, Bucket: "assets", Prefix: "gallery/"},
		KindSlider:  {Kind: KindSlider, Bucket: "assets", Prefix: "slider/"},
		KindSocial:  {Kind: KindSocial, Bucket: "assets", Prefix: "social/"},
	}
}

// Lookup returns the configuration for k.
func (r Registry) Lookup(k Kind) (KindConfig, error) {
	c, ok := r[k]
	if !ok {
		return KindConfig{}, fmt.Errorf("%w: %q", ErrUnknownKind, k)
	}
	return c, nil
}

// Validate checks that no two kinds share a (bucket, prefix) partition.
func (r Registry) Validate() error {
	for a, ca := range r {
		if ca.Bucket == "" {
			return fmt.Errorf("kind %s: empty bucket", a)
		}
		for q, n := range ca.Quota {
			if n < 0 {
				return fmt.Errorf("kind %s: negative quota for %s", a, q)
			}
		}
		for b, cb := range r {
			if a == b || ca.Bucket != cb.Bucket {
				continue
			}
			if strings.HasPrefix(ca.Prefix, cb.Prefix) || strings.HasPrefix(cb.Prefix, ca.Prefix) {
				return fmt.Errorf("kinds %s and %s overlap in bucket %s", a, b, ca.Bucket)
			}
		}
	}
	return nil
}
