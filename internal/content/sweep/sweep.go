// Package sweep reconciles the object store with the document store,
// removing objects no live item references. It heals the drift left when
// a request dies between the document write and its reclaim cycle.
package sweep

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
	"github.com/tribehub/tribehub/backend/content-service/pkg/metrics"
)

// References is the slice of the repository the sweep reads.
type References interface {
	KeysUnder(ctx context.Context, bucket, prefix string) (map[string]bool, error)
}

// Store lists and removes objects.
type Store interface {
	assets.Store
	assets.Lister
}

type Options struct {
	// Grace skips objects modified more recently than this, so fresh
	// uploads awaiting their create request survive.
	Grace  time.Duration
	DryRun bool
	Now    func() time.Time
}

// Report is the outcome for one kind.
type Report struct {
	Kind    content.Kind `json:"kind"`
	Scanned int          `json:"scanned"`
	Young   int          `json:"young"`
	Removed []string     `json:"removed"`
	Failed  []string     `json:"failed,omitempty"`
}

type Sweeper struct {
	registry content.Registry
	refs     References
	store    Store
	opts     Options
}

func New(registry content.Registry, refs References, store Store, opts Options) *Sweeper {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sweeper{registry: registry, refs: refs, store: store, opts: opts}
}

// Run sweeps every kind in the registry. A failure on one kind does not
// stop the others.
func (s *Sweeper) Run(ctx context.Context) ([]Report, error) {
	kinds := make([]content.Kind, 0, len(s.registry))
	for k := range s.registry {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	var reports []Report
	var errs []error
	for _, k := range kinds {
		rep, err := s.Kind(ctx, s.registry[k])
		reports = append(reports, rep)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

// Kind sweeps one kind's (bucket, prefix) partition.
func (s *Sweeper) Kind(ctx context.Context, cfg content.KindConfig) (Report, error) {
	rep := Report{Kind: cfg.Kind}
	objs, err := s.store.List(ctx, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return rep, err
	}
	rep.Scanned = len(objs)
	// read references after listing: an object uploaded and referenced in
	// between is then seen as referenced rather than orphaned
	live, err := s.refs.KeysUnder(ctx, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return rep, err
	}

	cutoff := s.opts.Now().Add(-s.opts.Grace)
	var doomed []string
	for _, o := range objs {
		if live[o.Key] {
			continue
		}
		if o.LastModified.After(cutoff) {
			rep.Young++
			continue
		}
		doomed = append(doomed, o.Key)
	}
	if len(doomed) == 0 || s.opts.DryRun {
		rep.Removed = doomed
		return rep, nil
	}

	err = s.store.Remove(ctx, cfg.Bucket, doomed)
	failed := map[string]bool{}
	var aerr *content.AssetOperationError
	if errors.As(err, &aerr) {
		for _, k := range aerr.Keys {
			failed[k] = true
		}
	} else if err != nil {
		rep.Failed = doomed
		return rep, err
	}
	for _, k := range doomed {
		if failed[k] {
			rep.Failed = append(rep.Failed, k)
		} else {
			rep.Removed = append(rep.Removed, k)
		}
	}
	metrics.SweepRemoved.WithLabelValues(string(cfg.Kind)).Add(float64(len(rep.Removed)))
	logger.L().Info().Str("kind", string(cfg.Kind)).Str("bucket", cfg.Bucket).
		Int("scanned", rep.Scanned).Int("removed", len(rep.Removed)).Int("failed", len(rep.Failed)).
		Msg("orphan sweep")
	return rep, err
}
