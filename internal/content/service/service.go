// Package service orchestrates every content mutation: validate, persist,
// reclaim orphaned assets, gate promotions and append the audit trail.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/audit"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/quota"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/reclaim"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/repository"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/schedule"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
	"github.com/tribehub/tribehub/backend/content-service/pkg/metrics"
)

// Input is a create or update payload. For updates a nil variant in Body
// and a nil Featured leave the stored values untouched.
type Input struct {
	content.Body
	Featured *bool `json:"featured,omitempty"`
}

// Deps are the collaborators the service is built from.
type Deps struct {
	Registry   content.Registry
	Repo       repository.Repository
	Assets     assets.Store
	Audit      audit.Recorder
	Classifier *schedule.Classifier
	// Locker serializes promotions; nil means an in-process lock.
	Locker quota.Locker
	// Bookkeeping bounds the best-effort steps run after a commit.
	Bookkeeping time.Duration
}

// Service is the content lifecycle. It is safe for concurrent use.
type Service struct {
	registry    content.Registry
	repo        repository.Repository
	store       assets.Store
	audit       audit.Recorder
	classifier  *schedule.Classifier
	reclaimer   *reclaim.Reclaimer
	quota       *quota.Enforcer
	bookkeeping time.Duration
}

func New(d Deps) (*Service, error) {
	if d.Repo == nil || d.Assets == nil || d.Audit == nil {
		return nil, errors.New("service: repository, asset store and audit recorder are required")
	}
	if d.Registry == nil {
		d.Registry = content.DefaultRegistry()
	}
	if err := d.Registry.Validate(); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if d.Classifier == nil {
		d.Classifier = schedule.New(time.UTC)
	}
	if d.Bookkeeping <= 0 {
		d.Bookkeeping = 30 * time.Second
	}
	return &Service{
		registry:    d.Registry,
		repo:        d.Repo,
		store:       d.Assets,
		audit:       d.Audit,
		classifier:  d.Classifier,
		reclaimer:   reclaim.New(d.Assets, d.Repo),
		quota:       quota.NewEnforcer(d.Registry, d.Repo, d.Classifier, d.Locker),
		bookkeeping: d.Bookkeeping,
	}, nil
}

// NewMemoryService returns a Service backed entirely by in-memory stores.
func NewMemoryService(reg content.Registry) (*Service, error) {
	return New(Deps{
		Registry: reg,
		Repo:     repository.NewMemoryRepo(),
		Assets:   assets.NewMemoryStore(),
		Audit:    audit.NewMemoryRecorder(),
	})
}

// Registry returns the kind configuration the service runs with.
func (s *Service) Registry() content.Registry { return s.registry }

func requireActor(actor string) error {
	if actor == "" {
		return &content.ValidationError{Field: "actor", Reason: "required"}
	}
	return nil
}

func persistErr(op string, err error) error {
	var nf *content.NotFoundError
	if errors.As(err, &nf) {
		return err
	}
	var pe *content.PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	return &content.PersistenceError{Op: op, Err: err}
}

// Create validates and stores a new item. A payload asking for featured=true
// passes the quota gate before the insert.
func (s *Service) Create(ctx context.Context, kind content.Kind, in Input, actor string) (*content.Listed, error) {
	cfg, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	body, err := content.Prepare(cfg, in.Body)
	if err != nil {
		return nil, err
	}
	featured := in.Featured != nil && *in.Featured
	if featured && !cfg.Promotable() {
		return nil, &content.ValidationError{Field: "featured", Reason: fmt.Sprintf("%s items cannot be featured", kind)}
	}

	cand := &content.Item{Kind: kind, Featured: featured, Body: body}
	var created *content.Item
	insert := func(ctx context.Context) error {
		var err error
		created, err = s.repo.Insert(ctx, cand)
		return err
	}
	if featured {
		err = s.quota.Promote(ctx, cand, insert)
	} else {
		err = insert(ctx)
	}
	if err != nil {
		if isGate(err) {
			return nil, err
		}
		return nil, persistErr("insert "+string(kind), err)
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.record(ctx, actor, created, audit.MutationName(kind, "CREATE"))
	})
	metrics.Mutations.WithLabelValues(string(kind), "create").Inc()
	return s.decorate(created), nil
}

// Update shallow-merges in into the stored item, then removes assets the
// new version no longer references. A false to true flip of Featured is
// quota-gated; a schedule change on an already featured item is not.
func (s *Service) Update(ctx context.Context, kind content.Kind, id string, in Input, actor string) (*content.Listed, error) {
	cfg, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var patch content.Patch
	if len(in.Body.Kinds()) > 0 {
		body, err := content.Prepare(cfg, in.Body)
		if err != nil {
			return nil, err
		}
		patch.Body = &body
	}
	patch.Featured = in.Featured
	if patch.Body == nil && patch.Featured == nil {
		return nil, &content.ValidationError{Field: string(kind), Reason: "payload is empty"}
	}
	promoting := in.Featured != nil && *in.Featured
	if promoting && !cfg.Promotable() {
		return nil, &content.ValidationError{Field: "featured", Reason: fmt.Sprintf("%s items cannot be featured", kind)}
	}

	var prev, next *content.Item
	write := func(ctx context.Context) error {
		var err error
		prev, next, err = s.repo.Update(ctx, kind, id, patch)
		return err
	}
	if promoting {
		cur, err := s.repo.Get(ctx, kind, id)
		if err != nil {
			return nil, persistErr("get "+string(kind), err)
		}
		if cur.Featured {
			err = write(ctx)
		} else {
			cand := cur.Clone()
			patch.Apply(cand)
			err = s.quota.Promote(ctx, cand, write)
		}
		if err != nil {
			if isGate(err) {
				return nil, err
			}
			return nil, persistErr("update "+string(kind), err)
		}
	} else if err := write(ctx); err != nil {
		return nil, persistErr("update "+string(kind), err)
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.reclaim(ctx, kind, id, prev.Assets, next.Assets)
		s.record(ctx, actor, next, audit.MutationName(kind, "UPDATE"))
	})
	metrics.Mutations.WithLabelValues(string(kind), "update").Inc()
	return s.decorate(next), nil
}

// Delete removes the item and every asset it referenced.
func (s *Service) Delete(ctx context.Context, kind content.Kind, id string, actor string) error {
	if _, err := s.registry.Lookup(kind); err != nil {
		return err
	}
	if err := requireActor(actor); err != nil {
		return err
	}
	prev, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		return persistErr("delete "+string(kind), err)
	}
	s.afterCommit(ctx, func(ctx context.Context) {
		s.reclaim(ctx, kind, id, prev.Assets, nil)
		s.record(ctx, actor, prev, audit.MutationName(kind, "DELETE"))
	})
	metrics.Mutations.WithLabelValues(string(kind), "delete").Inc()
	return nil
}

// SetFeatured flips the featured flag. Setting the current value again is
// a no-op and is not audited.
func (s *Service) SetFeatured(ctx context.Context, kind content.Kind, id string, value bool, actor string) (*content.Listed, error) {
	cfg, err := s.registry.Lookup(kind)
	if err != nil {
		return nil, err
	}
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if value && !cfg.Promotable() {
		return nil, &content.ValidationError{Field: "featured", Reason: fmt.Sprintf("%s items cannot be featured", kind)}
	}
	cur, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, persistErr("get "+string(kind), err)
	}
	if cur.Featured == value {
		return s.decorate(cur), nil
	}

	var next *content.Item
	write := func(ctx context.Context) error {
		var err error
		_, next, err = s.repo.Update(ctx, kind, id, content.Patch{Featured: &value})
		return err
	}
	mutation := audit.FeatureUnset
	if value {
		mutation = audit.FeatureSet
		err = s.quota.Promote(ctx, cur, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		if isGate(err) {
			return nil, err
		}
		return nil, persistErr("feature "+string(kind), err)
	}

	s.afterCommit(ctx, func(ctx context.Context) {
		s.record(ctx, actor, next, mutation)
	})
	metrics.Mutations.WithLabelValues(string(kind), "feature").Inc()
	return s.decorate(next), nil
}

// Get returns one item with its derived bucket.
func (s *Service) Get(ctx context.Context, kind content.Kind, id string) (*content.Listed, error) {
	if _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	it, err := s.repo.Get(ctx, kind, id)
	if err != nil {
		return nil, persistErr("get "+string(kind), err)
	}
	return s.decorate(it), nil
}

// List returns the items of kind, newest first. Buckets are derived on
// every call so items move from upcoming to past without a write.
func (s *Service) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Listed, error) {
	if _, err := s.registry.Lookup(kind); err != nil {
		return nil, err
	}
	if f.Bucket != "" && f.Bucket != content.BucketUpcoming && f.Bucket != content.BucketPast {
		return nil, &content.ValidationError{Field: "bucket", Reason: fmt.Sprintf("unknown bucket %q", f.Bucket)}
	}
	items, err := s.repo.List(ctx, kind, content.Filter{Featured: f.Featured, Category: f.Category})
	if err != nil {
		return nil, persistErr("list "+string(kind), err)
	}
	out := make([]*content.Listed, 0, len(items))
	for _, it := range items {
		l := s.decorate(it)
		if f.Bucket != "" && l.Bucket != f.Bucket {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

// Upload stores a fresh asset under the kind's prefix. The asset stays
// unreferenced until a create or update includes it.
func (s *Service) Upload(ctx context.Context, kind content.Kind, filename string, r io.Reader, size int64, contentType string) (content.AssetRef, error) {
	cfg, err := s.registry.Lookup(kind)
	if err != nil {
		return content.AssetRef{}, err
	}
	if filename == "" {
		return content.AssetRef{}, &content.ValidationError{Field: "file", Reason: "required"}
	}
	key := assets.NewKey(cfg.Prefix, filename)
	ref, err := s.store.Put(ctx, cfg.Bucket, key, r, size, contentType)
	if err != nil {
		var aerr *content.AssetOperationError
		if errors.As(err, &aerr) {
			return content.AssetRef{}, err
		}
		return content.AssetRef{}, &content.AssetOperationError{Bucket: cfg.Bucket, Keys: []string{key}, Err: err}
	}
	return ref, nil
}

func (s *Service) decorate(it *content.Item) *content.Listed {
	l := &content.Listed{Item: it}
	if b, ok := s.classifier.Bucket(it); ok {
		up := b == content.BucketUpcoming
		l.Bucket = b
		l.IsUpcoming = &up
	}
	return l
}

// isGate reports errors that legitimately refuse a write before it happens.
func isGate(err error) bool {
	var qe *content.QuotaExceededError
	var ve *content.ValidationError
	var nf *content.NotFoundError
	var pe *content.PersistenceError
	return errors.As(err, &qe) || errors.As(err, &ve) || errors.As(err, &nf) || errors.As(err, &pe)
}

// afterCommit runs best-effort steps detached from the request's
// cancellation: the document is already written.
func (s *Service) afterCommit(ctx context.Context, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.bookkeeping)
	defer cancel()
	fn(ctx)
}

func (s *Service) reclaim(ctx context.Context, kind content.Kind, id string, prev, next []content.AssetRef) {
	res, err := s.reclaimer.Reclaim(ctx, id, prev, next)
	if n := len(res.Removed); n > 0 {
		metrics.AssetsReclaimed.WithLabelValues(string(kind)).Add(float64(n))
	}
	if err == nil {
		return
	}
	failed := make([]string, 0, len(res.Failed))
	for _, a := range res.Failed {
		failed = append(failed, a.ID())
	}
	metrics.AssetReclaimFailures.WithLabelValues(string(kind)).Add(float64(len(res.Failed)))
	logger.L().Warn().Err(err).
		Str("kind", string(kind)).
		Str("id", id).
		Strs("keys", failed).
		Msg("asset reclaim incomplete")
}

func (s *Service) record(ctx context.Context, actor string, it *content.Item, mutation string) {
	err := s.audit.Append(ctx, actor, it.Describe(), mutation)
	if err == nil {
		return
	}
	metrics.AuditFailures.Inc()
	logger.L().Error().Err(err).Dict("record", zerolog.Dict().
		Str("actor", actor).
		Str("kind", string(it.Kind)).
		Str("id", it.ID).
		Str("mutation", mutation)).
		Msg("audit append failed")
}
