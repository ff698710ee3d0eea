package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

// MemoryRepo is an in-memory repository used by unit tests and by the
// standalone service when no MongoDB is configured.
type MemoryRepo struct {
	mu    sync.RWMutex
	seq   int
	store map[string]*content.Item
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[string]*content.Item), now: time.Now}
}

func (m *MemoryRepo) Insert(ctx context.Context, it *content.Item) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doc := it.Clone()
	content.Normalize(&doc.Body)
	m.seq++
	doc.ID = fmt.Sprintf("%s_%06d", doc.Kind, m.seq)
	doc.Assets = doc.Body.Assets()
	doc.CreatedAt = m.now().UTC()
	doc.UpdatedAt = doc.CreatedAt
	m.store[doc.ID] = doc
	return doc.Clone(), nil
}

func (m *MemoryRepo) Get(ctx context.Context, kind content.Kind, id string) (*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.store[id]
	if !ok || d.Kind != kind {
		return nil, notFound(kind, id)
	}
	return d.Clone(), nil
}

func (m *MemoryRepo) List(ctx context.Context, kind content.Kind, f content.Filter) ([]*content.Item, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*content.Item, 0, len(m.store))
	for _, d := range m.store {
		if d.Kind != kind {
			continue
		}
		if f.Featured != nil && d.Featured != *f.Featured {
			continue
		}
		if f.Category != "" && !strings.EqualFold(d.Category(), f.Category) {
			continue
		}
		out = append(out, d.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) Update(ctx context.Context, kind content.Kind, id string, p content.Patch) (*content.Item, *content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok || d.Kind != kind {
		return nil, nil, notFound(kind, id)
	}
	prev := d.Clone()
	if p.Body != nil {
		b := p.Body.Clone()
		content.Normalize(&b)
		p.Body = &b
	}
	p.Apply(d)
	d.UpdatedAt = m.now().UTC()
	return prev, d.Clone(), nil
}

func (m *MemoryRepo) Delete(ctx context.Context, kind content.Kind, id string) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.store[id]
	if !ok || d.Kind != kind {
		return nil, notFound(kind, id)
	}
	delete(m.store, id)
	return d, nil
}

func (m *MemoryRepo) ReferencedKeys(ctx context.Context, bucket string, keys []string, exceptID string) (map[string]bool, error) {
	want := make(map[string]bool, len(keys))
	for _, k := range keys {
		want[k] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]bool{}
	for id, d := range m.store {
		if id == exceptID {
			continue
		}
		for _, a := range d.Assets {
			if a.Bucket == bucket && want[a.Key] {
				out[a.Key] = true
			}
		}
	}
	return out, nil
}

func (m *MemoryRepo) KeysUnder(ctx context.Context, bucket, prefix string) (map[string]bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := map[string]bool{}
	for _, d := range m.store {
		for _, a := range d.Assets {
			if a.Bucket == bucket && strings.HasPrefix(a.Key, prefix) {
				out[a.Key] = true
			}
		}
	}
	return out, nil
}
