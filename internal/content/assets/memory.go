package assets

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// MemoryStore keeps objects in memory. It records every removed key so tests
// can assert on reclaim behaviour, and can be told to fail specific keys.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]memObject
	removed []string
	failing map[string]bool
	now     func() time.Time
}

type memObject struct {
	data     []byte
	modified time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: map[string]memObject{}, failing: map[string]bool{}, now: time.Now}
}

func id(bucket, key string) string { return bucket + "/" + key }

func (m *MemoryStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (content.AssetRef, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return content.AssetRef{}, &content.AssetOperationError{Bucket: bucket, Keys: []string{key}, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id(bucket, key)] = memObject{data: b, modified: m.now()}
	return content.AssetRef{Bucket: bucket, Key: key, URL: "mem://" + id(bucket, key)}, nil
}

func (m *MemoryStore) Remove(ctx context.Context, bucket string, keys []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var failed []string
	for _, k := range keys {
		oid := id(bucket, k)
		if m.failing[oid] {
			failed = append(failed, k)
			continue
		}
		if _, ok := m.objects[oid]; !ok {
			logger.Debugf("asset %s already gone", oid)
			continue
		}
		delete(m.objects, oid)
		m.removed = append(m.removed, oid)
	}
	if len(failed) > 0 {
		return &content.AssetOperationError{Bucket: bucket, Keys: failed, Err: errors.New("injected failure")}
	}
	return nil
}

func (m *MemoryStore) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Object
	for oid, o := range m.objects {
		key, ok := strings.CutPrefix(oid, bucket+"/")
		if !ok || !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, Object{Key: key, LastModified: o.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Has reports whether the object exists.
func (m *MemoryStore) Has(bucket, key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[id(bucket, key)]
	return ok
}

// Removed returns "bucket/key" for every object actually deleted, in order.
func (m *MemoryStore) Removed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.removed...)
}

// Keys returns the keys present in bucket under prefix.
func (m *MemoryStore) Keys(bucket, prefix string) []string {
	objs, _ := m.List(context.Background(), bucket, prefix)
	out := make([]string, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.Key)
	}
	return out
}

// FailRemoval makes Remove fail for the given key until cleared.
func (m *MemoryStore) FailRemoval(bucket, key string, fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fail {
		m.failing[id(bucket, key)] = true
		return
	}
	delete(m.failing, id(bucket, key))
}

// SetClock overrides the modification timestamps given to new objects.
func (m *MemoryStore) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}
