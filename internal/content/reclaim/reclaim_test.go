package reclaim

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
)

func ref(key string) content.AssetRef {
	return content.AssetRef{Bucket: "assets", Key: key, URL: "https://cdn/assets/" + key}
}

func keys(refs []content.AssetRef) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, r.Key)
	}
	return out
}

func TestOrphansIsSetDifference(t *testing.T) {
	prev := []content.AssetRef{ref("gallery/a"), ref("gallery/b"), ref("gallery/c")}
	next := []content.AssetRef{ref("gallery/c"), ref("gallery/b"), ref("gallery/d")}
	assert.Equal(t, []string{"gallery/a"}, keys(Orphans(prev, next)))

	// reorder only
	assert.Empty(t, Orphans(prev, []content.AssetRef{ref("gallery/c"), ref("gallery/a"), ref("gallery/b")}))

	// full delete
	assert.Equal(t, []string{"gallery/a", "gallery/b", "gallery/c"}, keys(Orphans(prev, nil)))
}

func TestOrphansIgnoresURLDifferences(t *testing.T) {
	prev := []content.AssetRef{{Bucket: "events", Key: "posters/a.png", URL: "https://cdn/events/posters/a.png?v=1"}}
	next := []content.AssetRef{{Bucket: "events", Key: "posters/a.png", URL: "https://cdn/events/posters/a.png?v=2"}}
	assert.Empty(t, Orphans(prev, next))

	// same-looking URL, different key: still an orphan
	next = []content.AssetRef{{Bucket: "events", Key: "posters/other.png", URL: "https://cdn/events/posters/a.png?v=1"}}
	assert.Len(t, Orphans(prev, next), 1)
}

func TestOrphansDeduplicates(t *testing.T) {
	prev := []content.AssetRef{ref("gallery/a"), ref("gallery/a")}
	assert.Len(t, Orphans(prev, nil), 1)
}

func seed(t *testing.T, s *assets.MemoryStore, ks ...string) {
	t.Helper()
	for _, k := range ks {
		_, err := s.Put(context.Background(), "assets", k, strings.NewReader("x"), 1, "")
		require.NoError(t, err)
	}
}

func TestReclaimRemovesOnlyOrphans(t *testing.T) {
	s := assets.NewMemoryStore()
	seed(t, s, "gallery/a", "gallery/b", "gallery/c", "gallery/d")
	r := New(s, nil)

	res, err := r.Reclaim(context.Background(), "g1",
		[]content.AssetRef{ref("gallery/a"), ref("gallery/b"), ref("gallery/c")},
		[]content.AssetRef{ref("gallery/b"), ref("gallery/c"), ref("gallery/d")})
	require.NoError(t, err)
	assert.Equal(t, []string{"gallery/a"}, keys(res.Removed))
	assert.Equal(t, []string{"gallery/b", "gallery/c", "gallery/d"}, s.Keys("assets", "gallery/"))
}

type fakeRefs struct {
	shared map[string]bool
	err    error
	except []string
}

func (f *fakeRefs) ReferencedKeys(ctx context.Context, bucket string, keys []string, exceptID string) (map[string]bool, error) {
	f.except = append(f.except, exceptID)
	return f.shared, f.err
}

func TestReclaimKeepsKeysReferencedElsewhere(t *testing.T) {
	s := assets.NewMemoryStore()
	seed(t, s, "gallery/a", "gallery/b")
	r := New(s, &fakeRefs{shared: map[string]bool{"gallery/a": true}})

	res, err := r.Reclaim(context.Background(), "g1", []content.AssetRef{ref("gallery/a"), ref("gallery/b")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"gallery/b"}, keys(res.Removed))
	assert.Equal(t, []string{"gallery/a"}, keys(res.Shared))
	assert.True(t, s.Has("assets", "gallery/a"))
}

func TestReclaimChecksTheItemsOwnCurrentDocument(t *testing.T) {
	s := assets.NewMemoryStore()
	seed(t, s, "gallery/a")
	refs := &fakeRefs{shared: map[string]bool{"gallery/a": true}}
	r := New(s, refs)

	// g1 itself points at gallery/a again after a concurrent update
	res, err := r.Reclaim(context.Background(), "g1", []content.AssetRef{ref("gallery/a")}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, refs.except)
	assert.Empty(t, res.Removed)
	assert.True(t, s.Has("assets", "gallery/a"))
}

func TestReclaimSkipsRemovalWhenReferenceCheckFails(t *testing.T) {
	s := assets.NewMemoryStore()
	seed(t, s, "gallery/a")
	r := New(s, &fakeRefs{err: errors.New("mongo down")})

	res, err := r.Reclaim(context.Background(), "g1", []content.AssetRef{ref("gallery/a")}, nil)
	var aerr *content.AssetOperationError
	require.ErrorAs(t, err, &aerr)
	assert.Len(t, res.Failed, 1)
	assert.True(t, s.Has("assets", "gallery/a"))
}

func TestReclaimReportsPartialFailure(t *testing.T) {
	s := assets.NewMemoryStore()
	seed(t, s, "gallery/a", "gallery/b")
	s.FailRemoval("assets", "gallery/a", true)
	r := New(s, nil)

	res, err := r.Reclaim(context.Background(), "g1", []content.AssetRef{ref("gallery/a"), ref("gallery/b")}, nil)
	var aerr *content.AssetOperationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, []string{"gallery/a"}, aerr.Keys)
	assert.Equal(t, []string{"gallery/b"}, keys(res.Removed))
	assert.Equal(t, []string{"gallery/a"}, keys(res.Failed))
}

func TestReclaimGroupsByBucket(t *testing.T) {
	s := assets.NewMemoryStore()
	_, _ = s.Put(context.Background(), "events", "posters/a", strings.NewReader("x"), 1, "")
	seed(t, s, "gallery/a")
	r := New(s, nil)

	res, err := r.Reclaim(context.Background(), "x",
		[]content.AssetRef{{Bucket: "events", Key: "posters/a"}, ref("gallery/a")}, nil)
	require.NoError(t, err)
	assert.Len(t, res.Removed, 2)
	assert.ElementsMatch(t, []string{"events/posters/a", "assets/gallery/a"}, s.Removed())
}
