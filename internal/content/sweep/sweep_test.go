package sweep

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/repository"
	"github.com/tribehub/tribehub/backend/content-service/pkg/metrics"
)

var now = time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)

func put(t *testing.T, s *assets.MemoryStore, at time.Time, bucket, key string) {
	t.Helper()
	s.SetClock(func() time.Time { return at })
	_, err := s.Put(context.Background(), bucket, key, strings.NewReader("x"), 1, "")
	require.NoError(t, err)
}

func TestSweepRemovesOldUnreferencedObjects(t *testing.T) {
	ctx := context.Background()
	store := assets.NewMemoryStore()
	repo := repository.NewMemoryRepo()

	old := now.Add(-48 * time.Hour)
	put(t, store, old, "assets", "gallery/kept.jpg")
	put(t, store, old, "assets", "gallery/orphan.jpg")
	put(t, store, now.Add(-time.Minute), "assets", "gallery/fresh.jpg")
	put(t, store, old, "assets", "slider/other-kind.jpg")

	_, err := repo.Insert(ctx, &content.Item{Kind: content.KindGallery, Body: content.Body{Gallery: &content.Gallery{
		Images: []content.AssetRef{{Bucket: "assets", Key: "gallery/kept.jpg"}},
	}}})
	require.NoError(t, err)

	before := testutil.ToFloat64(metrics.SweepRemoved.WithLabelValues("gallery"))
	sw := New(content.DefaultRegistry(), repo, store, Options{Grace: time.Hour, Now: func() time.Time { return now }})
	rep, err := sw.Kind(ctx, content.DefaultRegistry()[content.KindGallery])
	require.NoError(t, err)

	assert.Equal(t, 3, rep.Scanned)
	assert.Equal(t, 1, rep.Young)
	assert.Equal(t, []string{"gallery/orphan.jpg"}, rep.Removed)
	assert.Equal(t, []string{"gallery/fresh.jpg", "gallery/kept.jpg"}, store.Keys("assets", "gallery/"))
	assert.True(t, store.Has("assets", "slider/other-kind.jpg"))
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.SweepRemoved.WithLabelValues("gallery")))
}

func TestSweepDryRun(t *testing.T) {
	store := assets.NewMemoryStore()
	put(t, store, now.Add(-48*time.Hour), "events", "posters/lost.png")

	sw := New(content.DefaultRegistry(), repository.NewMemoryRepo(), store, Options{DryRun: true, Now: func() time.Time { return now }})
	reports, err := sw.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, len(content.Kinds))

	var found bool
	for _, r := range reports {
		if r.Kind == content.KindEvent {
			found = true
			assert.Equal(t, []string{"posters/lost.png"}, r.Removed)
		}
	}
	assert.True(t, found)
	assert.True(t, store.Has("events", "posters/lost.png"))
}

func TestSweepReportsFailures(t *testing.T) {
	store := assets.NewMemoryStore()
	put(t, store, now.Add(-48*time.Hour), "partners", "logos/a.png")
	put(t, store, now.Add(-48*time.Hour), "partners", "logos/b.png")
	store.FailRemoval("partners", "logos/a.png", true)

	sw := New(content.DefaultRegistry(), repository.NewMemoryRepo(), store, Options{Now: func() time.Time { return now }})
	rep, err := sw.Kind(context.Background(), content.DefaultRegistry()[content.KindPartner])
	var aerr *content.AssetOperationError
	require.ErrorAs(t, err, &aerr)
	assert.Equal(t, []string{"logos/a.png"}, rep.Failed)
	assert.Equal(t, []string{"logos/b.png"}, rep.Removed)
}
