package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

func TestMutationName(t *testing.T) {
	assert.Equal(t, "EVENT_CREATE", MutationName(content.KindEvent, "CREATE"))
	assert.Equal(t, "GALLERY_DELETE", MutationName(content.KindGallery, "DELETE"))
}

func TestMemoryRecorderAppends(t *testing.T) {
	r := NewMemoryRecorder()
	r.now = func() time.Time { return time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC) }

	require.NoError(t, r.Append(context.Background(), "ops@tribehub.org", "JAM NIGHT", "EVENT_CREATE"))
	require.NoError(t, r.Append(context.Background(), "ops@tribehub.org", "JAM NIGHT", FeatureSet))

	recs := r.Records()
	require.Len(t, recs, 2)
	assert.Equal(t, FeatureSet, recs[1].MutationType)

	// the returned slice is a copy
	recs[0].Target = "changed"
	assert.Equal(t, "JAM NIGHT", r.Records()[0].Target)
}

func TestMemoryRecorderFailure(t *testing.T) {
	r := NewMemoryRecorder()
	r.FailWith(errors.New("disk full"))

	err := r.Append(context.Background(), "ops@tribehub.org", "x", "EVENT_UPDATE")
	var aerr *content.AuditWriteError
	require.ErrorAs(t, err, &aerr)
	assert.Empty(t, r.Records())

	r.FailWith(nil)
	require.NoError(t, r.Append(context.Background(), "ops@tribehub.org", "x", "EVENT_UPDATE"))
}

func TestRecordJSONShape(t *testing.T) {
	b, err := json.Marshal(Record{ActorID: "a@b.c", Target: "t", MutationType: FeatureUnset, Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"actorId":"a@b.c","target":"t","mutationType":"FEATURE_UNSET","timestamp":"2026-01-02T03:04:05Z"}`, string(b))
}
