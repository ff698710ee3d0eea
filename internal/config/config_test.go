package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/testdb")
	t.Setenv("MONGODB_DATABASE", "tribehub_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")
	t.Setenv("JWT_SECRET", "testsecret123456789012345678901234")
	t.Setenv("OPERATOR_EMAILS", "ops@tribehub.org, admin@tribehub.org ,")
	t.Setenv("QUOTA_EVENT_UPCOMING", "4")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mongodb://localhost:27017/testdb", cfg.MongoDB.URI)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	assert.Equal(t, []string{"ops@tribehub.org", "admin@tribehub.org"}, cfg.Operators.Emails)
	assert.Equal(t, 24*time.Hour, cfg.Sweep.Grace)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, 4, reg[content.KindEvent].Quota[content.BucketUpcoming])
	assert.Equal(t, 3, reg[content.KindEvent].Quota[content.BucketPast])
	assert.Equal(t, "events", reg[content.KindEvent].Bucket)
	assert.ElementsMatch(t, []string{"events", "partners", "community", "assets"}, cfg.Buckets())
}

func TestLoadConfigMongoOptional(t *testing.T) {
	t.Setenv("MONGODB_URI", "")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Empty(t, cfg.MongoDB.URI)
}

func TestLoadConfigRejectsNegativeQuota(t *testing.T) {
	t.Setenv("QUOTA_EVENT_PAST", "-1")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsOverlappingPrefixes(t *testing.T) {
	t.Setenv("CONTENT_SLIDER_PREFIX", "gallery/")
	_, err := LoadConfig()
	require.Error(t, err)
}

func TestBucketsMatchRegistry(t *testing.T) {
	t.Setenv("CONTENT_EVENT_BUCKET", "  events-prod ")
	cfg, err := LoadConfig()
	require.NoError(t, err)

	reg, err := cfg.Registry()
	require.NoError(t, err)
	assert.Equal(t, "events-prod", reg[content.KindEvent].Bucket)
	assert.Contains(t, cfg.Buckets(), "events-prod")
	assert.NotContains(t, cfg.Buckets(), "  events-prod ")
}

func TestLoadConfigTimezone(t *testing.T) {
	t.Setenv("SCHEDULE_TIMEZONE", "Europe/Berlin")
	cfg, err := LoadConfig()
	require.NoError(t, err)
	loc, err := cfg.Location()
	require.NoError(t, err)
	assert.Equal(t, "Europe/Berlin", loc.String())

	t.Setenv("SCHEDULE_TIMEZONE", "Mars/Olympus")
	_, err = LoadConfig()
	require.Error(t, err)
}
