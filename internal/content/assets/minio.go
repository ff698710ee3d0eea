package assets

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/tribehub/tribehub/backend/content-service/internal/content"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// MinIOConfig holds MinIO connection configuration
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	// PublicURL is the base of public asset URLs; defaults to the endpoint.
	PublicURL string
}

// MinIOStore is a thin wrapper around the minio client.
type MinIOStore struct {
	client    *minio.Client
	publicURL string
}

// NewMinIOStore creates a MinIO client and makes sure every bucket exists.
func NewMinIOStore(cfg *MinIOConfig, buckets []string) (*MinIOStore, error) {
	if cfg == nil || cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio config missing")
	}
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio new: %w", err)
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		public = scheme + "://" + cfg.Endpoint
	}
	s := &MinIOStore{client: mc, publicURL: public}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, b := range buckets {
		if err := mc.MakeBucket(ctx, b, minio.MakeBucketOptions{}); err != nil {
			// ignore "already exists" style errors
			exist, xerr := mc.BucketExists(ctx, b)
			if xerr != nil || !exist {
				return nil, fmt.Errorf("minio bucket ensure %s: %w", b, err)
			}
		}
	}
	return s, nil
}

// URL returns the public address of an object.
func (s *MinIOStore) URL(bucket, key string) string {
	return s.publicURL + "/" + bucket + "/" + key
}

func (s *MinIOStore) Put(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) (content.AssetRef, error) {
	_, err := s.client.PutObject(ctx, bucket, key, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return content.AssetRef{}, &content.AssetOperationError{Bucket: bucket, Keys: []string{key}, Err: err}
	}
	return content.AssetRef{Bucket: bucket, Key: key, URL: s.URL(bucket, key)}, nil
}

func (s *MinIOStore) Remove(ctx context.Context, bucket string, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	objects := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- minio.ObjectInfo{Key: k}
	}
	close(objects)

	var failed []string
	var firstErr error
	for rerr := range s.client.RemoveObjects(ctx, bucket, objects, minio.RemoveObjectsOptions{}) {
		if minio.ToErrorResponse(rerr.Err).Code == "NoSuchKey" {
			logger.Debugf("asset %s/%s already gone", bucket, rerr.ObjectName)
			continue
		}
		failed = append(failed, rerr.ObjectName)
		if firstErr == nil {
			firstErr = rerr.Err
		}
		logger.Warnf("remove %s/%s failed: %v", bucket, rerr.ObjectName, rerr.Err)
	}
	if len(failed) > 0 {
		return &content.AssetOperationError{Bucket: bucket, Keys: failed, Err: firstErr}
	}
	return nil
}

func (s *MinIOStore) List(ctx context.Context, bucket, prefix string) ([]Object, error) {
	var out []Object
	for obj := range s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		out = append(out, Object{Key: obj.Key, LastModified: obj.LastModified})
	}
	return out, nil
}
