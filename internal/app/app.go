// Package app assembles the content service from configuration. Every
// backing service is optional: without MongoDB, MinIO or Redis the
// matching in-memory implementation is used and a warning is logged.
package app

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/tribehub/tribehub/backend/content-service/internal/config"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/assets"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/audit"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/quota"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/repository"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/schedule"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/service"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/sweep"
	"github.com/tribehub/tribehub/backend/content-service/internal/database"
	"github.com/tribehub/tribehub/backend/content-service/internal/oidc"
	"github.com/tribehub/tribehub/backend/content-service/internal/operators"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
	"github.com/tribehub/tribehub/backend/content-service/pkg/middleware"
)

// ContentCollection holds every content item.
const ContentCollection = "content"

// Runtime is the wired application.
type Runtime struct {
	Config    *config.Config
	Service   *service.Service
	Repo      repository.Repository
	Store     sweep.Store
	Operators *operators.Service
	// Verifier is nil when no identity provider is configured.
	Verifier middleware.Verifier
	Redis    *redis.Client
	Mongo    *mongo.Client

	closers []func(context.Context) error
}

// Options tune Build for the different binaries.
type Options struct {
	// MongoAttempts is how often to retry the initial MongoDB connection.
	MongoAttempts int
	// SkipIdentity leaves Verifier nil; offline tools do not authenticate.
	SkipIdentity bool
}

// Build connects to whatever cfg configures and wires the service.
func Build(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	reg, err := cfg.Registry()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Config: cfg}

	if cfg.Redis.Host != "" {
		rc := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr(), Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		perr := rc.Ping(pctx).Err()
		cancel()
		if perr != nil {
			logger.Warnf("redis %s unreachable, promotions lock in-process only: %v", cfg.Redis.Addr(), perr)
			_ = rc.Close()
		} else {
			rt.Redis = rc
			rt.closers = append(rt.closers, func(context.Context) error { return rc.Close() })
			logger.Infof("connected to Redis: %s", cfg.Redis.Addr())
		}
	}

	var (
		auditRec audit.Recorder
		opsRepo  operators.OperatorRepository
	)
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, opts.MongoAttempts)
		if err != nil {
			rt.Close(ctx)
			return nil, err
		}
		rt.Mongo = client
		rt.closers = append(rt.closers, client.Disconnect)
		db := client.Database(cfg.MongoDB.Database)
		rt.Repo = repository.NewMongoRepo(db.Collection(ContentCollection))
		auditRec = audit.NewMongoRecorder(db)
		opsRepo = operators.NewMongoOperatorRepository(db.Collection(operators.Collection))
		logger.Infof("using MongoDB database %q", cfg.MongoDB.Database)
	} else {
		logger.Warn("MONGODB_URI not set: content and audit records are kept in memory")
		rt.Repo = repository.NewMemoryRepo()
		auditRec = audit.NewMemoryRecorder()
	}
	rt.Operators = operators.NewService(cfg.Operators.Emails, opsRepo)

	if cfg.MinIO.Endpoint != "" {
		st, err := assets.NewMinIOStore(&assets.MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			UseSSL:    cfg.MinIO.UseSSL,
			PublicURL: cfg.MinIO.PublicURL,
		}, cfg.Buckets())
		if err != nil {
			rt.Close(ctx)
			return nil, err
		}
		rt.Store = st
	} else {
		logger.Warn("MINIO_ENDPOINT not set: assets are kept in memory")
		rt.Store = assets.NewMemoryStore()
	}

	var locker quota.Locker
	if rt.Redis != nil {
		locker = quota.NewRedisLocker(rt.Redis, cfg.Quota.LockTTL)
	}
	rt.Service, err = service.New(service.Deps{
		Registry:   reg,
		Repo:       rt.Repo,
		Assets:     rt.Store,
		Audit:      auditRec,
		Classifier: schedule.New(loc),
		Locker:     locker,
	})
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}

	if !opts.SkipIdentity {
		rt.Verifier = buildVerifier(ctx, cfg)
	}
	return rt, nil
}

func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	var chain oidc.Chain
	if cfg.Keycloak.URL != "" {
		v, err := oidc.NewKeycloakVerifier(ctx, cfg.Keycloak)
		if err != nil {
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		} else {
			chain = append(chain, v)
		}
	}
	if cfg.JWT.Secret != "" {
		chain = append(chain, oidc.NewHMACVerifier(cfg.JWT.Secret))
	}
	if cfg.JWT.AllowInsecure {
		logger.Warn("enabling insecure token verifier (integration mode)")
		chain = append(chain, oidc.NewInsecureVerifier())
	}
	switch len(chain) {
	case 0:
		return nil
	case 1:
		return chain[0]
	}
	return chain
}

// Ready reports the health of each backing service.
func (rt *Runtime) Ready(ctx context.Context) map[string]bool {
	deps := map[string]bool{"mongo": true, "redis": true, "oidc": true}
	if rt.Mongo != nil {
		deps["mongo"] = rt.Mongo.Ping(ctx, nil) == nil
	}
	if rt.Redis != nil {
		deps["redis"] = rt.Redis.Ping(ctx).Err() == nil
	}
	deps["oidc"] = rt.Verifier != nil
	return deps
}

// Close releases connections in reverse order of opening.
func (rt *Runtime) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i](ctx))
	}
	rt.closers = nil
	return errors.Join(errs...)
}
