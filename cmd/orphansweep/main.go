// Command orphansweep removes stored assets that no content item references.
// It is meant to run as a periodic job next to the content service.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/app"
	"github.com/tribehub/tribehub/backend/content-service/internal/config"
	"github.com/tribehub/tribehub/backend/content-service/internal/content/sweep"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Init(os.Getenv("LOG_LEVEL"))
		logger.Fatalf("failed to load config: %v", err)
	}

	dryRun := flag.Bool("dry-run", cfg.Sweep.DryRun, "report orphans without removing them")
	grace := flag.Duration("grace", cfg.Sweep.Grace, "skip objects modified more recently than this")
	level := flag.String("log-level", os.Getenv("LOG_LEVEL"), "debug|info|warn|error")
	flag.Parse()
	logger.Init(*level)

	if cfg.MongoDB.URI == "" || cfg.MinIO.Endpoint == "" {
		logger.Fatalf("orphansweep needs MONGODB_URI and MINIO_ENDPOINT")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := app.Build(ctx, cfg, app.Options{MongoAttempts: 3, SkipIdentity: true})
	if err != nil {
		logger.Fatalf("failed to start: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	reg, _ := cfg.Registry()
	sw := sweep.New(reg, rt.Repo, rt.Store, sweep.Options{Grace: *grace, DryRun: *dryRun, Now: time.Now})
	reports, err := sw.Run(ctx)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(reports)
	if err != nil {
		logger.Errorf("sweep finished with errors: %v", err)
		os.Exit(1)
	}
}
