// Command content runs the content API with every store in memory. It is
// for local development and integration tests: nothing survives a restart.
package main

import (
	"context"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/tribehub/tribehub/backend/content-service/handlers"
	"github.com/tribehub/tribehub/backend/content-service/internal/app"
	"github.com/tribehub/tribehub/backend/content-service/internal/config"
	"github.com/tribehub/tribehub/backend/content-service/internal/oidc"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
	"github.com/tribehub/tribehub/backend/content-service/pkg/middleware"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))

	port := os.Getenv("CONTENT_SERVICE_PORT")
	if port == "" {
		port = "5010"
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	cfg.MongoDB.URI = ""
	cfg.MinIO.Endpoint = ""

	rt, err := app.Build(context.Background(), cfg, app.Options{})
	if err != nil {
		logger.Fatalf("failed to start: %v", err)
	}
	defer func() { _ = rt.Close(context.Background()) }()

	ver := rt.Verifier
	if ver == nil {
		logger.Warn("no verifier configured: accepting unsigned tokens")
		ver = oidc.NewInsecureVerifier()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "healthy") })
	handlers.RegisterSwagger(r)
	handlers.NewContentHandler(rt.Service,
		middleware.AuthMiddleware(ver),
		middleware.ActorMiddleware(rt.Operators),
	).Register(r.Group("/api/v1"))

	logger.Infof("content service (memory) listening on :%s", port)
	if err := r.Run(":" + port); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}
