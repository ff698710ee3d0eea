// Command devtoken mints an operator token signed with JWT_SECRET for
// local development against the content API. It refuses addresses that
// are not on the operator allowlist.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/tribehub/tribehub/backend/content-service/internal/config"
	"github.com/tribehub/tribehub/backend/content-service/internal/database"
	"github.com/tribehub/tribehub/backend/content-service/internal/operators"
	"github.com/tribehub/tribehub/backend/content-service/internal/tokens"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}

	email := flag.String("email", "", "operator e-mail (must be on the allowlist)")
	name := flag.String("name", "", "display name")
	ttl := flag.Duration("ttl", cfg.JWT.AccessTokenTTL, "token lifetime")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: devtoken -email ops@example.org [-name N] [-ttl 1h]")
		os.Exit(2)
	}
	if cfg.JWT.Secret == "" {
		logger.Fatalf("JWT_SECRET is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var repo operators.OperatorRepository
	if cfg.MongoDB.URI != "" {
		client, err := database.ConnectMongo(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout)
		if err != nil {
			logger.Fatalf("operator lookup: %v", err)
		}
		defer func() { _ = client.Disconnect(context.Background()) }()
		repo = operators.NewMongoOperatorRepository(client.Database(cfg.MongoDB.Database).Collection(operators.Collection))
	}
	ok, err := operators.NewService(cfg.Operators.Emails, repo).IsAuthorized(ctx, *email)
	if err != nil {
		logger.Fatalf("operator lookup: %v", err)
	}
	if !ok {
		logger.Fatalf("%s is not an operator: add it to OPERATOR_EMAILS or %s", *email, operators.Collection)
	}

	tok, err := tokens.IssueOperatorToken(cfg.JWT.Secret, *email, *name, *ttl)
	if err != nil {
		logger.Fatalf("issue token: %v", err)
	}
	fmt.Println(tok)
}
