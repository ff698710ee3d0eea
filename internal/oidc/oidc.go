package oidc

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/tribehub/tribehub/backend/content-service/internal/config"
	"github.com/tribehub/tribehub/backend/content-service/pkg/middleware"
)

// Verifier wraps the OIDC provider and token verifier
type Verifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewVerifier creates a new OIDC verifier for the given issuer and client ID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: clientID})
	return &Verifier{provider: provider, verifier: verifier}, nil
}

// NewKeycloakVerifier discovers the realm issuer, falling back to the bare
// URL for deployments that already include the realm path.
func NewKeycloakVerifier(ctx context.Context, kc config.KeycloakConfig) (*Verifier, error) {
	if kc.URL == "" || kc.ClientID == "" {
		return nil, fmt.Errorf("keycloak: url and client id are required")
	}
	if kc.Realm != "" {
		issuer := strings.TrimRight(kc.URL, "/") + "/realms/" + kc.Realm
		v, err := NewVerifier(ctx, issuer, kc.ClientID)
		if err == nil {
			return v, nil
		}
		if !strings.Contains(kc.URL, "/realms/") {
			return nil, err
		}
	}
	return NewVerifier(ctx, kc.URL, kc.ClientID)
}

// Verify verifies the provided raw ID token using the provided context and returns a middleware.Token
func (v *Verifier) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, err
	}
	return idToken, nil
}
