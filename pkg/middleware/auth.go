package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tribehub/tribehub/backend/content-service/internal/operators"
	"github.com/tribehub/tribehub/backend/content-service/pkg/logger"
)

// Token is minimal interface for a verified token that can expose claims
type Token interface {
	Claims(v interface{}) error
}

// Verifier is the minimal interface the middleware depends on
type Verifier interface {
	Verify(ctx context.Context, raw string) (Token, error)
}

// Context keys set by the middlewares in this package.
const (
	ClaimsKey = "claims"
	ActorKey  = "actor"
)

// AuthMiddleware returns a Gin middleware that verifies Bearer tokens using the provided verifier
func AuthMiddleware(ver Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if auth == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing Authorization header"})
			return
		}
		scheme, token, ok := strings.Cut(auth, " ")
		token = strings.TrimSpace(token)
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid Authorization header"})
			return
		}

		idToken, err := ver.Verify(c.Request.Context(), token)
		if err != nil {
			logger.Debugf("token rejected: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var claims map[string]interface{}
		if err := idToken.Claims(&claims); err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "failed to parse claims"})
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ActorMiddleware admits only authorized operators and stores their e-mail
// under ActorKey. It must run after AuthMiddleware.
func ActorMiddleware(ops *operators.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cm, _ := c.Get(ClaimsKey)
		claims, _ := cm.(map[string]interface{})
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing identity"})
			return
		}
		op, err := ops.AuthorizeClaims(c.Request.Context(), claims)
		switch {
		case errors.Is(err, operators.ErrNotOperator):
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not an authorized operator"})
			return
		case err != nil:
			logger.Errorf("operator lookup failed: %v", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "operator lookup unavailable"})
			return
		}
		c.Set(ActorKey, op.Email)
		c.Next()
	}
}

// Actor returns the operator set by ActorMiddleware, or "".
func Actor(c *gin.Context) string {
	return c.GetString(ActorKey)
}

// rateKey prefers the operator, then the token subject, then the client IP.
func rateKey(c *gin.Context) string {
	if a := Actor(c); a != "" {
		return "actor:" + a
	}
	if v, ok := c.Get(ClaimsKey); ok {
		if cm, ok2 := v.(map[string]interface{}); ok2 {
			if sub, ok3 := cm["sub"].(string); ok3 && sub != "" {
				return "sub:" + sub
			}
		}
	}
	ip := c.ClientIP()
	if ip == "" {
		ip = "unknown"
	}
	return "ip:" + ip
}
