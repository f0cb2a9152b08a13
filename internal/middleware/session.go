package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/session"
)

const (
	// ContextKeyIdentity is the Gin context key for the session identity.
	ContextKeyIdentity = "identity"
	// ContextKeyToken is the Gin context key for the raw session token.
	ContextKeyToken = "session_token"

	contextKeyAuthFailure = "auth_failure"
)

// SessionResolver looks up the identity behind a session token.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*model.Identity, error)
}

// ResolveSession attaches the session identity to the request when a valid
// token is present. Requests without one continue anonymously; Guard decides
// what anonymous callers may see.
func ResolveSession(store SessionResolver, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.Set(contextKeyAuthFailure, response.ErrTokenRequired)
			c.Next()
			return
		}

		identity, err := store.Current(c.Request.Context(), token)
		switch {
		case err == nil:
			c.Set(ContextKeyIdentity, identity)
			c.Set(ContextKeyToken, token)
		case errors.Is(err, session.ErrNoSession):
			c.Set(contextKeyAuthFailure, response.ErrSessionInvalidated)
		case errors.Is(err, session.ErrInvalidToken):
			c.Set(contextKeyAuthFailure, response.ErrTokenInvalid)
		default:
			log.Error().Err(err).Msg("Resolve session error")
			c.Set(contextKeyAuthFailure, response.ErrSessionInvalidated)
		}
		c.Next()
	}
}

// GetIdentity retrieves the session identity from the Gin context.
func GetIdentity(c *gin.Context) *model.Identity {
	val, exists := c.Get(ContextKeyIdentity)
	if !exists {
		return nil
	}
	identity, ok := val.(*model.Identity)
	if !ok {
		return nil
	}
	return identity
}

// GetToken retrieves the raw session token from the Gin context.
func GetToken(c *gin.Context) string {
	return c.GetString(ContextKeyToken)
}

func authFailure(c *gin.Context) response.ErrCode {
	if v, ok := c.Get(contextKeyAuthFailure); ok {
		if code, ok := v.(response.ErrCode); ok {
			return code
		}
	}
	return response.ErrTokenRequired
}

func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// Fallback for WebSocket upgrades which cannot send headers
	return c.Query("token")
}
