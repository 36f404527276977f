package v1

import (
	"context"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	logicv1 "github.com/duynhne/smartbrain-service/internal/logic/v1"
	"github.com/duynhne/smartbrain-service/middleware"
	pkgzerolog "github.com/duynhne/smartbrain-service/pkg/logger/zerolog"
)

// AuthorizationHeader carries the raw session token, without a scheme prefix.
const AuthorizationHeader = "Authorization"

type userIDContextKey struct{}

// UserIDFromContext returns the user id the session gate admitted the request for.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	return id, ok && id != ""
}

func sessionToken(c *gin.Context) string {
	return strings.TrimSpace(c.GetHeader(AuthorizationHeader))
}

// RequireSession admits a request only when its Authorization header names a
// live session. A missing header is rejected without touching the store, and a
// store outage is reported as 503 rather than 401. There is one lookup per
// request and no retry.
func (h *Handler) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			writeError(c, fmt.Errorf("session gate: missing authorization header: %w", logicv1.ErrUnauthorized))
			return
		}

		userID, err := h.auth.ResolveSession(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			return
		}

		c.Set(middleware.UserIDKey, userID)

		ctx := context.WithValue(c.Request.Context(), userIDContextKey{}, userID)
		logger := pkgzerolog.FromContext(ctx).With().Str("user_id", userID).Logger()
		c.Request = c.Request.WithContext(logger.WithContext(ctx))

		c.Next()
	}
}
