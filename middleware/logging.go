package middleware

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const TraceIDHeader = "X-Trace-ID"
const TraceParentHeader = "traceparent"

// UserIDKey is the gin context key under which the session gate stores the caller's user id.
const UserIDKey = "user_id"

// GetTraceID extracts trace-id from request headers or generates a new one
func GetTraceID(c *gin.Context) string {
	// W3C Trace Context: version-trace_id-parent_id-flags
	if traceParent := c.GetHeader(TraceParentHeader); traceParent != "" {
		parts := strings.Split(traceParent, "-")
		if len(parts) >= 2 && parts[1] != "" {
			return parts[1]
		}
	}

	if traceID := c.GetHeader(TraceIDHeader); traceID != "" {
		return traceID
	}

	return generateTraceID()
}

// generateTraceID returns 32 hex characters, the same width as a W3C trace id.
func generateTraceID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// LoggingMiddleware creates a Gin middleware for structured logging with trace-id using Zerolog.
// The request line never includes the body, so credentials submitted to /signin or
// /register are not written to the log.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		traceID := GetTraceID(c)
		c.Set("trace_id", traceID)

		logger := log.With().Str("trace_id", traceID).Logger()
		ctx := logger.WithContext(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)

		c.Header(TraceIDHeader, traceID)

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		var event *zerolog.Event
		switch {
		case statusCode >= 500:
			event = logger.Error()
		case statusCode >= 400:
			event = logger.Warn()
		default:
			event = logger.Info()
		}

		if userID := c.GetString(UserIDKey); userID != "" {
			event = event.Str("user_id", userID)
		}

		event.
			Str("method", method).
			Str("path", path).
			Str("route", c.FullPath()).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent()).
			Msg("HTTP request")
	}
}
