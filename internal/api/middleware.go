package api

import (
	"context"
	"errors"
	"strconv"
	"time"

	"findmysecurity/internal/common/auth"
	apperrors "findmysecurity/internal/common/errors"
	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/common/metrics"
	"findmysecurity/internal/common/observability"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// SessionChecker resolves a raw token to its claims.
type SessionChecker interface {
	Check(ctx context.Context, token string) (*auth.Claims, error)
}

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func AccessLog(log logger.Logger) gin.HandlerFunc {
	log = logger.ForComponent(log, "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		fields := map[string]interface{}{
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     status,
			"durationMs": time.Since(start).Milliseconds(),
			"clientIp":   c.ClientIP(),
			"sizeBytes":  c.Writer.Size(),
			"requestId":  c.GetString("request_id"),
		}
		switch {
		case status >= 500:
			log.Error("HTTP server error", fields)
		case status >= 400:
			log.Warn("HTTP client error", fields)
		default:
			log.Info("HTTP request", fields)
		}
	}
}

// Metrics records request counts and latency in Prometheus and, when obs is
// set, through the OpenTelemetry meter.
func Metrics(obs *observability.Observability) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		status := c.Writer.Status()

		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(c.Request.Method, route).Observe(elapsed.Seconds())
		obs.RecordRequest(c.Request.Context(), c.Request.Method, route, status, elapsed)
	}
}

// CORS allows the configured origins. With no origins configured it is a no-op.
func CORS(origins []string) gin.HandlerFunc {
	if len(origins) == 0 {
		return func(c *gin.Context) { c.Next() }
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Location", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

// Session attaches session evidence to the request context. A token may come
// from the Authorization header or the session cookie. Any failure leaves the
// request unauthenticated; it is never rejected here.
func Session(checker SessionChecker, cookieName string, log logger.Logger) gin.HandlerFunc {
	log = logger.ForComponent(log, "session")
	return func(c *gin.Context) {
		token, ok := auth.ExtractBearer(c.GetHeader("Authorization"))
		if !ok && cookieName != "" {
			if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
				token, ok = cookie, true
			}
		}

		evidence := auth.Evidence{}
		if ok && checker != nil {
			claims, err := checker.Check(c.Request.Context(), token)
			switch {
			case err == nil:
				evidence = auth.Evidence{Authenticated: true, UserID: claims.UserID, SessionID: claims.ID}
			case errors.Is(err, auth.ErrSessionCheckFailed):
				stdErr := apperrors.NewSessionCheckFailedError(err)
				log.Warn("session check failed", map[string]interface{}{
					"requestId": c.GetString("request_id"),
					"code":      stdErr.Code,
					"details":   stdErr.Details,
				})
			default:
				log.Debug("session rejected", map[string]interface{}{
					"requestId": c.GetString("request_id"),
					"reason":    err.Error(),
				})
			}
		}

		c.Request = c.Request.WithContext(auth.WithEvidence(c.Request.Context(), evidence))
		c.Next()
	}
}
