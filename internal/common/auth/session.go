// internal/common/auth/session.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"findmysecurity/internal/common/logger"
	"findmysecurity/internal/models"

	"github.com/redis/go-redis/v9"
)

var (
	ErrTokenRevoked       = errors.New("session token revoked")
	ErrSessionInactive    = errors.New("session inactive")
	ErrSessionCheckFailed = errors.New("SESSION_CHECK_FAILED")
)

const sessionQuery = `SELECT session_id, user_id, created_at, expires_at, revoked_at FROM user_sessions WHERE session_id = $1`

// SessionChecker decides whether a token belongs to a live session. It only reads.
type SessionChecker struct {
	verifier *TokenVerifier
	redis    *redis.Client
	db       *sql.DB
	cacheTTL time.Duration
	logger   logger.Logger
}

// NewSessionChecker builds a checker. db may be nil, in which case only the
// token and the revocation list are consulted.
func NewSessionChecker(verifier *TokenVerifier, redisClient *redis.Client, db *sql.DB, cacheTTL time.Duration, log logger.Logger) *SessionChecker {
	return &SessionChecker{
		verifier: verifier,
		redis:    redisClient,
		db:       db,
		cacheTTL: cacheTTL,
		logger:   logger.ForComponent(log, "session-checker"),
	}
}

// Check returns the token's claims when the session is live.
func (c *SessionChecker) Check(ctx context.Context, token string) (*Claims, error) {
	claims, err := c.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	revoked, err := c.isRevoked(ctx, token)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if c.db == nil || claims.ID == "" {
		return claims, nil
	}

	active, err := c.isActive(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrSessionInactive
	}
	return claims, nil
}

// isRevoked reads the list the logout flow writes to.
func (c *SessionChecker) isRevoked(ctx context.Context, token string) (bool, error) {
	if c.redis == nil {
		return false, nil
	}
	err := c.redis.Get(ctx, "token:revoked:"+token).Err()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.Nil):
		return false, nil
	default:
		return false, fmt.Errorf("%w: revocation lookup: %v", ErrSessionCheckFailed, err)
	}
}

func (c *SessionChecker) isActive(ctx context.Context, sessionID string) (bool, error) {
	cacheKey := "session:active:" + sessionID
	if c.redis != nil {
		if val, err := c.redis.Get(ctx, cacheKey).Result(); err == nil {
			return val == "1", nil
		}
	}

	var (
		session   models.Session
		revokedAt sql.NullTime
	)
	err := c.db.QueryRowContext(ctx, sessionQuery, sessionID).Scan(
		&session.ID, &session.UserID, &session.CreatedAt, &session.ExpiresAt, &revokedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("%w: %v", ErrSessionCheckFailed, err)
	}
	if revokedAt.Valid {
		session.RevokedAt = &revokedAt.Time
	}

	active := session.IsActive(time.Now())
	if c.redis != nil {
		val := "0"
		if active {
			val = "1"
		}
		if err := c.redis.Set(ctx, cacheKey, val, c.cacheTTL).Err(); err != nil {
			c.logger.Warn("failed to cache session state", map[string]interface{}{
				"sessionId": sessionID,
				"error":     err.Error(),
			})
		}
	}
	return active, nil
}
