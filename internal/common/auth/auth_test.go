// internal/common/auth/auth_test.go
package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"findmysecurity/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret"
	testIssuer = "findmysecurity"
	querySQL   = `SELECT session_id, user_id, created_at, expires_at, revoked_at FROM user_sessions WHERE session_id = \$1`
)

// ==========================
// Test Helper Functions
// ==========================

func createTestVerifier() *TokenVerifier {
	return NewTokenVerifier(testSecret, testIssuer)
}

func createTestToken(t *testing.T, v *TokenVerifier, sessionID string) string {
	token, err := v.Sign(Claims{
		UserID:           "user-123",
		Email:            "guard@example.com",
		RegisteredClaims: jwt.RegisteredClaims{ID: sessionID, Subject: "user-123"},
	}, time.Hour)
	require.NoError(t, err)
	return token
}

func sessionRows(expiresAt time.Time, revokedAt interface{}) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"session_id", "user_id", "created_at", "expires_at", "revoked_at"}).
		AddRow("sess-1", "user-123", time.Now().Add(-time.Hour), expiresAt, revokedAt)
}

// ==========================
// Token Tests
// ==========================

func TestTokenVerifier_Verify(t *testing.T) {
	v := createTestVerifier()
	valid := createTestToken(t, v, "sess-1")

	expired, err := v.Sign(Claims{
		UserID: "user-123",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}, time.Hour)
	require.NoError(t, err)

	otherIssuer, err := NewTokenVerifier(testSecret, "someone-else").Sign(Claims{UserID: "user-123"}, time.Hour)
	require.NoError(t, err)

	wrongKey, err := NewTokenVerifier("other-secret", testIssuer).Sign(Claims{UserID: "user-123"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "valid token", token: valid},
		{name: "empty token", token: "", wantErr: ErrMissingToken},
		{name: "garbage", token: "not-a-jwt", wantErr: ErrInvalidToken},
		{name: "expired", token: expired, wantErr: ErrInvalidToken},
		{name: "wrong issuer", token: otherIssuer, wantErr: ErrInvalidToken},
		{name: "wrong signing key", token: wrongKey, wantErr: ErrInvalidToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := v.Verify(tt.token)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, claims)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "user-123", claims.UserID)
			assert.Equal(t, "sess-1", claims.ID)
		})
	}
}

func TestTokenVerifier_RejectsNoneAlgorithm(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-123"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = createTestVerifier().Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc.def", "abc.def", true},
		{"Bearer ", "", false},
		{"Basic Zm9vOmJhcg==", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		token, ok := ExtractBearer(tt.header)
		assert.Equal(t, tt.ok, ok, tt.header)
		assert.Equal(t, tt.token, token, tt.header)
	}
}

// ==========================
// Session Check Tests
// ==========================

func TestSessionChecker_Check_ActiveSessionFromDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	v := createTestVerifier()
	token := createTestToken(t, v, "sess-1")
	checker := NewSessionChecker(v, redisClient, db, time.Minute, logger.NewTestLogger(t))

	redisMock.ExpectGet("token:revoked:" + token).RedisNil()
	redisMock.ExpectGet("session:active:sess-1").RedisNil()
	mock.ExpectQuery(querySQL).WithArgs("sess-1").WillReturnRows(sessionRows(time.Now().Add(time.Hour), nil))
	redisMock.ExpectSet("session:active:sess-1", "1", time.Minute).SetVal("OK")

	claims, err := checker.Check(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)

	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestSessionChecker_Check_InactiveSessions(t *testing.T) {
	tests := []struct {
		name      string
		expiresAt time.Time
		revokedAt interface{}
	}{
		{name: "expired", expiresAt: time.Now().Add(-time.Minute), revokedAt: nil},
		{name: "revoked", expiresAt: time.Now().Add(time.Hour), revokedAt: time.Now().Add(-time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			redisClient, redisMock := redismock.NewClientMock()

			v := createTestVerifier()
			token := createTestToken(t, v, "sess-1")
			checker := NewSessionChecker(v, redisClient, db, time.Minute, logger.NewTestLogger(t))

			redisMock.ExpectGet("token:revoked:" + token).RedisNil()
			redisMock.ExpectGet("session:active:sess-1").RedisNil()
			mock.ExpectQuery(querySQL).WithArgs("sess-1").WillReturnRows(sessionRows(tt.expiresAt, tt.revokedAt))
			redisMock.ExpectSet("session:active:sess-1", "0", time.Minute).SetVal("OK")

			_, err = checker.Check(context.Background(), token)
			assert.ErrorIs(t, err, ErrSessionInactive)
			assert.NoError(t, mock.ExpectationsWereMet())
			assert.NoError(t, redisMock.ExpectationsWereMet())
		})
	}
}

func TestSessionChecker_Check_CachedState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	v := createTestVerifier()
	token := createTestToken(t, v, "sess-1")
	checker := NewSessionChecker(v, redisClient, db, time.Minute, logger.NewTestLogger(t))

	redisMock.ExpectGet("token:revoked:" + token).RedisNil()
	redisMock.ExpectGet("session:active:sess-1").SetVal("0")

	_, err = checker.Check(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionInactive)
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestSessionChecker_Check_RevokedToken(t *testing.T) {
	redisClient, redisMock := redismock.NewClientMock()
	v := createTestVerifier()
	token := createTestToken(t, v, "sess-1")
	checker := NewSessionChecker(v, redisClient, nil, time.Minute, logger.NewTestLogger(t))

	redisMock.ExpectGet("token:revoked:" + token).SetVal("1")

	_, err := checker.Check(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	assert.NoError(t, redisMock.ExpectationsWereMet())
}

func TestSessionChecker_Check_FailsClosed(t *testing.T) {
	t.Run("revocation lookup error", func(t *testing.T) {
		redisClient, redisMock := redismock.NewClientMock()
		v := createTestVerifier()
		token := createTestToken(t, v, "sess-1")
		checker := NewSessionChecker(v, redisClient, nil, time.Minute, logger.NewTestLogger(t))

		redisMock.ExpectGet("token:revoked:" + token).SetErr(errors.New("connection refused"))

		_, err := checker.Check(context.Background(), token)
		assert.ErrorIs(t, err, ErrSessionCheckFailed)
	})

	t.Run("database error", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()
		redisClient, redisMock := redismock.NewClientMock()

		v := createTestVerifier()
		token := createTestToken(t, v, "sess-1")
		checker := NewSessionChecker(v, redisClient, db, time.Minute, logger.NewTestLogger(t))

		redisMock.ExpectGet("token:revoked:" + token).RedisNil()
		redisMock.ExpectGet("session:active:sess-1").RedisNil()
		mock.ExpectQuery(querySQL).WithArgs("sess-1").WillReturnError(errors.New("db down"))

		_, err = checker.Check(context.Background(), token)
		assert.ErrorIs(t, err, ErrSessionCheckFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestSessionChecker_Check_UnknownSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	redisClient, redisMock := redismock.NewClientMock()

	v := createTestVerifier()
	token := createTestToken(t, v, "sess-1")
	checker := NewSessionChecker(v, redisClient, db, time.Minute, logger.NewTestLogger(t))

	redisMock.ExpectGet("token:revoked:" + token).RedisNil()
	redisMock.ExpectGet("session:active:sess-1").RedisNil()
	mock.ExpectQuery(querySQL).WithArgs("sess-1").
		WillReturnRows(sqlmock.NewRows([]string{"session_id", "user_id", "created_at", "expires_at", "revoked_at"}))

	_, err = checker.Check(context.Background(), token)
	assert.ErrorIs(t, err, ErrSessionInactive)
}

func TestSessionChecker_Check_TokenOnly(t *testing.T) {
	v := createTestVerifier()
	token := createTestToken(t, v, "sess-1")
	checker := NewSessionChecker(v, (*redis.Client)(nil), nil, time.Minute, nil)

	claims, err := checker.Check(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.ID)
}

// ==========================
// Evidence Tests
// ==========================

func TestRequestEvidence_HasSession(t *testing.T) {
	ctx := context.Background()
	assert.False(t, RequestEvidence{}.HasSession(ctx))

	assert.False(t, RequestEvidence{}.HasSession(WithEvidence(ctx, Evidence{})))

	authed := WithEvidence(ctx, Evidence{Authenticated: true, UserID: "user-123", SessionID: "sess-1"})
	assert.True(t, RequestEvidence{}.HasSession(authed))

	e, ok := EvidenceFrom(authed)
	require.True(t, ok)
	assert.Equal(t, "user-123", e.UserID)
}
