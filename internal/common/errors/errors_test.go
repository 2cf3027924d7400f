package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Warn(string, map[string]interface{})  {}
func (nopLogger) Error(string, map[string]interface{}) {}

func TestAsStandardError_UnwrapsChain(t *testing.T) {
	cause := stderrors.New("connection refused")
	wrapped := fmt.Errorf("fetch: %w", NewListingFetchFailedError("companies", cause))

	stdErr, ok := AsStandardError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrCodeListingFetchFailed, stdErr.Code)
	assert.True(t, stderrors.Is(wrapped, cause))
}

func TestLookupAndSessionErrors_KeepCause(t *testing.T) {
	cause := stderrors.New("dial tcp: i/o timeout")

	lookup := NewPostcodeLookupFailedError("E1 6AN", cause)
	assert.Equal(t, ErrCodePostcodeLookupFailed, lookup.Code)
	assert.Equal(t, "Could not validate postcode", lookup.Message)
	assert.Contains(t, lookup.Details, "E1 6AN")
	assert.True(t, lookup.Retryable)
	assert.True(t, stderrors.Is(lookup, cause))

	session := NewSessionCheckFailedError(cause)
	assert.Equal(t, ErrCodeSessionCheckFailed, session.Code)
	assert.Equal(t, cause.Error(), session.Details)
	assert.True(t, stderrors.Is(session, cause))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeAuthenticationRequired, http.StatusUnauthorized},
		{ErrCodeUnknownEntity, http.StatusNotFound},
		{ErrCodeInvalidMutation, http.StatusBadRequest},
		{ErrCodeAdvancedFiltersHidden, http.StatusConflict},
		{ErrCodeListingTimeout, http.StatusGatewayTimeout},
		{ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}

func TestGetErrorCategory(t *testing.T) {
	assert.Equal(t, "LISTING", GetErrorCategory(ErrCodeListingTimeout))
	assert.Equal(t, "POSTCODE", GetErrorCategory(ErrCodePostcodeLookupFailed))
	assert.Equal(t, "AUTH", GetErrorCategory(ErrCodeAuthenticationRequired))
	assert.Equal(t, "VALIDATION", GetErrorCategory(ErrCodeUnknownEntity))
	assert.True(t, IsRetryableErrorCode(ErrCodeListingTimeout))
	assert.False(t, IsRetryableErrorCode(ErrCodeInvalidMutation))
}

func TestErrorHandler_Respond(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewErrorHandler(nopLogger{})

	t.Run("standard error keeps its status and metadata", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Respond(c, NewAuthenticationRequiredError("/login"))

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"AUTHENTICATION_REQUIRED"`)
		assert.Contains(t, w.Body.String(), `"loginUrl":"/login"`)
	})

	t.Run("plain error becomes internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		h.Respond(c, stderrors.New("boom"))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), `"code":"INTERNAL_ERROR"`)
	})
}
