// Package errors provides standardized error handling for the listing service.
package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeListingFetchFailed     ErrorCode = "LISTING_FETCH_FAILED"
	ErrCodeListingTimeout         ErrorCode = "LISTING_TIMEOUT"
	ErrCodeListingInvalidResponse ErrorCode = "LISTING_INVALID_RESPONSE"

	ErrCodePostcodeLookupFailed ErrorCode = "POSTCODE_LOOKUP_FAILED"

	ErrCodeAuthenticationRequired ErrorCode = "AUTHENTICATION_REQUIRED"
	ErrCodeSessionCheckFailed     ErrorCode = "SESSION_CHECK_FAILED"

	ErrCodeUnknownEntity         ErrorCode = "UNKNOWN_ENTITY"
	ErrCodeInvalidMutation       ErrorCode = "INVALID_MUTATION"
	ErrCodeAdvancedFiltersHidden ErrorCode = "ADVANCED_FILTERS_HIDDEN"
	ErrCodeDraftNotFound         ErrorCode = "DRAFT_NOT_FOUND"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

// WithMetadata sets a metadata key and returns e.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

func newError(code ErrorCode, message, details string, retryable bool, cause error) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
}

// ==========================
// 2. Error Constructors
// ==========================

// NewListingFetchFailedError wraps a Listing API or search failure.
func NewListingFetchFailedError(entity string, err error) *StandardError {
	return newError(ErrCodeListingFetchFailed,
		"We couldn't load results right now. Please try again.",
		fmt.Sprintf("entity: %s, error: %v", entity, err), true, err)
}

// NewListingTimeoutError reports a listing request that exceeded its deadline.
func NewListingTimeoutError(entity string, err error) *StandardError {
	return newError(ErrCodeListingTimeout,
		"The search took too long. Please try again.",
		fmt.Sprintf("entity: %s", entity), true, err)
}

// NewListingInvalidResponseError reports a response that failed envelope validation.
func NewListingInvalidResponseError(entity, details string) *StandardError {
	return newError(ErrCodeListingInvalidResponse,
		"We received an unexpected response. Please try again.",
		fmt.Sprintf("entity: %s, %s", entity, details), true, nil)
}

// NewPostcodeLookupFailedError's message is shown inline under the postcode field.
func NewPostcodeLookupFailedError(postcode string, err error) *StandardError {
	return newError(ErrCodePostcodeLookupFailed,
		"Could not validate postcode",
		fmt.Sprintf("postcode: %s, error: %v", postcode, err), true, err)
}

// NewAuthenticationRequiredError is returned when an action needs a signed-in user.
func NewAuthenticationRequiredError(loginURL string) *StandardError {
	e := newError(ErrCodeAuthenticationRequired,
		"Sign in to use advanced filters", "", false, nil)
	if loginURL != "" {
		e.WithMetadata("loginUrl", loginURL)
	}
	return e
}

func NewSessionCheckFailedError(err error) *StandardError {
	return newError(ErrCodeSessionCheckFailed,
		"Session check failed", err.Error(), true, err)
}

func NewUnknownEntityError(entity string) *StandardError {
	return newError(ErrCodeUnknownEntity,
		"Unknown listing type", fmt.Sprintf("entity: %s", entity), false, nil)
}

func NewInvalidMutationError(details string) *StandardError {
	return newError(ErrCodeInvalidMutation,
		"Invalid filter change", details, false, nil)
}

func NewAdvancedFiltersHiddenError(field string) *StandardError {
	return newError(ErrCodeAdvancedFiltersHidden,
		"Advanced filters are hidden", fmt.Sprintf("field: %s", field), false, nil)
}

func NewDraftNotFoundError(entity string) *StandardError {
	return newError(ErrCodeDraftNotFound,
		"No saved search", fmt.Sprintf("entity: %s", entity), false, nil)
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandardError extracts a *StandardError from err's chain.
func AsStandardError(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	switch code {
	case ErrCodeListingFetchFailed,
		ErrCodeListingTimeout,
		ErrCodeListingInvalidResponse,
		ErrCodePostcodeLookupFailed,
		ErrCodeSessionCheckFailed:
		return true
	}
	return false
}

// HTTPStatus maps an error code to the status the gateway answers with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeAuthenticationRequired:
		return http.StatusUnauthorized
	case ErrCodeUnknownEntity, ErrCodeDraftNotFound:
		return http.StatusNotFound
	case ErrCodeInvalidMutation:
		return http.StatusBadRequest
	case ErrCodeAdvancedFiltersHidden:
		return http.StatusConflict
	case ErrCodeListingTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeListingFetchFailed, ErrCodeListingInvalidResponse, ErrCodePostcodeLookupFailed:
		return http.StatusBadGateway
	case ErrCodeSessionCheckFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "LISTING"):
		return "LISTING"
	case strings.HasPrefix(codeStr, "POSTCODE"):
		return "POSTCODE"
	case strings.Contains(codeStr, "AUTH") || strings.Contains(codeStr, "SESSION"):
		return "AUTH"
	case strings.Contains(codeStr, "INVALID") || strings.Contains(codeStr, "UNKNOWN") || strings.Contains(codeStr, "HIDDEN"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
