package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainError_Error(t *testing.T) {
	err := NewDomainError(ErrorTypeRateLimit, "rate limit exceeded", nil)
	assert.Equal(t, "rate_limit: rate limit exceeded", err.Error())

	wrapped := NewDomainError(ErrorTypeIndexUnavailable, "store down", errors.New("dial tcp: refused"))
	assert.Contains(t, wrapped.Error(), "store down")
	assert.Contains(t, wrapped.Error(), "refused")
}

func TestDomainError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := NewDomainError(ErrorTypeInternal, "wrapper", cause)

	assert.ErrorIs(t, err, cause)
}

func TestDomainError_IsMatchesOnType(t *testing.T) {
	err := WrapIndexUnavailable("query failed", errors.New("timeout"))
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestWithDetail_DoesNotMutateSentinel(t *testing.T) {
	detailed := ErrProductNotFound.WithDetail("product_id", "p99")

	require.NotSame(t, ErrProductNotFound, detailed)
	assert.Empty(t, ErrProductNotFound.Details)
	assert.Equal(t, "p99", detailed.Details["product_id"])
	assert.True(t, IsNotFoundError(detailed))
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		err  error
		pred func(error) bool
	}{
		{ErrInvalidChunkParams, IsInvalidConfigurationError},
		{ErrIndexUnavailable, IsIndexUnavailableError},
		{ErrRateLimited, IsRateLimitError},
		{ErrUnauthorized, IsUnauthorizedError},
		{ErrGenerationDegraded, IsGenerationDegradedError},
		{ErrProductNotFound, IsNotFoundError},
		{ErrEmptyQuestion, IsValidationError},
		{ErrInternal, IsInternalError},
	}

	for _, tt := range tests {
		assert.True(t, tt.pred(tt.err), "%v", tt.err)
		// Wrapping with fmt must not break classification.
		assert.True(t, tt.pred(fmt.Errorf("context: %w", tt.err)))
	}

	assert.False(t, IsRateLimitError(errors.New("plain error")))
	assert.False(t, IsRateLimitError(nil))
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorTypeRateLimit, GetErrorType(ErrRateLimited))
	assert.Equal(t, ErrorTypeInternal, GetErrorType(errors.New("unknown")))
}
