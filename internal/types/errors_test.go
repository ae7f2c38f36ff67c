package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDcafError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *DcafError
		expected string
	}{
		{
			name:     "without cause",
			err:      NewError(GRAPH_QUERY_FAILED, "query failed"),
			expected: "[GRAPH_QUERY_FAILED] query failed",
		},
		{
			name:     "with cause",
			err:      WrapError(GRAPH_CONNECTION_FAILED, "connect failed", fmt.Errorf("dial tcp: refused")),
			expected: "[GRAPH_CONNECTION_FAILED] connect failed: dial tcp: refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestDcafError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := WrapError(INDEX_SEARCH_FAILED, "search failed", cause)

	assert.Equal(t, cause, errors.Unwrap(err))
	assert.True(t, errors.Is(err, cause))
}

func TestDcafError_IsByCode(t *testing.T) {
	err := WrapError(GUARD_MISSING_TENANT, "no tenant resolvable", nil)
	target := NewError(GUARD_MISSING_TENANT, "different message")

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, NewError(GUARD_ACCESS_DENIED, "denied")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(NewRetryableError(GRAPH_SESSION_EXPIRED, "session expired")))
	assert.False(t, IsRetryable(NewError(GRAPH_QUERY_FAILED, "syntax error")))
	assert.False(t, IsRetryable(fmt.Errorf("plain error")))
	assert.False(t, IsRetryable(nil))
}

func TestIsRetryable_Wrapped(t *testing.T) {
	inner := NewRetryableError(GRAPH_CONNECTION_FAILED, "connection reset")
	outer := fmt.Errorf("tool call failed: %w", inner)

	require.True(t, IsRetryable(outer))
}
